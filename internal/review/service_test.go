package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"design-review-server/internal/domain"
	apiError "design-review-server/internal/errors"
	"design-review-server/internal/room"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindProject(ctx context.Context, id uint64) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockRepository) GetStatus(ctx context.Context, id uint64) (domain.ProjectStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.ProjectStatus), args.Error(1)
}

func (m *MockRepository) SaveTransition(ctx context.Context, project *domain.Project, versionStatus *domain.VersionStatus) error {
	args := m.Called(ctx, project, versionStatus)
	return args.Error(0)
}

type capturePublisher struct {
	events []room.Event
}

func (p *capturePublisher) Publish(evt room.Event) {
	p.events = append(p.events, evt)
}

func TestRequestTransition_SubmitForReview(t *testing.T) {
	repo := new(MockRepository)
	publisher := &capturePublisher{}
	service := NewService(repo, publisher, nil, nil)

	repo.On("FindProject", mock.Anything, uint64(1)).Return(&domain.Project{
		ID:     1,
		Status: domain.ProjectDraft,
	}, nil)
	repo.On("SaveTransition", mock.Anything, mock.MatchedBy(func(p *domain.Project) bool {
		return p.Status == domain.ProjectPending
	}), mock.MatchedBy(func(vs *domain.VersionStatus) bool {
		return vs != nil && *vs == domain.VersionPendingReview
	})).Return(nil)

	status, err := service.SubmitForReview(context.Background(), 1, domain.Author{Role: "operator", Name: "Admin"})

	assert.NoError(t, err)
	assert.Equal(t, domain.ProjectPending, status)

	if assert.Len(t, publisher.events, 1) {
		assert.Equal(t, room.EventProjectStatusChanged, publisher.events[0].Kind)
		assert.Equal(t, uint64(1), publisher.events[0].ProjectID)
	}
	repo.AssertExpectations(t)
}

func TestRequestTransition_ApproveStampsReviewer(t *testing.T) {
	repo := new(MockRepository)
	publisher := &capturePublisher{}
	service := NewService(repo, publisher, nil, nil)

	repo.On("FindProject", mock.Anything, uint64(1)).Return(&domain.Project{
		ID:     1,
		Status: domain.ProjectPending,
	}, nil)
	repo.On("SaveTransition", mock.Anything, mock.MatchedBy(func(p *domain.Project) bool {
		return p.Status == domain.ProjectApproved &&
			p.ReviewedAt != nil &&
			p.ReviewedBy != nil && *p.ReviewedBy == "Client" &&
			p.ReviewComment != nil && *p.ReviewComment == "Looks great"
	}), mock.MatchedBy(func(vs *domain.VersionStatus) bool {
		return vs != nil && *vs == domain.VersionApproved
	})).Return(nil)

	status, err := service.RequestTransition(
		context.Background(),
		1,
		domain.ProjectApproved,
		domain.Author{Role: "reviewer", Name: "Client"},
		"Looks great",
	)

	assert.NoError(t, err)
	assert.Equal(t, domain.ProjectApproved, status)
	repo.AssertExpectations(t)
}

func TestRequestTransition_RejectCascadesVersions(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, &capturePublisher{}, nil, nil)

	repo.On("FindProject", mock.Anything, uint64(1)).Return(&domain.Project{
		ID:     1,
		Status: domain.ProjectPending,
	}, nil)
	repo.On("SaveTransition", mock.Anything, mock.MatchedBy(func(p *domain.Project) bool {
		return p.Status == domain.ProjectRevisionRequested
	}), mock.MatchedBy(func(vs *domain.VersionStatus) bool {
		return vs != nil && *vs == domain.VersionRejected
	})).Return(nil)

	status, err := service.RequestTransition(
		context.Background(),
		1,
		domain.ProjectRevisionRequested,
		domain.Author{Role: "reviewer", Name: "Client"},
		"Logo color is wrong",
	)

	assert.NoError(t, err)
	assert.Equal(t, domain.ProjectRevisionRequested, status)
}

func TestRequestTransition_OutOfTerminalState(t *testing.T) {
	repo := new(MockRepository)
	publisher := &capturePublisher{}
	service := NewService(repo, publisher, nil, nil)

	repo.On("FindProject", mock.Anything, uint64(1)).Return(&domain.Project{
		ID:     1,
		Status: domain.ProjectApproved,
	}, nil)

	_, err := service.RequestTransition(
		context.Background(),
		1,
		domain.ProjectPending,
		domain.Author{},
		"",
	)

	assertStatus(t, err, 409)
	assert.Empty(t, publisher.events)
	repo.AssertNotCalled(t, "SaveTransition")
}

func TestRequestTransition_SkipReviewNotAllowed(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, &capturePublisher{}, nil, nil)

	repo.On("FindProject", mock.Anything, uint64(1)).Return(&domain.Project{
		ID:     1,
		Status: domain.ProjectDraft,
	}, nil)

	// DRAFT cannot jump straight to APPROVED
	_, err := service.RequestTransition(
		context.Background(),
		1,
		domain.ProjectApproved,
		domain.Author{},
		"",
	)

	assertStatus(t, err, 409)
}

func TestRequestTransition_NotFound(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, &capturePublisher{}, nil, nil)

	repo.On("FindProject", mock.Anything, uint64(99)).Return(nil, gorm.ErrRecordNotFound)

	_, err := service.RequestTransition(
		context.Background(),
		99,
		domain.ProjectPending,
		domain.Author{},
		"",
	)

	assertStatus(t, err, 404)
}

func TestCanMutate(t *testing.T) {
	cases := []struct {
		status     domain.ProjectStatus
		wantStatus int // 0 means allowed
	}{
		{domain.ProjectDraft, 0},
		{domain.ProjectPending, 0},
		{domain.ProjectApproved, 409},
		{domain.ProjectRevisionRequested, 409},
	}

	for _, tc := range cases {
		repo := new(MockRepository)
		service := NewService(repo, &capturePublisher{}, nil, nil)
		repo.On("GetStatus", mock.Anything, uint64(1)).Return(tc.status, nil)

		err := service.CanMutate(context.Background(), 1)
		if tc.wantStatus == 0 {
			assert.NoError(t, err, "status %s should allow mutation", tc.status)
		} else {
			assertStatus(t, err, tc.wantStatus)
		}
	}
}

func TestCanMutate_UnknownProject(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, &capturePublisher{}, nil, nil)

	repo.On("GetStatus", mock.Anything, uint64(99)).Return(domain.ProjectStatus(""), gorm.ErrRecordNotFound)

	err := service.CanMutate(context.Background(), 99)
	assertStatus(t, err, 404)
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	var apiErr *apiError.APIError
	if assert.ErrorAs(t, err, &apiErr) {
		assert.Equal(t, want, apiErr.Status)
	}
}
