package review

import (
	"context"
	defError "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"design-review-server/internal/domain"
	"design-review-server/internal/errors"
	"design-review-server/internal/room"
	"design-review-server/internal/worker"
	"design-review-server/redis"
)

// transitions is the whole state machine: everything absent is illegal.
// APPROVED and REVISION_REQUESTED have no outgoing edges; they are terminal.
var transitions = map[domain.ProjectStatus][]domain.ProjectStatus{
	domain.ProjectDraft:   {domain.ProjectPending},
	domain.ProjectPending: {domain.ProjectApproved, domain.ProjectRevisionRequested},
}

func allowed(from, to domain.ProjectStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Publisher is the broadcaster seam; satisfied by room.Hub.
type Publisher interface {
	Publish(evt room.Event)
}

type Service interface {
	RequestTransition(ctx context.Context, projectID uint64, target domain.ProjectStatus, actor domain.Author, comment string) (domain.ProjectStatus, error)
	SubmitForReview(ctx context.Context, projectID uint64, actor domain.Author) (domain.ProjectStatus, error)
	// CanMutate is the single enforcement point consulted before every
	// annotation write. Returns nil while the project accepts mutation.
	CanMutate(ctx context.Context, projectID uint64) error
	ProjectStatus(ctx context.Context, projectID uint64) (domain.ProjectStatus, error)
}

type DefaultService struct {
	repository ProjectRepository
	publisher  Publisher
	cache      *redis.Cache
	pool       *worker.WorkerPool
}

func NewService(repository ProjectRepository, publisher Publisher, cache *redis.Cache, pool *worker.WorkerPool) Service {
	return &DefaultService{
		repository: repository,
		publisher:  publisher,
		cache:      cache,
		pool:       pool,
	}
}

func (s *DefaultService) RequestTransition(
	ctx context.Context,
	projectID uint64,
	target domain.ProjectStatus,
	actor domain.Author,
	comment string,
) (domain.ProjectStatus, error) {
	project, err := s.repository.FindProject(ctx, projectID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.NotFound("Project not found", err)
		}
		return "", errors.ServiceUnavailable("Could not load project", err)
	}

	if !allowed(project.Status, target) {
		return "", errors.Conflict(
			fmt.Sprintf("Invalid transition %s -> %s", project.Status, target),
			nil,
		)
	}

	project.Status = target
	project.UpdatedAt = time.Now().UTC()

	var versionStatus *domain.VersionStatus
	if target.Terminal() {
		now := time.Now().UTC()
		project.ReviewedAt = &now
		if actor.Name != "" {
			reviewedBy := actor.Name
			project.ReviewedBy = &reviewedBy
		}
		if comment != "" {
			project.ReviewComment = &comment
		}

		vs := domain.VersionRejected
		if target == domain.ProjectApproved {
			vs = domain.VersionApproved
		}
		versionStatus = &vs
	} else if target == domain.ProjectPending {
		vs := domain.VersionPendingReview
		versionStatus = &vs
	}

	if err := s.repository.SaveTransition(ctx, project, versionStatus); err != nil {
		return "", errors.ServiceUnavailable("Could not persist transition", err)
	}

	// persisted first, broadcast second; full entity as payload
	s.publisher.Publish(room.Event{
		Kind:      room.EventProjectStatusChanged,
		ProjectID: project.ID,
		Payload:   project,
	})

	s.bumpCacheVersion(project.ID)

	return project.Status, nil
}

func (s *DefaultService) SubmitForReview(ctx context.Context, projectID uint64, actor domain.Author) (domain.ProjectStatus, error) {
	return s.RequestTransition(ctx, projectID, domain.ProjectPending, actor, "")
}

func (s *DefaultService) CanMutate(ctx context.Context, projectID uint64) error {
	status, err := s.repository.GetStatus(ctx, projectID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Project not found", err)
		}
		return errors.ServiceUnavailable("Could not load project status", err)
	}

	if status.Terminal() {
		return errors.Conflict("Project review is closed; annotations are read-only", nil)
	}

	return nil
}

func (s *DefaultService) ProjectStatus(ctx context.Context, projectID uint64) (domain.ProjectStatus, error) {
	status, err := s.repository.GetStatus(ctx, projectID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.NotFound("Project not found", err)
		}
		return "", errors.ServiceUnavailable("Could not load project status", err)
	}
	return status, nil
}

func (s *DefaultService) bumpCacheVersion(projectID uint64) {
	versionKey := fmt.Sprintf("project:%d:annotations:version", projectID)
	if s.pool != nil {
		s.pool.Submit(func(ctx context.Context) error {
			s.cache.IncrementVersion(ctx, versionKey)
			return nil
		})
		return
	}
	s.cache.IncrementVersion(context.Background(), versionKey)
}
