package resync

import (
	"context"
	"time"

	"design-review-server/internal/annotation"
	"design-review-server/internal/domain"
)

// AnnotationLister is satisfied by annotation.Service.
type AnnotationLister interface {
	ListByProject(ctx context.Context, projectID uint64) ([]annotation.AnnotationResponse, error)
}

// StatusProvider is satisfied by review.Service.
type StatusProvider interface {
	ProjectStatus(ctx context.Context, projectID uint64) (domain.ProjectStatus, error)
}

// Snapshot is the authoritative full state a connection pulls after joining
// a room (or rejoining after a drop). Replies come embedded in their
// annotations. A client applies the snapshot, then deduplicates subsequent
// push events against it by entity ID.
type Snapshot struct {
	ProjectID     uint64                          `json:"project_id"`
	ProjectStatus domain.ProjectStatus            `json:"project_status"`
	Annotations   []annotation.AnnotationResponse `json:"annotations"`
	GeneratedAt   time.Time                       `json:"generated_at"`
}

type Service interface {
	Snapshot(ctx context.Context, projectID uint64) (*Snapshot, error)
}

type DefaultService struct {
	annotations AnnotationLister
	review      StatusProvider
}

func NewService(annotations AnnotationLister, review StatusProvider) Service {
	return &DefaultService{annotations: annotations, review: review}
}

// Snapshot is read-only and safe to call at any time; it never mutates
// store or registry state. The status is read before the history, so a
// terminal status in the snapshot guarantees the history behind it is
// complete.
func (s *DefaultService) Snapshot(ctx context.Context, projectID uint64) (*Snapshot, error) {
	status, err := s.review.ProjectStatus(ctx, projectID)
	if err != nil {
		return nil, err
	}

	annotations, err := s.annotations.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ProjectID:     projectID,
		ProjectStatus: status,
		Annotations:   annotations,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}
