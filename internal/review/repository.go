package review

import (
	"context"

	"gorm.io/gorm"

	"design-review-server/internal/domain"
)

type ProjectRepository interface {
	FindProject(ctx context.Context, id uint64) (*domain.Project, error)
	GetStatus(ctx context.Context, id uint64) (domain.ProjectStatus, error)
	SaveTransition(ctx context.Context, project *domain.Project, versionStatus *domain.VersionStatus) error
}

type ProjectRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ProjectRepository {
	return &ProjectRepositoryImpl{db: db}
}

func (r *ProjectRepositoryImpl) FindProject(ctx context.Context, id uint64) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepositoryImpl) GetStatus(ctx context.Context, id uint64) (domain.ProjectStatus, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).Select("id", "status").First(&project, id).Error
	if err != nil {
		return "", err
	}
	return project.Status, nil
}

// SaveTransition persists the project's new status and, when versionStatus
// is set, cascades it to the versions still under review. One transaction:
// a partially applied transition is never observable.
func (r *ProjectRepositoryImpl) SaveTransition(ctx context.Context, project *domain.Project, versionStatus *domain.VersionStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(project).Error; err != nil {
			return err
		}

		if versionStatus != nil {
			if err := tx.Model(&domain.Version{}).
				Where("project_id = ? AND status IN ?", project.ID,
					[]domain.VersionStatus{domain.VersionDraft, domain.VersionPendingReview}).
				Update("status", *versionStatus).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
