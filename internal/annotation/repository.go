package annotation

import (
	"context"
	"time"

	"gorm.io/gorm"

	"design-review-server/internal/domain"
)

type AnnotationRepository interface {
	FindFile(ctx context.Context, fileID uint64) (*domain.File, error)
	ProjectExists(ctx context.Context, projectID uint64) (bool, error)
	Create(ctx context.Context, annotation *domain.Annotation) error
	FindByID(ctx context.Context, id uint64) (*domain.Annotation, error)
	AddReply(ctx context.Context, reply *domain.Reply) error
	UpdateStatus(ctx context.Context, annotation *domain.Annotation) error
	Delete(ctx context.Context, id uint64) error
	ListByFile(ctx context.Context, fileID uint64) ([]domain.Annotation, error)
	ListByProject(ctx context.Context, projectID uint64) ([]domain.Annotation, error)
	ProjectIDForFile(ctx context.Context, fileID uint64) (uint64, error)
	ProjectIDForAnnotation(ctx context.Context, annotationID uint64) (uint64, error)
}

type AnnotationRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) AnnotationRepository {
	return &AnnotationRepositoryImpl{db: db}
}

func (r *AnnotationRepositoryImpl) FindFile(ctx context.Context, fileID uint64) (*domain.File, error) {
	var file domain.File
	err := r.db.WithContext(ctx).First(&file, fileID).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *AnnotationRepositoryImpl) ProjectExists(ctx context.Context, projectID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", projectID).
		Count(&count).Error
	return count > 0, err
}

// Create assigns the per-file sequence and inserts the row in one
// transaction. Two concurrent creates on the same file serialize on the
// counter row, so ordering and IDs can never race.
func (r *AnnotationRepositoryImpl) Create(ctx context.Context, annotation *domain.Annotation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq uint64

		if err := tx.Raw(`
			UPDATE files
			SET annotation_seq = annotation_seq + 1
			WHERE id = ?
			RETURNING annotation_seq
		`, annotation.FileID).Scan(&seq).Error; err != nil {
			return err
		}

		if seq == 0 {
			// no row updated: the file does not exist
			return gorm.ErrRecordNotFound
		}

		annotation.Seq = seq
		annotation.CreatedAt = time.Now().UTC()
		return tx.Create(annotation).Error
	})
}

func (r *AnnotationRepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Annotation, error) {
	var annotation domain.Annotation
	err := r.db.WithContext(ctx).
		Preload("Replies", replyOrder).
		First(&annotation, id).Error
	if err != nil {
		return nil, err
	}
	return &annotation, nil
}

func (r *AnnotationRepositoryImpl) AddReply(ctx context.Context, reply *domain.Reply) error {
	reply.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(reply).Error
}

func (r *AnnotationRepositoryImpl) UpdateStatus(ctx context.Context, annotation *domain.Annotation) error {
	return r.db.WithContext(ctx).
		Model(annotation).
		Select("Status", "Resolved", "ResolvedBy", "ResolvedAt").
		Updates(annotation).Error
}

func (r *AnnotationRepositoryImpl) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("annotation_id = ?", id).Delete(&domain.Reply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Annotation{}, id).Error
	})
}

func (r *AnnotationRepositoryImpl) ListByFile(ctx context.Context, fileID uint64) ([]domain.Annotation, error) {
	var annotations []domain.Annotation
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("seq ASC").
		Preload("Replies", replyOrder).
		Find(&annotations).Error
	return annotations, err
}

func (r *AnnotationRepositoryImpl) ListByProject(ctx context.Context, projectID uint64) ([]domain.Annotation, error) {
	var annotations []domain.Annotation
	err := r.db.WithContext(ctx).
		Joins("JOIN files ON files.id = annotations.file_id").
		Joins("JOIN versions ON versions.id = files.version_id").
		Where("versions.project_id = ?", projectID).
		Order("annotations.id ASC").
		Preload("Replies", replyOrder).
		Find(&annotations).Error
	return annotations, err
}

func (r *AnnotationRepositoryImpl) ProjectIDForFile(ctx context.Context, fileID uint64) (uint64, error) {
	var projectID uint64
	err := r.db.WithContext(ctx).Raw(`
		SELECT versions.project_id
		FROM files
		JOIN versions ON versions.id = files.version_id
		WHERE files.id = ?
	`, fileID).Scan(&projectID).Error
	if err != nil {
		return 0, err
	}
	if projectID == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return projectID, nil
}

func (r *AnnotationRepositoryImpl) ProjectIDForAnnotation(ctx context.Context, annotationID uint64) (uint64, error) {
	var projectID uint64
	err := r.db.WithContext(ctx).Raw(`
		SELECT versions.project_id
		FROM annotations
		JOIN files ON files.id = annotations.file_id
		JOIN versions ON versions.id = files.version_id
		WHERE annotations.id = ?
	`, annotationID).Scan(&projectID).Error
	if err != nil {
		return 0, err
	}
	if projectID == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return projectID, nil
}

func replyOrder(db *gorm.DB) *gorm.DB {
	return db.Order("replies.id ASC")
}
