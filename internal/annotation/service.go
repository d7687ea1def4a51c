package annotation

import (
	"context"
	defError "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"design-review-server/internal/domain"
	"design-review-server/internal/errors"
	"design-review-server/internal/room"
	"design-review-server/internal/worker"
	"design-review-server/redis"
)

// Gate decides whether a project currently accepts mutation. Satisfied by
// review.Service; consulted before every write and nowhere else.
type Gate interface {
	CanMutate(ctx context.Context, projectID uint64) error
}

// Publisher is the broadcaster seam; satisfied by room.Hub.
type Publisher interface {
	Publish(evt room.Event)
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ReplyResponse struct {
	ID           uint64        `json:"id"`
	AnnotationID uint64        `json:"annotation_id"`
	Content      string        `json:"content"`
	Author       domain.Author `json:"author"`
	CreatedAt    time.Time     `json:"created_at"`
}

type AnnotationResponse struct {
	ID         uint64                  `json:"id"`
	FileID     uint64                  `json:"file_id"`
	Position   *Position               `json:"position,omitempty"`
	Content    string                  `json:"content"`
	Author     domain.Author           `json:"author"`
	Status     domain.AnnotationStatus `json:"status"`
	IsResolved bool                    `json:"is_resolved"`
	ResolvedBy *string                 `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time              `json:"resolved_at,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	Replies    []ReplyResponse         `json:"replies"`
}

type CreateAnnotationInput struct {
	FileID   uint64
	Content  string
	Author   domain.Author
	Position *Position
}

type ReplyInput struct {
	Content string
	Author  domain.Author
}

type Service interface {
	CreateAnnotation(ctx context.Context, input CreateAnnotationInput) (*AnnotationResponse, error)
	AddReply(ctx context.Context, annotationID uint64, input ReplyInput) (*ReplyResponse, error)
	SetStatus(ctx context.Context, annotationID uint64, rawStatus string, actor domain.Author) (*AnnotationResponse, error)
	DeleteAnnotation(ctx context.Context, annotationID uint64, actor domain.Author) error
	ListByFile(ctx context.Context, fileID uint64) ([]AnnotationResponse, error)
	ListByProject(ctx context.Context, projectID uint64) ([]AnnotationResponse, error)
}

// statusTransitions: COMPLETED has no outgoing edge (resolution is
// terminal); a rejected annotation may be reopened.
var statusTransitions = map[domain.AnnotationStatus][]domain.AnnotationStatus{
	domain.AnnotationPending:  {domain.AnnotationCompleted, domain.AnnotationRejected},
	domain.AnnotationRejected: {domain.AnnotationPending},
}

func statusAllowed(from, to domain.AnnotationStatus) bool {
	for _, t := range statusTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

type DefaultService struct {
	repository AnnotationRepository
	gate       Gate
	publisher  Publisher
	cache      *redis.Cache
	pool       *worker.WorkerPool
}

func NewService(
	repository AnnotationRepository,
	gate Gate,
	publisher Publisher,
	cache *redis.Cache,
	pool *worker.WorkerPool,
) Service {
	return &DefaultService{
		repository: repository,
		gate:       gate,
		publisher:  publisher,
		cache:      cache,
		pool:       pool,
	}
}

func (s *DefaultService) CreateAnnotation(ctx context.Context, input CreateAnnotationInput) (*AnnotationResponse, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.BadRequest("Annotation content cannot be empty", nil)
	}

	if input.Position != nil {
		if input.Position.X < 0 || input.Position.X > 100 ||
			input.Position.Y < 0 || input.Position.Y > 100 {
			return nil, errors.BadRequest("Position must be within 0-100 percent", nil)
		}
	}

	projectID, err := s.repository.ProjectIDForFile(ctx, input.FileID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("File not found", err)
		}
		return nil, errors.ServiceUnavailable("Could not resolve file", err)
	}

	if err := s.gate.CanMutate(ctx, projectID); err != nil {
		return nil, err
	}

	annotation := &domain.Annotation{
		FileID:     input.FileID,
		Content:    content,
		AuthorRole: input.Author.Role,
		AuthorName: input.Author.Name,
		Status:     domain.AnnotationPending,
	}
	if input.Position != nil {
		x, y := input.Position.X, input.Position.Y
		annotation.PosX = &x
		annotation.PosY = &y
	}

	if err := s.repository.Create(ctx, annotation); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("File not found", err)
		}
		return nil, errors.ServiceUnavailable("Could not store annotation", err)
	}

	response := toAnnotationResponse(annotation)

	// write committed; now fan out and invalidate readers
	s.publisher.Publish(room.Event{
		Kind:      room.EventAnnotationAdded,
		ProjectID: projectID,
		Payload:   response,
	})
	s.bumpCacheVersion(ctx, projectID)

	return response, nil
}

func (s *DefaultService) AddReply(ctx context.Context, annotationID uint64, input ReplyInput) (*ReplyResponse, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.BadRequest("Reply content cannot be empty", nil)
	}

	annotation, err := s.repository.FindByID(ctx, annotationID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Annotation not found", err)
		}
		return nil, errors.ServiceUnavailable("Could not load annotation", err)
	}

	projectID, err := s.repository.ProjectIDForAnnotation(ctx, annotationID)
	if err != nil {
		return nil, errors.ServiceUnavailable("Could not resolve annotation", err)
	}

	if err := s.gate.CanMutate(ctx, projectID); err != nil {
		return nil, err
	}

	// a completed annotation is locked for further discussion
	if annotation.Status == domain.AnnotationCompleted {
		return nil, errors.Conflict("Annotation is completed; replies are locked", nil)
	}

	reply := &domain.Reply{
		AnnotationID: annotationID,
		Content:      content,
		AuthorRole:   input.Author.Role,
		AuthorName:   input.Author.Name,
	}

	if err := s.repository.AddReply(ctx, reply); err != nil {
		return nil, errors.ServiceUnavailable("Could not store reply", err)
	}

	response := toReplyResponse(reply)

	s.publisher.Publish(room.Event{
		Kind:      room.EventAnnotationReplyAdded,
		ProjectID: projectID,
		Payload:   response,
	})
	s.bumpCacheVersion(ctx, projectID)

	return response, nil
}

func (s *DefaultService) SetStatus(ctx context.Context, annotationID uint64, rawStatus string, actor domain.Author) (*AnnotationResponse, error) {
	target, err := domain.ParseAnnotationStatus(rawStatus)
	if err != nil {
		return nil, errors.BadRequest("Unknown annotation status", err)
	}

	annotation, err := s.repository.FindByID(ctx, annotationID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Annotation not found", err)
		}
		return nil, errors.ServiceUnavailable("Could not load annotation", err)
	}

	projectID, err := s.repository.ProjectIDForAnnotation(ctx, annotationID)
	if err != nil {
		return nil, errors.ServiceUnavailable("Could not resolve annotation", err)
	}

	if err := s.gate.CanMutate(ctx, projectID); err != nil {
		return nil, err
	}

	if !statusAllowed(annotation.Status, target) {
		return nil, errors.Conflict(
			fmt.Sprintf("Invalid status transition %s -> %s", annotation.Status, target),
			nil,
		)
	}

	annotation.Status = target
	if target == domain.AnnotationCompleted {
		now := time.Now().UTC()
		annotation.Resolved = true
		annotation.ResolvedAt = &now
		if actor.Name != "" {
			resolvedBy := actor.Name
			annotation.ResolvedBy = &resolvedBy
		}
	} else {
		annotation.Resolved = false
		annotation.ResolvedBy = nil
		annotation.ResolvedAt = nil
	}

	if err := s.repository.UpdateStatus(ctx, annotation); err != nil {
		return nil, errors.ServiceUnavailable("Could not store annotation status", err)
	}

	response := toAnnotationResponse(annotation)

	s.publisher.Publish(room.Event{
		Kind:      room.EventAnnotationStatusUpdated,
		ProjectID: projectID,
		Payload:   response,
	})
	s.bumpCacheVersion(ctx, projectID)

	return response, nil
}

func (s *DefaultService) DeleteAnnotation(ctx context.Context, annotationID uint64, actor domain.Author) error {
	annotation, err := s.repository.FindByID(ctx, annotationID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Annotation not found", err)
		}
		return errors.ServiceUnavailable("Could not load annotation", err)
	}

	// delete is scoped to the operator role and the annotation's creator
	if actor.Role != "operator" && actor.Name != annotation.AuthorName {
		return errors.Forbidden("Only the operator or the creator may delete an annotation", nil)
	}

	projectID, err := s.repository.ProjectIDForAnnotation(ctx, annotationID)
	if err != nil {
		return errors.ServiceUnavailable("Could not resolve annotation", err)
	}

	if err := s.gate.CanMutate(ctx, projectID); err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, annotationID); err != nil {
		return errors.ServiceUnavailable("Could not delete annotation", err)
	}

	s.publisher.Publish(room.Event{
		Kind:      room.EventAnnotationRemoved,
		ProjectID: projectID,
		Payload: RemovedPayload{
			ID:     annotationID,
			FileID: annotation.FileID,
		},
	})
	s.bumpCacheVersion(ctx, projectID)

	return nil
}

// RemovedPayload is the only event payload that is not a full entity: the
// entity no longer exists, so receivers drop it by ID.
type RemovedPayload struct {
	ID     uint64 `json:"id"`
	FileID uint64 `json:"file_id"`
}

func (s *DefaultService) ListByFile(ctx context.Context, fileID uint64) ([]AnnotationResponse, error) {
	if _, err := s.repository.FindFile(ctx, fileID); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("File not found", err)
		}
		return nil, errors.ServiceUnavailable("Could not load file", err)
	}

	annotations, err := s.repository.ListByFile(ctx, fileID)
	if err != nil {
		return nil, errors.ServiceUnavailable("Could not list annotations", err)
	}
	return toAnnotationResponses(annotations), nil
}

func (s *DefaultService) ListByProject(ctx context.Context, projectID uint64) ([]AnnotationResponse, error) {
	exists, err := s.repository.ProjectExists(ctx, projectID)
	if err != nil {
		return nil, errors.ServiceUnavailable("Could not load project", err)
	}
	if !exists {
		return nil, errors.NotFound("Project not found", nil)
	}

	versionKey := fmt.Sprintf("project:%d:annotations:version", projectID)
	v := s.cache.GetVersion(ctx, versionKey)
	cacheKey := fmt.Sprintf("annotations:p:%d:v:%d", projectID, v)

	var cached []AnnotationResponse
	found, _ := s.cache.Get(ctx, cacheKey, &cached)
	if found {
		return cached, nil
	}

	annotations, err := s.repository.ListByProject(ctx, projectID)
	if err != nil {
		return nil, errors.ServiceUnavailable("Could not list annotations", err)
	}

	result := toAnnotationResponses(annotations)

	if s.pool != nil {
		s.pool.Submit(func(ctx context.Context) error {
			return s.cache.Set(ctx, cacheKey, result, 24*time.Hour)
		})
	}

	return result, nil
}

// bumpCacheVersion invalidates cached listings synchronously so a resync
// issued right after the broadcast can never observe pre-mutation state.
func (s *DefaultService) bumpCacheVersion(ctx context.Context, projectID uint64) {
	versionKey := fmt.Sprintf("project:%d:annotations:version", projectID)
	s.cache.IncrementVersion(ctx, versionKey)
}

func toReplyResponse(reply *domain.Reply) *ReplyResponse {
	return &ReplyResponse{
		ID:           reply.ID,
		AnnotationID: reply.AnnotationID,
		Content:      reply.Content,
		Author:       reply.Author(),
		CreatedAt:    reply.CreatedAt,
	}
}

func toAnnotationResponse(annotation *domain.Annotation) *AnnotationResponse {
	response := &AnnotationResponse{
		ID:         annotation.ID,
		FileID:     annotation.FileID,
		Content:    annotation.Content,
		Author:     annotation.Author(),
		Status:     annotation.Status,
		IsResolved: annotation.Resolved,
		ResolvedBy: annotation.ResolvedBy,
		ResolvedAt: annotation.ResolvedAt,
		CreatedAt:  annotation.CreatedAt,
		Replies:    make([]ReplyResponse, 0, len(annotation.Replies)),
	}
	if annotation.HasPosition() {
		response.Position = &Position{X: *annotation.PosX, Y: *annotation.PosY}
	}
	for i := range annotation.Replies {
		response.Replies = append(response.Replies, *toReplyResponse(&annotation.Replies[i]))
	}
	return response
}

func toAnnotationResponses(annotations []domain.Annotation) []AnnotationResponse {
	responses := make([]AnnotationResponse, 0, len(annotations))
	for i := range annotations {
		responses = append(responses, *toAnnotationResponse(&annotations[i]))
	}
	return responses
}
