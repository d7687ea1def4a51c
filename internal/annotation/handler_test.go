package annotation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"design-review-server/internal/domain"
	"design-review-server/internal/errors"
	"design-review-server/internal/middleware"
)

// mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateAnnotation(ctx context.Context, input CreateAnnotationInput) (*AnnotationResponse, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AnnotationResponse), args.Error(1)
}

func (m *MockService) AddReply(ctx context.Context, annotationID uint64, input ReplyInput) (*ReplyResponse, error) {
	args := m.Called(ctx, annotationID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReplyResponse), args.Error(1)
}

func (m *MockService) SetStatus(ctx context.Context, annotationID uint64, rawStatus string, actor domain.Author) (*AnnotationResponse, error) {
	args := m.Called(ctx, annotationID, rawStatus, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AnnotationResponse), args.Error(1)
}

func (m *MockService) DeleteAnnotation(ctx context.Context, annotationID uint64, actor domain.Author) error {
	args := m.Called(ctx, annotationID, actor)
	return args.Error(0)
}

func (m *MockService) ListByFile(ctx context.Context, fileID uint64) ([]AnnotationResponse, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AnnotationResponse), args.Error(1)
}

func (m *MockService) ListByProject(ctx context.Context, projectID uint64) ([]AnnotationResponse, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AnnotationResponse), args.Error(1)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	return router
}

func TestCreateAnnotation_Success(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	mockService.On("CreateAnnotation", mock.Anything, mock.MatchedBy(func(input CreateAnnotationInput) bool {
		return input.FileID == 42 &&
			input.Content == "Fix logo color" &&
			input.Position != nil &&
			input.Position.X == 34.2 &&
			input.Position.Y == 56.7
	})).Return(&AnnotationResponse{
		ID:      1,
		FileID:  42,
		Content: "Fix logo color",
		Status:  domain.AnnotationPending,
	}, nil)

	router.POST("/annotations", handler.Create)

	payload := CreateAnnotationRequest{
		FileID:   42,
		Content:  "Fix logo color",
		Author:   &domain.Author{Role: "reviewer", Name: "Client"},
		Position: &Position{X: 34.2, Y: 56.7},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/annotations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var result AnnotationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, uint64(1), result.ID)
	assert.Equal(t, domain.AnnotationPending, result.Status)
	mockService.AssertExpectations(t)
}

func TestCreateAnnotation_MissingContent(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	router.POST("/annotations", handler.Create)

	body, _ := json.Marshal(gin.H{"fileId": 42})
	req := httptest.NewRequest("POST", "/annotations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// 422 for validation errors (missing content)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	mockService.AssertNotCalled(t, "CreateAnnotation")
}

func TestCreateAnnotation_FileNotFound(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	mockService.On("CreateAnnotation", mock.Anything, mock.Anything).
		Return(nil, errors.NotFound("File not found", nil))

	router.POST("/annotations", handler.Create)

	payload := CreateAnnotationRequest{FileID: 999, Content: "orphan"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/annotations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddReply_Success(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	mockService.On("AddReply", mock.Anything, uint64(7), mock.MatchedBy(func(input ReplyInput) bool {
		return input.Content == "Will fix"
	})).Return(&ReplyResponse{ID: 1, AnnotationID: 7, Content: "Will fix"}, nil)

	router.POST("/annotations/reply", handler.AddReply)

	payload := AddReplyRequest{AnnotationID: 7, Content: "Will fix"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/annotations/reply", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var result ReplyResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, uint64(7), result.AnnotationID)
	mockService.AssertExpectations(t)
}

func TestAddReply_Locked(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	mockService.On("AddReply", mock.Anything, uint64(7), mock.Anything).
		Return(nil, errors.Conflict("Annotation is completed; replies are locked", nil))

	router.POST("/annotations/reply", handler.AddReply)

	payload := AddReplyRequest{AnnotationID: 7, Content: "too late"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/annotations/reply", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetStatus_Success(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	resolvedBy := "Admin"
	mockService.On("SetStatus", mock.Anything, uint64(7), "COMPLETED", mock.Anything).
		Return(&AnnotationResponse{
			ID:         7,
			Status:     domain.AnnotationCompleted,
			IsResolved: true,
			ResolvedBy: &resolvedBy,
		}, nil)

	router.PUT("/annotations/status", handler.SetStatus)

	payload := SetStatusRequest{AnnotationID: 7, Status: "COMPLETED"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("PUT", "/annotations/status", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result AnnotationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.IsResolved)
	mockService.AssertExpectations(t)
}

func TestList_ByProject(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	mockService.On("ListByProject", mock.Anything, uint64(1)).Return([]AnnotationResponse{
		{ID: 1, FileID: 42, Content: "first"},
		{ID: 2, FileID: 42, Content: "second"},
	}, nil)

	router.GET("/annotations", handler.List)

	req := httptest.NewRequest("GET", "/annotations?projectId=1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result []AnnotationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result, 2)
	assert.Equal(t, uint64(1), result[0].ID)
	mockService.AssertExpectations(t)
}

func TestList_MissingQuery(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	router.GET("/annotations", handler.List)

	req := httptest.NewRequest("GET", "/annotations", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
