package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vision-server/internal/ai"
	"vision-server/internal/logics"
	"vision-server/internal/models"
	"vision-server/internal/repositories"
)

// Inert stubs backing the detection service; the tests below exercise
// request handling that must resolve before any store is touched.

type stubUserStore struct{}

func (stubUserStore) Insert(ctx context.Context, user *models.User) error { return nil }
func (stubUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return nil, repositories.ErrNotFound
}
func (stubUserStore) FindByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return nil, repositories.ErrNotFound
}
func (stubUserStore) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}
func (stubUserStore) EmailInUse(ctx context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	return false, nil
}
func (stubUserStore) UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	return nil, repositories.ErrNotFound
}
func (stubUserStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return nil
}
func (stubUserStore) IncDetectionCount(ctx context.Context, id primitive.ObjectID, delta int64) error {
	return nil
}
func (stubUserStore) Delete(ctx context.Context, id primitive.ObjectID) error { return nil }
func (stubUserStore) List(ctx context.Context, filter models.ListUsersFilter) ([]models.User, int64, error) {
	return nil, 0, nil
}
func (stubUserStore) Stats(ctx context.Context) (*models.UserStats, error) {
	return &models.UserStats{}, nil
}

type stubDetectionStore struct {
	inserts int
}

func (s *stubDetectionStore) Insert(ctx context.Context, detection *models.Detection) error {
	s.inserts++
	detection.ID = primitive.NewObjectID()
	return nil
}
func (s *stubDetectionStore) FindByID(ctx context.Context, id primitive.ObjectID, owner *primitive.ObjectID) (*models.Detection, error) {
	return nil, repositories.ErrNotFound
}
func (s *stubDetectionStore) FindByIDWithOwner(ctx context.Context, id primitive.ObjectID) (*models.Detection, error) {
	return nil, repositories.ErrNotFound
}
func (s *stubDetectionStore) Complete(ctx context.Context, id primitive.ObjectID, results models.DetectionResults) error {
	return nil
}
func (s *stubDetectionStore) MarkFailed(ctx context.Context, id primitive.ObjectID, message string) error {
	return nil
}
func (s *stubDetectionStore) Delete(ctx context.Context, id primitive.ObjectID) error { return nil }
func (s *stubDetectionStore) List(ctx context.Context, filter models.ListDetectionsFilter) ([]models.Detection, int64, error) {
	return nil, 0, nil
}
func (s *stubDetectionStore) ListWithOwner(ctx context.Context, filter models.ListDetectionsFilter) ([]models.Detection, int64, error) {
	return nil, 0, nil
}
func (s *stubDetectionStore) ListByUser(ctx context.Context, user primitive.ObjectID) ([]models.Detection, error) {
	return nil, nil
}
func (s *stubDetectionStore) DeleteByUser(ctx context.Context, user primitive.ObjectID) (int64, error) {
	return 0, nil
}
func (s *stubDetectionStore) Recent(ctx context.Context, user primitive.ObjectID, n int) ([]models.Detection, error) {
	return nil, nil
}
func (s *stubDetectionStore) UserStats(ctx context.Context, user primitive.ObjectID) (*models.DetectionStats, error) {
	return &models.DetectionStats{}, nil
}
func (s *stubDetectionStore) SystemStats(ctx context.Context) (*models.SystemDetectionStats, error) {
	return &models.SystemDetectionStats{}, nil
}
func (s *stubDetectionStore) ActivitySince(ctx context.Context, since time.Time, user *primitive.ObjectID) ([]models.ActivityBucket, error) {
	return nil, nil
}

type stubDetector struct {
	calls int
	err   error
}

func (d *stubDetector) Detect(ctx context.Context, req ai.DetectRequest) (*models.DetectionResults, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return &models.DetectionResults{}, nil
}
func (d *stubDetector) DetectRealtime(ctx context.Context, imageData string, detectionType models.DetectionType) (*ai.RealtimeResult, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return &ai.RealtimeResult{Success: true, Results: json.RawMessage(`{}`)}, nil
}

type stubFiles struct{}

func (stubFiles) Save(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	return key, nil
}
func (stubFiles) Delete(ctx context.Context, key string) error { return nil }
func (stubFiles) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func newDetectionTestController(detector *stubDetector) (*DetectionController, *stubDetectionStore) {
	store := &stubDetectionStore{}
	service := logics.NewDetectionService(store, stubUserStore{}, stubFiles{}, detector, zap.NewNop())
	return NewDetectionController(service), store
}

func multipartUpload(t *testing.T, detectionType string, withType bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-jpeg"))
	require.NoError(t, err)
	if withType {
		require.NoError(t, writer.WriteField("detectionType", detectionType))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func uploadContext(t *testing.T, body *bytes.Buffer, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/detection/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser, IsActive: true})
	return c, rec
}

func TestUploadMissingDetectionTypeRejected(t *testing.T) {
	detector := &stubDetector{}
	controller, store := newDetectionTestController(detector)

	body, contentType := multipartUpload(t, "", false)
	c, rec := uploadContext(t, body, contentType)

	require.NoError(t, controller.Upload(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Message string `json:"message"`
		Errors  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Validation failed", resp.Message)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "detectionType", resp.Errors[0].Field)

	// Nothing was created and the AI service was never contacted.
	assert.Equal(t, 0, store.inserts)
	assert.Equal(t, 0, detector.calls)
}

func TestUploadRejectsObjectsKind(t *testing.T) {
	detector := &stubDetector{}
	controller, store := newDetectionTestController(detector)

	body, contentType := multipartUpload(t, "objects", true)
	c, rec := uploadContext(t, body, contentType)

	require.NoError(t, controller.Upload(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Validation failed")
	assert.Equal(t, 0, store.inserts)
	assert.Equal(t, 0, detector.calls)
}

func TestRealtimeFailureCarriesUpstreamError(t *testing.T) {
	detector := &stubDetector{err: errors.New("model crashed")}
	controller, _ := newDetectionTestController(detector)

	e := echo.New()
	payload := `{"imageData": "data:image/jpeg;base64,abc", "detectionType": "face"}`
	req := httptest.NewRequest(http.MethodPost, "/api/detection/realtime", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser, IsActive: true})

	require.NoError(t, controller.Realtime(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Realtime detection failed", resp["message"])
	assert.Contains(t, resp["error"], "model crashed")
}
