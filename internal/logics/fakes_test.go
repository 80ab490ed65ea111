package logics

import (
	"context"
	"io"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vision-server/internal/ai"
	"vision-server/internal/models"
	"vision-server/internal/repositories"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[primitive.ObjectID]*models.User)}
}

func (f *fakeUserStore) Insert(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserStore) find(id primitive.ObjectID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, err := f.find(id)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (f *fakeUserStore) FindByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(id)
}

func (f *fakeUserStore) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserStore) EmailInUse(ctx context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, user := range f.users {
		if user.Email == email && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if v, ok := set["name"]; ok {
		user.Name = v.(string)
	}
	if v, ok := set["email"]; ok {
		user.Email = v.(string)
	}
	if v, ok := set["role"]; ok {
		user.Role = v.(string)
	}
	if v, ok := set["isActive"]; ok {
		user.IsActive = v.(bool)
	}
	user.UpdatedAt = time.Now()
	copied := *user
	copied.Password = ""
	return &copied, nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = hash
	return nil
}

func (f *fakeUserStore) IncDetectionCount(ctx context.Context, id primitive.ObjectID, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.DetectionCount += delta
	return nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) List(ctx context.Context, filter models.ListUsersFilter) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, user := range f.users {
		copied := *user
		copied.Password = ""
		out = append(out, copied)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserStore) Stats(ctx context.Context) (*models.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.UserStats{}
	for _, user := range f.users {
		stats.TotalUsers++
		if user.IsActive {
			stats.ActiveUsers++
		}
		if user.IsAdmin() {
			stats.AdminUsers++
		}
	}
	return stats, nil
}

// fakeDetectionStore is an in-memory DetectionStore.
type fakeDetectionStore struct {
	mu         sync.Mutex
	detections map[primitive.ObjectID]*models.Detection
}

func newFakeDetectionStore() *fakeDetectionStore {
	return &fakeDetectionStore{detections: make(map[primitive.ObjectID]*models.Detection)}
}

func (f *fakeDetectionStore) Insert(ctx context.Context, detection *models.Detection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	detection.ID = primitive.NewObjectID()
	detection.Results.Recount()
	detection.CreatedAt = time.Now()
	detection.UpdatedAt = detection.CreatedAt
	copied := *detection
	f.detections[detection.ID] = &copied
	return nil
}

func (f *fakeDetectionStore) FindByID(ctx context.Context, id primitive.ObjectID, owner *primitive.ObjectID) (*models.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	detection, ok := f.detections[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if owner != nil && detection.User != *owner {
		return nil, repositories.ErrNotFound
	}
	copied := *detection
	return &copied, nil
}

func (f *fakeDetectionStore) FindByIDWithOwner(ctx context.Context, id primitive.ObjectID) (*models.Detection, error) {
	return f.FindByID(ctx, id, nil)
}

func (f *fakeDetectionStore) Complete(ctx context.Context, id primitive.ObjectID, results models.DetectionResults) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	detection, ok := f.detections[id]
	if !ok || detection.Status != models.StatusProcessing {
		return repositories.ErrNotFound
	}
	results.Recount()
	detection.Results = results
	detection.Status = models.StatusCompleted
	detection.UpdatedAt = time.Now()
	return nil
}

func (f *fakeDetectionStore) MarkFailed(ctx context.Context, id primitive.ObjectID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	detection, ok := f.detections[id]
	if !ok || detection.Status != models.StatusProcessing {
		return repositories.ErrNotFound
	}
	detection.Status = models.StatusFailed
	detection.ErrorMessage = message
	detection.UpdatedAt = time.Now()
	return nil
}

func (f *fakeDetectionStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.detections[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.detections, id)
	return nil
}

func (f *fakeDetectionStore) List(ctx context.Context, filter models.ListDetectionsFilter) ([]models.Detection, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Detection, 0, len(f.detections))
	for _, detection := range f.detections {
		if filter.User != nil && detection.User != *filter.User {
			continue
		}
		if filter.Status != "" && detection.Status != filter.Status {
			continue
		}
		out = append(out, *detection)
	}
	return out, int64(len(out)), nil
}

func (f *fakeDetectionStore) ListWithOwner(ctx context.Context, filter models.ListDetectionsFilter) ([]models.Detection, int64, error) {
	return f.List(ctx, filter)
}

func (f *fakeDetectionStore) ListByUser(ctx context.Context, user primitive.ObjectID) ([]models.Detection, error) {
	out, _, err := f.List(ctx, models.ListDetectionsFilter{User: &user})
	return out, err
}

func (f *fakeDetectionStore) DeleteByUser(ctx context.Context, user primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, detection := range f.detections {
		if detection.User == user {
			delete(f.detections, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeDetectionStore) Recent(ctx context.Context, user primitive.ObjectID, n int) ([]models.Detection, error) {
	out, _, err := f.List(ctx, models.ListDetectionsFilter{User: &user})
	if err != nil {
		return nil, err
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (f *fakeDetectionStore) UserStats(ctx context.Context, user primitive.ObjectID) (*models.DetectionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.DetectionStats{}
	for _, detection := range f.detections {
		if detection.User != user {
			continue
		}
		stats.TotalDetections++
		switch detection.Status {
		case models.StatusCompleted:
			stats.CompletedDetections++
		case models.StatusFailed:
			stats.FailedDetections++
		}
		stats.TotalFacesDetected += int64(len(detection.Results.Faces))
		stats.TotalBodyPartsDetected += int64(len(detection.Results.BodyParts))
	}
	return stats, nil
}

func (f *fakeDetectionStore) SystemStats(ctx context.Context) (*models.SystemDetectionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.SystemDetectionStats{}
	for _, detection := range f.detections {
		stats.TotalDetections++
		switch detection.Status {
		case models.StatusCompleted:
			stats.CompletedDetections++
		case models.StatusFailed:
			stats.FailedDetections++
		case models.StatusProcessing:
			stats.ProcessingDetections++
		}
	}
	return stats, nil
}

func (f *fakeDetectionStore) ActivitySince(ctx context.Context, since time.Time, user *primitive.ObjectID) ([]models.ActivityBucket, error) {
	return nil, nil
}

// fakeDetector returns canned results or a fixed error.
type fakeDetector struct {
	results        *models.DetectionResults
	realtimeResult *ai.RealtimeResult
	err            error
	calls          int
}

func (f *fakeDetector) Detect(ctx context.Context, req ai.DetectRequest) (*models.DetectionResults, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.results
	return &copied, nil
}

func (f *fakeDetector) DetectRealtime(ctx context.Context, imageData string, detectionType models.DetectionType) (*ai.RealtimeResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.realtimeResult, nil
}

// fakeFileStore records saves and deletes in memory.
type fakeFileStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	deletes []string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string][]byte)}
}

func (f *fakeFileStore) Save(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.files[key] = data
	return key, nil
}

func (f *fakeFileStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeFileStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[key]
	return ok, nil
}
