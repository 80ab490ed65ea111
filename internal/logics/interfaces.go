package logics

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vision-server/internal/ai"
	"vision-server/internal/models"
)

// UserStore is the slice of the user repository the services depend on.
type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	EmailInUse(ctx context.Context, email string, exclude primitive.ObjectID) (bool, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	IncDetectionCount(ctx context.Context, id primitive.ObjectID, delta int64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter models.ListUsersFilter) ([]models.User, int64, error)
	Stats(ctx context.Context) (*models.UserStats, error)
}

// DetectionStore is the slice of the detection repository the services
// depend on.
type DetectionStore interface {
	Insert(ctx context.Context, detection *models.Detection) error
	FindByID(ctx context.Context, id primitive.ObjectID, owner *primitive.ObjectID) (*models.Detection, error)
	FindByIDWithOwner(ctx context.Context, id primitive.ObjectID) (*models.Detection, error)
	Complete(ctx context.Context, id primitive.ObjectID, results models.DetectionResults) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, message string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter models.ListDetectionsFilter) ([]models.Detection, int64, error)
	ListWithOwner(ctx context.Context, filter models.ListDetectionsFilter) ([]models.Detection, int64, error)
	ListByUser(ctx context.Context, user primitive.ObjectID) ([]models.Detection, error)
	DeleteByUser(ctx context.Context, user primitive.ObjectID) (int64, error)
	Recent(ctx context.Context, user primitive.ObjectID, n int) ([]models.Detection, error)
	UserStats(ctx context.Context, user primitive.ObjectID) (*models.DetectionStats, error)
	SystemStats(ctx context.Context) (*models.SystemDetectionStats, error)
	ActivitySince(ctx context.Context, since time.Time, user *primitive.ObjectID) ([]models.ActivityBucket, error)
}

// Detector is the outbound boundary to the AI service.
type Detector interface {
	Detect(ctx context.Context, req ai.DetectRequest) (*models.DetectionResults, error)
	DetectRealtime(ctx context.Context, imageData string, detectionType models.DetectionType) (*ai.RealtimeResult, error)
}
