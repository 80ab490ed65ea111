package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"vision-server/internal/config"
)

// Sentinel errors shared by the repositories. Services translate these
// into caller-facing errors.
var (
	ErrNotFound       = errors.New("document not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repositories bundles the data access layer around one database handle.
type Repositories struct {
	Users      *UserRepository
	Detections *DetectionRepository
}

// Connect establishes the MongoDB connection and pings it to verify.
func Connect(ctx context.Context, cfg config.Mongo, log *zap.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	if cfg.Username != "" {
		clientOptions = clientOptions.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Info("MongoDB connected successfully")
	return client, nil
}

// New wires the repositories onto the given database.
func New(db *mongo.Database) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(db),
		Detections: NewDetectionRepository(db),
	}
}

// EnsureIndexes creates the indexes both collections rely on.
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	if err := r.Users.EnsureIndexes(ctx); err != nil {
		return err
	}
	return r.Detections.EnsureIndexes(ctx)
}
