package config

import (
	"time"

	"vision-server/pkg/apperrors"
	"vision-server/pkg/config"
)

// Config defines the structure for all configuration settings. It is
// constructed once at process start and handed to the components that
// need it; nothing reads configuration ambiently after that.
type Config struct {
	Service Service
	Server  Server
	Mongo   Mongo
	JWT     JWT
	AI      AI
	Storage Storage
	Log     Log
	Cors    Cors
}

// Service holds configuration for the service itself.
type Service struct {
	Name    string
	Version string
}

// Server holds configuration for the HTTP server.
type Server struct {
	Port  string
	Debug bool
	// BodyLimit caps request bodies, echo syntax (e.g. "50M").
	BodyLimit string
}

// Mongo holds configuration for the MongoDB connection.
type Mongo struct {
	URI      string
	Database string
	Username string
	Password string
}

// JWT holds configuration for bearer token signing.
type JWT struct {
	Secret    string
	ExpiresIn time.Duration
}

// AI holds configuration for the external detection service.
type AI struct {
	ServiceURL string
	// UploadTimeout bounds the wait on /api/detect. Video processing is
	// slow, so this is on the order of minutes.
	UploadTimeout time.Duration
	// RealtimeTimeout bounds the wait on /api/detect-realtime.
	RealtimeTimeout time.Duration
}

// Storage holds configuration for the backing file store.
type Storage struct {
	// Driver selects the backend: "local" or "s3".
	Driver string
	// LocalDir is the uploads directory for the local driver.
	LocalDir string
	S3       S3
}

// S3 holds configuration for the S3 backend.
type S3 struct {
	Region     string
	BucketName string
	AccessKey  string
	SecretKey  string
}

// Log holds configuration for logging.
type Log struct {
	Level    string
	Format   string
	Output   string
	FilePath string
}

// Cors holds configuration for CORS settings.
type Cors struct {
	AllowedOrigins []string
}

// Load reads the "vision" config file and materializes the typed config.
func Load() (*Config, error) {
	cfg, err := config.Load("vision")
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load configuration")
	}

	appConfig := &Config{}

	// Service
	appConfig.Service.Name = cfg.GetString("service.name")
	appConfig.Service.Version = cfg.GetString("service.version")

	// Server
	appConfig.Server.Port = cfg.GetString("server.port")
	appConfig.Server.Debug = cfg.GetBool("server.debug")
	appConfig.Server.BodyLimit = cfg.GetString("server.body_limit")
	if appConfig.Server.BodyLimit == "" {
		appConfig.Server.BodyLimit = "50M"
	}

	// Mongo
	appConfig.Mongo.URI = cfg.GetString("mongo.uri")
	appConfig.Mongo.Database = cfg.GetString("mongo.database")
	appConfig.Mongo.Username = cfg.GetString("mongo.username")
	appConfig.Mongo.Password = cfg.GetString("mongo.password")

	// JWT
	appConfig.JWT.Secret = cfg.GetString("jwt.secret")
	appConfig.JWT.ExpiresIn = durationOrDefault(cfg.GetString("jwt.expires_in"), 7*24*time.Hour)

	// AI service
	appConfig.AI.ServiceURL = cfg.GetString("ai.service_url")
	appConfig.AI.UploadTimeout = durationOrDefault(cfg.GetString("ai.upload_timeout"), 5*time.Minute)
	appConfig.AI.RealtimeTimeout = durationOrDefault(cfg.GetString("ai.realtime_timeout"), 30*time.Second)

	// Storage
	appConfig.Storage.Driver = cfg.GetString("storage.driver")
	if appConfig.Storage.Driver == "" {
		appConfig.Storage.Driver = "local"
	}
	appConfig.Storage.LocalDir = cfg.GetString("storage.local_dir")
	if appConfig.Storage.LocalDir == "" {
		appConfig.Storage.LocalDir = "uploads"
	}
	appConfig.Storage.S3.Region = cfg.GetString("storage.s3.region")
	appConfig.Storage.S3.BucketName = cfg.GetString("storage.s3.bucket_name")
	appConfig.Storage.S3.AccessKey = cfg.GetString("storage.s3.access_key")
	appConfig.Storage.S3.SecretKey = cfg.GetString("storage.s3.secret_key")

	// Log
	appConfig.Log.Level = cfg.GetString("log.level")
	appConfig.Log.Format = cfg.GetString("log.format")
	appConfig.Log.Output = cfg.GetString("log.output")
	appConfig.Log.FilePath = cfg.GetString("log.file_path")

	// Cors
	appConfig.Cors.AllowedOrigins = cfg.GetStringSlice("cors.allowed_origins")

	return appConfig, nil
}

func durationOrDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
