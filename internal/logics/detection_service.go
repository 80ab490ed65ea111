package logics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vision-server/internal/ai"
	"vision-server/internal/models"
	"vision-server/internal/repositories"
	"vision-server/internal/storage"
	"vision-server/pkg/apperrors"
)

// DetectionService drives the upload and realtime detection flows and
// the read surface over stored detection records.
type DetectionService struct {
	detections DetectionStore
	users      UserStore
	files      storage.Store
	detector   Detector
	log        *zap.Logger
}

// NewDetectionService creates a new DetectionService instance.
func NewDetectionService(detections DetectionStore, users UserStore, files storage.Store, detector Detector, log *zap.Logger) *DetectionService {
	return &DetectionService{
		detections: detections,
		users:      users,
		files:      files,
		detector:   detector,
		log:        log,
	}
}

// UploadInput is a received media file plus the requested analysis.
type UploadInput struct {
	FileName      string
	MimeType      string
	Size          int64
	Content       []byte
	DetectionType models.DetectionType
}

// UploadFailedError is returned when the AI service rejects or fails an
// upload. The record survives in failed status so the caller can show
// what went wrong.
type UploadFailedError struct {
	Detection *models.Detection
	Err       error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("detection processing failed: %v", e.Err)
}

func (e *UploadFailedError) Unwrap() error { return e.Err }

// Upload stores the file, creates a processing record, forwards the file
// to the AI service and persists the outcome. On AI failure the record
// is kept in failed status and an UploadFailedError is returned.
func (s *DetectionService) Upload(ctx context.Context, user primitive.ObjectID, in UploadInput) (*models.Detection, error) {
	if !in.DetectionType.ValidForUpload() {
		return nil, apperrors.InvalidArgument("Invalid detection type. Must be face, body, or both")
	}

	fileType, err := classifyFile(in.MimeType)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("detections/%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(in.FileName)))
	if _, err := s.files.Save(ctx, key, bytes.NewReader(in.Content), in.MimeType); err != nil {
		return nil, apperrors.Internal("Server error storing file", err)
	}

	detection := &models.Detection{
		User:             user,
		OriginalFileName: in.FileName,
		FilePath:         key,
		FileType:         fileType,
		MimeType:         in.MimeType,
		FileSize:         in.Size,
		DetectionType:    in.DetectionType,
		Status:           models.StatusProcessing,
	}
	if err := s.detections.Insert(ctx, detection); err != nil {
		return nil, apperrors.Internal("Server error creating detection record", err)
	}

	results, err := s.detector.Detect(ctx, ai.DetectRequest{
		FileName:      in.FileName,
		MimeType:      in.MimeType,
		Content:       in.Content,
		DetectionType: in.DetectionType,
		DetectionID:   detection.ID.Hex(),
	})
	if err != nil {
		s.log.Error("AI detection failed",
			zap.String("detection_id", detection.ID.Hex()),
			zap.Error(err),
		)
		if markErr := s.detections.MarkFailed(ctx, detection.ID, err.Error()); markErr != nil {
			s.log.Error("failed to mark detection as failed",
				zap.String("detection_id", detection.ID.Hex()),
				zap.Error(markErr),
			)
		}
		detection.Status = models.StatusFailed
		detection.ErrorMessage = err.Error()
		return nil, &UploadFailedError{Detection: detection, Err: err}
	}

	if err := s.detections.Complete(ctx, detection.ID, *results); err != nil {
		return nil, apperrors.Internal("Server error saving detection results", err)
	}
	if err := s.users.IncDetectionCount(ctx, user, 1); err != nil {
		s.log.Warn("failed to increment detection count",
			zap.String("user_id", user.Hex()),
			zap.Error(err),
		)
	}

	results.Recount()
	detection.Results = *results
	detection.Status = models.StatusCompleted
	return detection, nil
}

// Realtime forwards a single inline frame to the AI service and relays
// the results without persisting anything.
func (s *DetectionService) Realtime(ctx context.Context, imageData string, detectionType models.DetectionType) (*ai.RealtimeResult, error) {
	if !detectionType.ValidForRealtime() {
		return nil, apperrors.InvalidArgument("Invalid detection type. Must be face, body, both, or objects")
	}

	result, err := s.detector.DetectRealtime(ctx, imageData, detectionType)
	if err != nil {
		s.log.Error("realtime detection failed", zap.Error(err))
		return nil, apperrors.Upstream("Realtime detection failed", err)
	}
	return result, nil
}

// History returns a page of the user's own detection records.
func (s *DetectionService) History(ctx context.Context, user primitive.ObjectID, filter models.ListDetectionsFilter) ([]models.Detection, models.Pagination, error) {
	filter.User = &user
	detections, total, err := s.detections.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, apperrors.Internal("Server error retrieving detections", err)
	}
	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	return detections, models.NewPagination(page, limit, total), nil
}

// Get returns one of the user's own detection records.
func (s *DetectionService) Get(ctx context.Context, user primitive.ObjectID, id primitive.ObjectID) (*models.Detection, error) {
	detection, err := s.detections.FindByID(ctx, id, &user)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Detection not found")
		}
		return nil, apperrors.Internal("Server error retrieving detection", err)
	}
	return detection, nil
}

// Delete removes one of the user's own records: the backing file first,
// then the record, then the owner's counter. A missing backing file is
// tolerated.
func (s *DetectionService) Delete(ctx context.Context, user primitive.ObjectID, id primitive.ObjectID) error {
	detection, err := s.detections.FindByID(ctx, id, &user)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Detection not found")
		}
		return apperrors.Internal("Server error deleting detection", err)
	}

	return s.deleteDetection(ctx, detection)
}

func (s *DetectionService) deleteDetection(ctx context.Context, detection *models.Detection) error {
	if detection.FilePath != "" {
		if err := s.files.Delete(ctx, detection.FilePath); err != nil {
			s.log.Warn("failed to delete detection file",
				zap.String("detection_id", detection.ID.Hex()),
				zap.Error(err),
			)
		}
	}

	if err := s.detections.Delete(ctx, detection.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Detection not found")
		}
		return apperrors.Internal("Server error deleting detection", err)
	}

	if err := s.users.IncDetectionCount(ctx, detection.User, -1); err != nil {
		s.log.Warn("failed to decrement detection count",
			zap.String("user_id", detection.User.Hex()),
			zap.Error(err),
		)
	}
	return nil
}

// StatsSummary returns the user's detection statistics.
func (s *DetectionService) StatsSummary(ctx context.Context, user primitive.ObjectID) (*models.DetectionStats, error) {
	stats, err := s.detections.UserStats(ctx, user)
	if err != nil {
		return nil, apperrors.Internal("Server error retrieving statistics", err)
	}
	return stats, nil
}

// Dashboard bundles the user's recent records, statistics and last seven
// days of activity for the dashboard view.
type Dashboard struct {
	Recent   []models.Detection      `json:"recentDetections"`
	Stats    *models.DetectionStats  `json:"stats"`
	Activity []models.ActivityBucket `json:"activity"`
}

// GetDashboard assembles the dashboard for one user.
func (s *DetectionService) GetDashboard(ctx context.Context, user primitive.ObjectID) (*Dashboard, error) {
	recent, err := s.detections.Recent(ctx, user, 5)
	if err != nil {
		return nil, apperrors.Internal("Server error retrieving dashboard", err)
	}
	stats, err := s.detections.UserStats(ctx, user)
	if err != nil {
		return nil, apperrors.Internal("Server error retrieving dashboard", err)
	}
	since := time.Now().AddDate(0, 0, -7)
	activity, err := s.detections.ActivitySince(ctx, since, &user)
	if err != nil {
		return nil, apperrors.Internal("Server error retrieving dashboard", err)
	}
	return &Dashboard{Recent: recent, Stats: stats, Activity: activity}, nil
}

// AdminList returns a page of detections across all users, with owner
// name and email attached.
func (s *DetectionService) AdminList(ctx context.Context, filter models.ListDetectionsFilter) ([]models.Detection, models.Pagination, error) {
	detections, total, err := s.detections.ListWithOwner(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, apperrors.Internal("Server error retrieving detections", err)
	}
	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	return detections, models.NewPagination(page, limit, total), nil
}

// AdminGet returns any detection record with its owner attached.
func (s *DetectionService) AdminGet(ctx context.Context, id primitive.ObjectID) (*models.Detection, error) {
	detection, err := s.detections.FindByIDWithOwner(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Detection not found")
		}
		return nil, apperrors.Internal("Server error retrieving detection", err)
	}
	return detection, nil
}

// AdminDelete removes any detection record regardless of owner.
func (s *DetectionService) AdminDelete(ctx context.Context, id primitive.ObjectID) error {
	detection, err := s.detections.FindByID(ctx, id, nil)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Detection not found")
		}
		return apperrors.Internal("Server error deleting detection", err)
	}
	return s.deleteDetection(ctx, detection)
}

// SystemStats returns global detection counts plus the last thirty days
// of activity for the admin panel.
func (s *DetectionService) SystemStats(ctx context.Context) (*models.SystemDetectionStats, []models.ActivityBucket, error) {
	stats, err := s.detections.SystemStats(ctx)
	if err != nil {
		return nil, nil, apperrors.Internal("Server error retrieving statistics", err)
	}
	since := time.Now().AddDate(0, 0, -30)
	activity, err := s.detections.ActivitySince(ctx, since, nil)
	if err != nil {
		return nil, nil, apperrors.Internal("Server error retrieving statistics", err)
	}
	return stats, activity, nil
}

// classifyFile maps the upload MIME type to a stored file kind.
func classifyFile(mimeType string) (string, error) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.FileTypeImage, nil
	case strings.HasPrefix(mimeType, "video/"):
		return models.FileTypeVideo, nil
	}
	return "", apperrors.InvalidArgument("Only image and video files are allowed")
}
