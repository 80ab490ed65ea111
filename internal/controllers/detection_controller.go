package controllers

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"vision-server/internal/logics"
	"vision-server/internal/models"
	"vision-server/internal/utils"
	"vision-server/pkg/apperrors"
)

// maxUploadSize caps a single media file at 50MB, matching the server
// body limit.
const maxUploadSize = 50 << 20

// DetectionController handles the upload and realtime detection flows
// and the user's own detection records.
type DetectionController struct {
	detections *logics.DetectionService
}

// NewDetectionController creates a new DetectionController instance.
func NewDetectionController(detections *logics.DetectionService) *DetectionController {
	return &DetectionController{detections: detections}
}

type uploadRequest struct {
	DetectionType string `json:"detectionType" validate:"required,oneof=face body both"`
}

type realtimeRequest struct {
	ImageData     string `json:"imageData" validate:"required"`
	DetectionType string `json:"detectionType" validate:"required,oneof=face body both objects"`
}

// Upload accepts a multipart media file, relays it to the AI service and
// returns the persisted record. A failed relay still leaves a failed
// record behind and reports it in the error body.
func (dc *DetectionController) Upload(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	req := uploadRequest{DetectionType: c.FormValue("detectionType")}
	if verr := utils.ValidateStruct(req); verr != nil {
		return respondError(c, verr)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, apperrors.InvalidArgument("No file uploaded"))
	}
	if fileHeader.Size > maxUploadSize {
		return respondError(c, apperrors.InvalidArgument("File too large. Maximum size is 50MB."))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, apperrors.Internal("Server error reading file", err))
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return respondError(c, apperrors.Internal("Server error reading file", err))
	}

	detection, err := dc.detections.Upload(c.Request().Context(), user.ID, logics.UploadInput{
		FileName:      fileHeader.Filename,
		MimeType:      fileHeader.Header.Get("Content-Type"),
		Size:          fileHeader.Size,
		Content:       content,
		DetectionType: models.DetectionType(req.DetectionType),
	})
	if err != nil {
		var failed *logics.UploadFailedError
		if apperrors.As(err, &failed) {
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"message": "AI processing failed",
				"detection": map[string]interface{}{
					"id":           failed.Detection.ID,
					"status":       failed.Detection.Status,
					"errorMessage": failed.Detection.ErrorMessage,
				},
			})
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Detection completed successfully",
		"detection": detection,
	})
}

// Realtime relays a single inline frame and passes the AI results back
// with a relay timestamp.
func (dc *DetectionController) Realtime(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return respondError(c, err)
	}

	var req realtimeRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidArgument("Invalid request body"))
	}
	if verr := utils.ValidateStruct(req); verr != nil {
		return respondError(c, verr)
	}

	result, err := dc.detections.Realtime(c.Request().Context(), req.ImageData, models.DetectionType(req.DetectionType))
	if err != nil {
		var appErr *apperrors.AppError
		if apperrors.As(err, &appErr) && appErr.Code() == apperrors.ErrUpstream {
			// Relay failures carry the upstream cause so the frontend can
			// show what the AI service reported.
			body := map[string]string{"message": appErr.Message()}
			if cause := appErr.Unwrap(); cause != nil {
				body["error"] = cause.Error()
			}
			return c.JSON(http.StatusInternalServerError, body)
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":           "Realtime detection completed",
		"success":           result.Success,
		"backend_processed": true,
		"backend_timestamp": time.Now().UTC().Format(time.RFC3339),
		"results":           result.Results,
	})
}

// History returns a page of the user's own detection records.
func (dc *DetectionController) History(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	filter := detectionFilterFromQuery(c)
	detections, pagination, err := dc.detections.History(c.Request().Context(), user.ID, filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"detections": detections,
		"pagination": pagination,
	})
}

// Get returns one of the user's own detection records.
func (dc *DetectionController) Get(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	detection, err := dc.detections.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]*models.Detection{"detection": detection})
}

// Delete removes one of the user's own detection records.
func (dc *DetectionController) Delete(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := dc.detections.Delete(c.Request().Context(), user.ID, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Detection deleted successfully"})
}

// StatsSummary returns the user's detection statistics.
func (dc *DetectionController) StatsSummary(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	stats, err := dc.detections.StatsSummary(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]*models.DetectionStats{"stats": stats})
}

// Dashboard returns recent records, statistics and seven days of
// activity for the user's dashboard.
func (dc *DetectionController) Dashboard(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	dashboard, err := dc.detections.GetDashboard(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dashboard)
}

func detectionFilterFromQuery(c echo.Context) models.ListDetectionsFilter {
	return models.ListDetectionsFilter{
		Status:        c.QueryParam("status"),
		DetectionType: c.QueryParam("detectionType"),
		FileType:      c.QueryParam("fileType"),
		Page:          utils.Atoi(c.QueryParam("page"), 1),
		Limit:         utils.Atoi(c.QueryParam("limit"), 10),
	}
}
