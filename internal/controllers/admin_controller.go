package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vision-server/internal/logics"
	"vision-server/internal/models"
	"vision-server/internal/utils"
	"vision-server/pkg/apperrors"
)

// AdminController handles the admin panel: user management, the global
// detection view and system statistics. Every route is registered behind
// Auth and AdminOnly.
type AdminController struct {
	users      *logics.UserService
	detections *logics.DetectionService
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(users *logics.UserService, detections *logics.DetectionService) *AdminController {
	return &AdminController{users: users, detections: detections}
}

type adminUpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive *bool   `json:"isActive"`
}

// ListUsers returns a page of users with optional search and filters.
func (ac *AdminController) ListUsers(c echo.Context) error {
	filter := models.ListUsersFilter{
		Search:   c.QueryParam("search"),
		Role:     c.QueryParam("role"),
		IsActive: utils.ParseBool(c.QueryParam("isActive")),
		Page:     utils.Atoi(c.QueryParam("page"), 1),
		Limit:    utils.Atoi(c.QueryParam("limit"), 10),
	}

	users, pagination, err := ac.users.ListUsers(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users":      users,
		"pagination": pagination,
	})
}

// GetUser returns one user with their detection statistics.
func (ac *AdminController) GetUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	user, stats, err := ac.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":  user,
		"stats": stats,
	})
}

// UpdateUser applies an admin edit to a user account.
func (ac *AdminController) UpdateUser(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req adminUpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidArgument("Invalid request body"))
	}
	if req.Name != nil {
		sanitized := utils.SanitizeString(*req.Name)
		req.Name = &sanitized
	}
	if verr := utils.ValidateStruct(req); verr != nil {
		return respondError(c, verr)
	}

	user, err := ac.users.AdminUpdate(c.Request().Context(), actor.ID, id, models.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "User updated successfully",
		"user":    user,
	})
}

// DeleteUser removes a user account and everything it owns.
func (ac *AdminController) DeleteUser(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := ac.users.AdminDelete(c.Request().Context(), actor.ID, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// ListDetections returns a page of detections across all users, each
// with its owner attached.
func (ac *AdminController) ListDetections(c echo.Context) error {
	filter := detectionFilterFromQuery(c)
	if userParam := c.QueryParam("user"); userParam != "" {
		userID, err := primitiveIDFromHex(userParam)
		if err != nil {
			return respondError(c, err)
		}
		filter.User = &userID
	}

	detections, pagination, err := ac.detections.AdminList(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"detections": detections,
		"pagination": pagination,
	})
}

// GetDetection returns any detection record with its owner attached.
func (ac *AdminController) GetDetection(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	detection, err := ac.detections.AdminGet(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]*models.Detection{"detection": detection})
}

// DeleteDetection removes any detection record regardless of owner.
func (ac *AdminController) DeleteDetection(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := ac.detections.AdminDelete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Detection deleted successfully"})
}

// Stats returns global user and detection statistics with thirty days of
// activity.
func (ac *AdminController) Stats(c echo.Context) error {
	userStats, err := ac.users.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	detectionStats, activity, err := ac.detections.SystemStats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users":      userStats,
		"detections": detectionStats,
		"activity":   activity,
	})
}
