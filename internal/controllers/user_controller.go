package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vision-server/internal/logics"
	"vision-server/internal/utils"
	"vision-server/pkg/apperrors"
)

// UserController handles the authenticated user's own account surface.
type UserController struct {
	users *logics.UserService
}

// NewUserController creates a new UserController instance.
func NewUserController(users *logics.UserService) *UserController {
	return &UserController{users: users}
}

type updateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,password"`
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// Profile returns the user's own account with detection statistics.
func (uc *UserController) Profile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	profile, stats, err := uc.users.GetProfile(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":  profile,
		"stats": stats,
	})
}

// UpdateProfile changes the user's own name and/or email.
func (uc *UserController) UpdateProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req updateProfileRequest
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

	updated, err := uc.users.UpdateProfile(c.Request().Context(), user.ID, req.Name, req.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    updated,
	})
}

// ChangePassword replaces the user's password after verifying the
// current one.
func (uc *UserController) ChangePassword(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidArgument("Invalid request body"))
	}
	if verr := utils.ValidateStruct(req); verr != nil {
		return respondError(c, verr)
	}

	if err := uc.users.ChangePassword(c.Request().Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// DeleteAccount removes the user's own account and everything it owns.
func (uc *UserController) DeleteAccount(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req deleteAccountRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidArgument("Invalid request body"))
	}
	if verr := utils.ValidateStruct(req); verr != nil {
		return respondError(c, verr)
	}

	if err := uc.users.DeleteAccount(c.Request().Context(), user.ID, req.Password); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}
