package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vision-server/internal/auth"
	"vision-server/internal/logics"
	"vision-server/internal/models"
	"vision-server/internal/utils"
	"vision-server/pkg/apperrors"
)

// AuthController handles registration, login and the session probe.
type AuthController struct {
	users  *logics.UserService
	tokens *auth.Manager
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users *logics.UserService, tokens *auth.Manager) *AuthController {
	return &AuthController{users: users, tokens: tokens}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account and returns it with a fresh token.
func (ac *AuthController) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidArgument("Invalid request body"))
	}
	req.Name = utils.SanitizeString(req.Name)
	if verr := utils.ValidateStruct(req); verr != nil {
		return respondError(c, verr)
	}

	user, err := ac.users.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := ac.tokens.Generate(user.ID.Hex())
	if err != nil {
		return respondError(c, apperrors.Internal("Server error during registration", err))
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

// Login verifies credentials and returns the user with a fresh token.
func (ac *AuthController) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidArgument("Invalid request body"))
	}
	if verr := utils.ValidateStruct(req); verr != nil {
		return respondError(c, verr)
	}

	user, err := ac.users.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := ac.tokens.Generate(user.ID.Hex())
	if err != nil {
		return respondError(c, apperrors.Internal("Server error during login", err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// Me returns the authenticated user, letting the frontend validate a
// stored token on startup.
func (ac *AuthController) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]*models.User{"user": user})
}
