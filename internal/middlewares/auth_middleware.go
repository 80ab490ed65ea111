package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vision-server/internal/auth"
	"vision-server/internal/models"
	"vision-server/internal/repositories"
)

const userKey = "user"

// UserResolver resolves a token subject to an account. Reads through it
// never include the password hash.
type UserResolver interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Auth extracts the Bearer token from the Authorization header, verifies
// it, resolves the subject to an active user and attaches the user to
// the request context. Failures are reported with distinct messages so
// the frontend can tell a stale session from a deactivated account.
func Auth(manager *auth.Manager, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Access denied. No token provided."})
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid token."})
			}

			claims, err := manager.Verify(parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrExpired) {
					return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Token expired. Please login again."})
				}
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid token."})
			}

			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid token."})
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid token. User not found."})
				}
				return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error during authentication."})
			}

			if !user.IsActive {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Account is deactivated. Please contact administrator."})
			}

			c.Set(userKey, user)
			return next(c)
		}
	}
}

// GetUserFromContext returns the user attached by the Auth middleware.
func GetUserFromContext(c echo.Context) (*models.User, error) {
	value := c.Get(userKey)
	if value == nil {
		return nil, errors.New("user not found in context")
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, errors.New("user has invalid type in context")
	}
	return user, nil
}
