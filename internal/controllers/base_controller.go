package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vision-server/internal/middlewares"
	"vision-server/internal/models"
	"vision-server/internal/utils"
	"vision-server/pkg/apperrors"
)

// respondError maps a service error to its HTTP status and the uniform
// {"message": ...} body. Validation errors additionally carry the
// per-field breakdown.
func respondError(c echo.Context, err error) error {
	var validationErr *utils.ValidationError
	if apperrors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"message": "Validation failed",
			"errors":  validationErr.Errors,
		})
	}
	return c.JSON(apperrors.StatusOf(err), map[string]string{"message": apperrors.MessageOf(err)})
}

// currentUser returns the authenticated user attached by the Auth
// middleware. Routes using this are always registered behind it.
func currentUser(c echo.Context) (*models.User, error) {
	user, err := middlewares.GetUserFromContext(c)
	if err != nil {
		return nil, apperrors.Unauthenticated("Access denied. No token provided.")
	}
	return user, nil
}

// pathID parses the :id route parameter as an ObjectID.
func pathID(c echo.Context) (primitive.ObjectID, error) {
	return primitiveIDFromHex(c.Param("id"))
}

func primitiveIDFromHex(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperrors.InvalidArgument("Invalid ID format")
	}
	return id, nil
}
