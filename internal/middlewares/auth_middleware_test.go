package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vision-server/internal/auth"
	"vision-server/internal/models"
	"vision-server/internal/repositories"
)

type stubResolver struct {
	users map[primitive.ObjectID]*models.User
}

func (s *stubResolver) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

func runAuth(t *testing.T, manager *auth.Manager, resolver UserResolver, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := Auth(manager, resolver)(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, reached
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["message"]
}

func TestAuthNoToken(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	rec, reached := runAuth(t, manager, &stubResolver{}, "")
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", messageOf(t, rec))
}

func TestAuthMalformedHeader(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	rec, reached := runAuth(t, manager, &stubResolver{}, "Token abc")
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token.", messageOf(t, rec))
}

func TestAuthExpiredToken(t *testing.T) {
	expired := auth.NewManager("secret", -time.Minute)
	token, err := expired.Generate(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	manager := auth.NewManager("secret", time.Hour)
	rec, reached := runAuth(t, manager, &stubResolver{}, "Bearer "+token)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token expired. Please login again.", messageOf(t, rec))
}

func TestAuthUnknownUser(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	token, err := manager.Generate(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	rec, reached := runAuth(t, manager, &stubResolver{users: map[primitive.ObjectID]*models.User{}}, "Bearer "+token)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token. User not found.", messageOf(t, rec))
}

func TestAuthDeactivatedUser(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	id := primitive.NewObjectID()
	token, err := manager.Generate(id.Hex())
	require.NoError(t, err)

	resolver := &stubResolver{users: map[primitive.ObjectID]*models.User{
		id: {ID: id, Name: "Alice", IsActive: false},
	}}
	rec, reached := runAuth(t, manager, resolver, "Bearer "+token)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Account is deactivated. Please contact administrator.", messageOf(t, rec))
}

func TestAuthSuccessAttachesUser(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	id := primitive.NewObjectID()
	token, err := manager.Generate(id.Hex())
	require.NoError(t, err)

	resolver := &stubResolver{users: map[primitive.ObjectID]*models.User{
		id: {ID: id, Name: "Alice", Role: models.RoleUser, IsActive: true},
	}}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Auth(manager, resolver)(func(c echo.Context) error {
		user, err := GetUserFromContext(c)
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminOnly(t *testing.T) {
	e := echo.New()

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	// No user in context.
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, AdminOnly(next)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Regular user.
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("user", &models.User{Role: models.RoleUser, IsActive: true})
	require.NoError(t, AdminOnly(next)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. Admin privileges required.", messageOf(t, rec))

	// Admin passes.
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("user", &models.User{Role: models.RoleAdmin, IsActive: true})
	require.NoError(t, AdminOnly(next)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
