package logics

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vision-server/internal/models"
	"vision-server/internal/repositories"
	"vision-server/internal/storage"
	"vision-server/pkg/apperrors"
)

// UserService implements account lifecycle: registration, login
// verification, profile updates and the deletion cascade over owned
// detection records and their backing files.
type UserService struct {
	users      UserStore
	detections DetectionStore
	files      storage.Store
	log        *zap.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(users UserStore, detections DetectionStore, files storage.Store, log *zap.Logger) *UserService {
	return &UserService{
		users:      users,
		detections: detections,
		files:      files,
		log:        log,
	}
}

// Register creates a new standard-role account with a hashed password.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("Server error during registration", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     models.RoleUser,
		IsActive: true,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, apperrors.InvalidArgument("User already exists with this email")
		}
		return nil, apperrors.Internal("Server error during registration", err)
	}

	user.Password = ""
	return user, nil
}

// Authenticate verifies credentials for login. Deactivated accounts are
// rejected even with a correct password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.Unauthenticated("Invalid email or password")
		}
		return nil, apperrors.Internal("Server error during login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.Unauthenticated("Invalid email or password")
	}

	if !user.IsActive {
		return nil, apperrors.Unauthenticated("Account is deactivated. Please contact administrator.")
	}

	user.Password = ""
	return user, nil
}

// GetProfile returns a user together with their detection statistics.
func (s *UserService) GetProfile(ctx context.Context, id primitive.ObjectID) (*models.User, *models.DetectionStats, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, apperrors.NotFound("User not found")
		}
		return nil, nil, apperrors.Internal("Server error retrieving profile", err)
	}

	stats, err := s.detections.UserStats(ctx, id)
	if err != nil {
		return nil, nil, apperrors.Internal("Server error retrieving profile", err)
	}
	return user, stats, nil
}

// UpdateProfile changes name and/or email of the user's own account. An
// email already owned by another account is rejected.
func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email *string) (*models.User, error) {
	set := bson.M{}
	if name != nil {
		set["name"] = *name
	}
	if email != nil {
		taken, err := s.users.EmailInUse(ctx, *email, id)
		if err != nil {
			return nil, apperrors.Internal("Server error updating profile", err)
		}
		if taken {
			return nil, apperrors.InvalidArgument("Email already in use")
		}
		set["email"] = *email
	}
	if len(set) == 0 {
		return s.getUser(ctx, id)
	}

	user, err := s.users.UpdateFields(ctx, id, set)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal("Server error updating profile", err)
	}
	return user, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *UserService) ChangePassword(ctx context.Context, id primitive.ObjectID, current, newPassword string) error {
	user, err := s.users.FindByIDWithPassword(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return apperrors.Internal("Server error changing password", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return apperrors.InvalidArgument("Current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("Server error changing password", err)
	}

	if err := s.users.UpdatePassword(ctx, id, string(hash)); err != nil {
		return apperrors.Internal("Server error changing password", err)
	}
	return nil
}

// DeleteAccount removes the user's own account after re-verifying the
// password, cascading over owned detection records and their files.
func (s *UserService) DeleteAccount(ctx context.Context, id primitive.ObjectID, password string) error {
	user, err := s.users.FindByIDWithPassword(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return apperrors.Internal("Server error deleting account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return apperrors.InvalidArgument("Incorrect password")
	}

	return s.deleteUserCascade(ctx, id)
}

// deleteUserCascade removes files, then records, then the user document.
// The three steps are not transactional; a crash in between can leave an
// orphaned file or a dangling record.
func (s *UserService) deleteUserCascade(ctx context.Context, id primitive.ObjectID) error {
	detections, err := s.detections.ListByUser(ctx, id)
	if err != nil {
		return apperrors.Internal("Server error deleting account", err)
	}
	for _, d := range detections {
		if d.FilePath == "" {
			continue
		}
		if err := s.files.Delete(ctx, d.FilePath); err != nil {
			s.log.Warn("failed to delete detection file during account cascade",
				zap.String("detection_id", d.ID.Hex()),
				zap.Error(err),
			)
		}
	}

	if _, err := s.detections.DeleteByUser(ctx, id); err != nil {
		return apperrors.Internal("Server error deleting account", err)
	}

	if err := s.users.Delete(ctx, id); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return apperrors.Internal("Server error deleting account", err)
	}
	return nil
}

// ListUsers returns a page of users for the admin panel.
func (s *UserService) ListUsers(ctx context.Context, filter models.ListUsersFilter) ([]models.User, models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, apperrors.Internal("Server error retrieving users", err)
	}
	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	return users, models.NewPagination(page, limit, total), nil
}

// GetUser returns one user with detection statistics for the admin
// detail view.
func (s *UserService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, *models.DetectionStats, error) {
	return s.GetProfile(ctx, id)
}

// AdminUpdate applies an admin edit to a user. Admins cannot deactivate
// their own account through this path.
func (s *UserService) AdminUpdate(ctx context.Context, actor primitive.ObjectID, target primitive.ObjectID, update models.UserUpdate) (*models.User, error) {
	if actor == target && update.IsActive != nil && !*update.IsActive {
		return nil, apperrors.InvalidArgument("You cannot deactivate your own account")
	}

	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Email != nil {
		taken, err := s.users.EmailInUse(ctx, *update.Email, target)
		if err != nil {
			return nil, apperrors.Internal("Server error updating user", err)
		}
		if taken {
			return nil, apperrors.InvalidArgument("Email already in use")
		}
		set["email"] = *update.Email
	}
	if update.Role != nil {
		if *update.Role != models.RoleUser && *update.Role != models.RoleAdmin {
			return nil, apperrors.InvalidArgument("Role must be user or admin")
		}
		set["role"] = *update.Role
	}
	if update.IsActive != nil {
		set["isActive"] = *update.IsActive
	}
	if len(set) == 0 {
		return s.getUser(ctx, target)
	}

	user, err := s.users.UpdateFields(ctx, target, set)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal("Server error updating user", err)
	}
	return user, nil
}

// AdminDelete removes another user's account and everything it owns.
// Admins cannot delete themselves through this path.
func (s *UserService) AdminDelete(ctx context.Context, actor primitive.ObjectID, target primitive.ObjectID) error {
	if actor == target {
		return apperrors.InvalidArgument("You cannot delete your own account")
	}

	if _, err := s.users.FindByID(ctx, target); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return apperrors.Internal("Server error deleting user", err)
	}

	return s.deleteUserCascade(ctx, target)
}

// Stats returns global user counts for the admin panel.
func (s *UserService) Stats(ctx context.Context) (*models.UserStats, error) {
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, apperrors.Internal("Server error retrieving statistics", err)
	}
	return stats, nil
}

func (s *UserService) getUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal("Server error retrieving user", err)
	}
	return user, nil
}
