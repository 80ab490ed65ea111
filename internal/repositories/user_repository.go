package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vision-server/internal/models"
)

// UserRepository provides access to the users collection.
type UserRepository struct {
	col *mongo.Collection
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

// EnsureIndexes creates the unique email index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// withoutPassword excludes the password hash from read projections.
var withoutPassword = bson.M{"password": 0}

// Insert stores a new user. The email uniqueness constraint is enforced
// by the index; violations are reported as ErrDuplicateEmail.
func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID fetches a user without the password hash.
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, false)
}

// FindByIDWithPassword fetches a user including the password hash, for
// credential verification only.
func (r *UserRepository) FindByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, true)
}

// FindByEmail fetches a user by email without the password hash.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, false)
}

// FindByEmailWithPassword fetches a user by email including the password
// hash, for login verification.
func (r *UserRepository) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, true)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, withPassword bool) (*models.User, error) {
	opts := options.FindOne()
	if !withPassword {
		opts = opts.SetProjection(withoutPassword)
	}

	var user models.User
	err := r.col.FindOne(ctx, filter, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailInUse reports whether another user already owns the given email.
func (r *UserRepository) EmailInUse(ctx context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"email": email, "_id": bson.M{"$ne": exclude}}
	count, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateFields applies a partial update and returns the updated user
// without the password hash.
func (r *UserRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var user models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password":  hash,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncDetectionCount adjusts the denormalized detection counter atomically.
func (r *UserRepository) IncDetectionCount(ctx context.Context, id primitive.ObjectID, delta int64) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"detectionCount": delta}})
	return err
}

// Delete removes a user document.
func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of users matching the filter, newest first, plus
// the total match count.
func (r *UserRepository) List(ctx context.Context, filter models.ListUsersFilter) ([]models.User, int64, error) {
	query := bson.M{}
	if filter.Search != "" {
		regex := primitive.Regex{Pattern: filter.Search, Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": regex},
			bson.M{"email": regex},
		}
	}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.IsActive != nil {
		query["isActive"] = *filter.IsActive
	}

	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	skip := int64((page - 1) * limit)

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit)).
		SetProjection(withoutPassword)

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0, limit)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Stats aggregates global user counts for the admin panel.
func (r *UserRepository) Stats(ctx context.Context) (*models.UserStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"totalUsers":  bson.M{"$sum": 1},
			"activeUsers": bson.M{"$sum": bson.M{"$cond": bson.A{"$isActive", 1, 0}}},
			"adminUsers": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$role", models.RoleAdmin}}, 1, 0,
			}}},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.UserStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.UserStats{}, nil
	}
	return &results[0], nil
}
