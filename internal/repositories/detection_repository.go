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

// DetectionRepository provides access to the detections collection.
//
// Every write path recomputes results.totalDetections from the stored
// face and body-part lists, so the count never drifts from the lists.
type DetectionRepository struct {
	col *mongo.Collection
}

// NewDetectionRepository creates a new DetectionRepository instance.
func NewDetectionRepository(db *mongo.Database) *DetectionRepository {
	return &DetectionRepository{col: db.Collection("detections")}
}

// EnsureIndexes creates the query indexes.
func (r *DetectionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "detectionType", Value: 1}}},
		{Keys: bson.D{{Key: "isPublic", Value: 1}}},
	})
	return err
}

// Insert stores a new detection record.
func (r *DetectionRepository) Insert(ctx context.Context, detection *models.Detection) error {
	now := time.Now().UTC()
	detection.CreatedAt = now
	detection.UpdatedAt = now
	detection.Results.Recount()

	res, err := r.col.InsertOne(ctx, detection)
	if err != nil {
		return err
	}
	detection.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID fetches a record, optionally scoped to an owner. A nil owner
// matches any record (admin access).
func (r *DetectionRepository) FindByID(ctx context.Context, id primitive.ObjectID, owner *primitive.ObjectID) (*models.Detection, error) {
	filter := bson.M{"_id": id}
	if owner != nil {
		filter["user"] = *owner
	}

	var detection models.Detection
	err := r.col.FindOne(ctx, filter).Decode(&detection)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &detection, nil
}

// Complete stores the results payload and moves the record to completed.
// Only records still in processing can complete; completed and failed
// are terminal.
func (r *DetectionRepository) Complete(ctx context.Context, id primitive.ObjectID, results models.DetectionResults) error {
	results.Recount()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusProcessing},
		bson.M{"$set": bson.M{
			"results":   results,
			"status":    models.StatusCompleted,
			"updatedAt": time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records the failure message and moves the record to failed.
// Like Complete it only applies to records still in processing.
func (r *DetectionRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, message string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusProcessing},
		bson.M{"$set": bson.M{
			"status":       models.StatusFailed,
			"errorMessage": message,
			"updatedAt":    time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record.
func (r *DetectionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns every record owned by the given user. Used for the
// account-deletion cascade, which needs the stored file paths.
func (r *DetectionRepository) ListByUser(ctx context.Context, user primitive.ObjectID) ([]models.Detection, error) {
	cursor, err := r.col.Find(ctx, bson.M{"user": user})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var detections []models.Detection
	if err := cursor.All(ctx, &detections); err != nil {
		return nil, err
	}
	return detections, nil
}

// DeleteByUser removes all records owned by the given user.
func (r *DetectionRepository) DeleteByUser(ctx context.Context, user primitive.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"user": user})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func listQuery(filter models.ListDetectionsFilter) bson.M {
	query := bson.M{}
	if filter.User != nil {
		query["user"] = *filter.User
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.DetectionType != "" {
		query["detectionType"] = filter.DetectionType
	}
	if filter.FileType != "" {
		query["fileType"] = filter.FileType
	}
	return query
}

// List returns a page of records matching the filter, newest first, plus
// the total match count.
func (r *DetectionRepository) List(ctx context.Context, filter models.ListDetectionsFilter) ([]models.Detection, int64, error) {
	query := listQuery(filter)
	page, limit := models.NormalizePage(filter.Page, filter.Limit)

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	detections := make([]models.Detection, 0, limit)
	if err := cursor.All(ctx, &detections); err != nil {
		return nil, 0, err
	}
	return detections, total, nil
}

// ListWithOwner is the admin variant of List: it joins the owning user's
// name and email onto each record.
func (r *DetectionRepository) ListWithOwner(ctx context.Context, filter models.ListDetectionsFilter) ([]models.Detection, int64, error) {
	query := listQuery(filter)
	page, limit := models.NormalizePage(filter.Page, filter.Limit)

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: query}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$skip", Value: int64((page - 1) * limit)}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user",
			"foreignField": "_id",
			"as":           "owner",
			"pipeline": mongo.Pipeline{
				{{Key: "$project", Value: bson.M{"name": 1, "email": 1}}},
			},
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$owner", "preserveNullAndEmptyArrays": true}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	detections := make([]models.Detection, 0, limit)
	if err := cursor.All(ctx, &detections); err != nil {
		return nil, 0, err
	}
	return detections, total, nil
}

// FindByIDWithOwner fetches one record with the owner joined, for the
// admin detail view.
func (r *DetectionRepository) FindByIDWithOwner(ctx context.Context, id primitive.ObjectID) (*models.Detection, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user",
			"foreignField": "_id",
			"as":           "owner",
			"pipeline": mongo.Pipeline{
				{{Key: "$project", Value: bson.M{"name": 1, "email": 1}}},
			},
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$owner", "preserveNullAndEmptyArrays": true}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var detections []models.Detection
	if err := cursor.All(ctx, &detections); err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, ErrNotFound
	}
	return &detections[0], nil
}

// Recent returns the newest records for a user, capped at n.
func (r *DetectionRepository) Recent(ctx context.Context, user primitive.ObjectID, n int) ([]models.Detection, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(n))

	cursor, err := r.col.Find(ctx, bson.M{"user": user}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	detections := make([]models.Detection, 0, n)
	if err := cursor.All(ctx, &detections); err != nil {
		return nil, err
	}
	return detections, nil
}

// UserStats aggregates per-user detection statistics.
func (r *DetectionRepository) UserStats(ctx context.Context, user primitive.ObjectID) (*models.DetectionStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": user}}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"totalDetections": bson.M{"$sum": 1},
			"completedDetections": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.StatusCompleted}}, 1, 0,
			}}},
			"failedDetections": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.StatusFailed}}, 1, 0,
			}}},
			"faceDetections": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{"$detectionType", bson.A{models.DetectionFace, models.DetectionBoth}}}, 1, 0,
			}}},
			"bodyDetections": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{"$detectionType", bson.A{models.DetectionBody, models.DetectionBoth}}}, 1, 0,
			}}},
			"totalFacesDetected": bson.M{"$sum": bson.M{"$size": bson.M{
				"$ifNull": bson.A{"$results.faces", bson.A{}},
			}}},
			"totalBodyPartsDetected": bson.M{"$sum": bson.M{"$size": bson.M{
				"$ifNull": bson.A{"$results.bodyParts", bson.A{}},
			}}},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.DetectionStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.DetectionStats{}, nil
	}
	return &results[0], nil
}

// SystemStats aggregates global detection counts for the admin panel.
func (r *DetectionRepository) SystemStats(ctx context.Context) (*models.SystemDetectionStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"totalDetections": bson.M{"$sum": 1},
			"completedDetections": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.StatusCompleted}}, 1, 0,
			}}},
			"failedDetections": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.StatusFailed}}, 1, 0,
			}}},
			"processingDetections": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.StatusProcessing}}, 1, 0,
			}}},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.SystemDetectionStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.SystemDetectionStats{}, nil
	}
	return &results[0], nil
}

// ActivitySince buckets detection creation per day from the given time,
// optionally scoped to one user.
func (r *DetectionRepository) ActivitySince(ctx context.Context, since time.Time, user *primitive.ObjectID) ([]models.ActivityBucket, error) {
	match := bson.M{"createdAt": bson.M{"$gte": since}}
	if user != nil {
		match["user"] = *user
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d",
				"date":   "$createdAt",
			}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	buckets := []models.ActivityBucket{}
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}
