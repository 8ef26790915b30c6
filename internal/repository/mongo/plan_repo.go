// internal/repository/mongo/plan_repo.go
package mongo

import (
	"context"
	"errors"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new Plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan. The end date is derived here so that no insert
// can skip it.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.UserID == primitive.NilObjectID || plan.Title == "" {
		return primitive.NilObjectID, errors.New("plan requires userId and title")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.StartDate.IsZero() {
		plan.StartDate = now
	}
	if plan.Workouts == nil {
		plan.Workouts = []primitive.ObjectID{}
	}
	plan.RecomputeEndDate()

	if _, err := r.collection.InsertOne(ctx, plan); err != nil {
		return primitive.NilObjectID, err
	}
	return plan.ID, nil
}

// GetByID retrieves a single plan owned by ownerID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, ownerID, id primitive.ObjectID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, ownedBy(ownerID, id)).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListByOwner retrieves all plans of the owner, newest first.
func (r *mongoPlanRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Plan, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": ownerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.Plan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// Update sets only the patched fields. The second pipeline stage derives
// endDate from the stored startDate and duration, so the whole change is one
// document write and concurrent updates to other fields are kept.
func (r *mongoPlanRepository) Update(ctx context.Context, ownerID, id primitive.ObjectID, patch domain.PlanPatch) (*domain.Plan, error) {
	return r.findOneAndUpdate(ctx, ownedBy(ownerID, id), planPatchPipeline(patch, time.Now().UTC()))
}

// planPatchPipeline builds the update pipeline for patch. Values are wrapped
// in $literal so that strings starting with "$" are not read as field paths.
func planPatchPipeline(patch domain.PlanPatch, now time.Time) mongo.Pipeline {
	set := bson.D{}
	literal := func(key string, value any) {
		set = append(set, bson.E{Key: key, Value: bson.M{"$literal": value}})
	}
	if patch.Title != nil {
		literal("title", *patch.Title)
	}
	if patch.Duration != nil {
		literal("duration", *patch.Duration)
	}
	if patch.WorkoutsPerWeek != nil {
		literal("workoutsPerWeek", *patch.WorkoutsPerWeek)
	}
	if patch.EquipmentAccess != nil {
		literal("equipmentAccess", string(*patch.EquipmentAccess))
	}
	if patch.FitnessGoal != nil {
		literal("fitnessGoal", string(*patch.FitnessGoal))
	}
	if patch.IsActive != nil {
		literal("isActive", *patch.IsActive)
	}
	if patch.StartDate != nil {
		literal("startDate", patch.StartDate.UTC())
	}
	if patch.Notes != nil {
		literal("notes", *patch.Notes)
	}
	literal("updatedAt", now)

	endDate := bson.M{"$dateAdd": bson.M{
		"startDate": "$startDate",
		"unit":      "day",
		"amount":    bson.M{"$multiply": bson.A{"$duration", 7}},
	}}
	return mongo.Pipeline{
		{{Key: "$set", Value: set}},
		{{Key: "$set", Value: bson.D{{Key: "endDate", Value: endDate}}}},
	}
}

func (r *mongoPlanRepository) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, ownedBy(ownerID, id))
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddWorkout adds the reference with $addToSet, so repeated adds keep one occurrence.
func (r *mongoPlanRepository) AddWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*domain.Plan, error) {
	update := bson.M{
		"$addToSet": bson.M{"workouts": workoutID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.findOneAndUpdate(ctx, ownedBy(ownerID, planID), update)
}

// RemoveWorkout pulls the reference; removing an absent id is not an error.
func (r *mongoPlanRepository) RemoveWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*domain.Plan, error) {
	update := bson.M{
		"$pull": bson.M{"workouts": workoutID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.findOneAndUpdate(ctx, ownedBy(ownerID, planID), update)
}

func (r *mongoPlanRepository) findOneAndUpdate(ctx context.Context, filter bson.M, update any) (*domain.Plan, error) {
	var plan domain.Plan
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Index to quickly find active plans for a user
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
