package repository

import (
	"context"

	"fittrack/server/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	// GetByLogin matches either the username or the (lowercased) email.
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	// ExistsByUsernameOrEmail reports whether either value is already taken,
	// ignoring the user with id exclude (NilObjectID to ignore nobody).
	ExistsByUsernameOrEmail(ctx context.Context, username, email string, exclude primitive.ObjectID) (bool, error)
	TouchLastLogin(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, username, email *string, goal *domain.FitnessGoal) (*domain.User, error)
}

// WorkoutRepository defines the interface for interacting with workout data.
// Every method is scoped to the owning user: a workout owned by someone else
// behaves exactly like a missing one.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, ownerID, id primitive.ObjectID) (*domain.Workout, error)
	// GetByIDs returns the owner's workouts among ids, in the order of ids, skipping missing ones.
	GetByIDs(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) ([]domain.Workout, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Workout, error) // newest first
	Update(ctx context.Context, ownerID, id primitive.ObjectID, patch domain.WorkoutPatch) (*domain.Workout, error)
	Delete(ctx context.Context, ownerID, id primitive.ObjectID) error
}

// PlanRepository defines the interface for interacting with plan data, scoped like WorkoutRepository.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, ownerID, id primitive.ObjectID) (*domain.Plan, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Plan, error) // newest first
	// Update applies patch and recomputes the end date in one atomic write.
	// Fields the patch leaves nil keep their stored values.
	Update(ctx context.Context, ownerID, id primitive.ObjectID, patch domain.PlanPatch) (*domain.Plan, error)
	Delete(ctx context.Context, ownerID, id primitive.ObjectID) error
	AddWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*domain.Plan, error)
	RemoveWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*domain.Plan, error)
}
