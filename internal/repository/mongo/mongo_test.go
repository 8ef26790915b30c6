package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// setupTestDB connects to MONGO_TEST_URI and returns a throwaway database
// with indexes in place. The test is skipped when no server is reachable.
func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("Skipping test: MONGO_TEST_URI is not set")
	}
	client, err := ConnectDB(uri)
	if err != nil {
		t.Skipf("Skipping test: cannot connect to test database: %v", err)
	}

	db := client.Database("fittrack_test_" + primitive.NewObjectID().Hex())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = DisconnectDB(client)
	})
	return db
}

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMongoUserRepository(db)
	ctx := context.Background()

	u := &domain.User{Username: "lifter", Email: "lifter@example.com", PasswordHash: "x", Goal: domain.GoalBuildMuscle}
	id, err := repo.Create(ctx, u)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := &domain.User{Username: "other", Email: "lifter@example.com", PasswordHash: "x", Goal: domain.GoalBuildMuscle}
	if _, err := repo.Create(ctx, dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("duplicate email: got %v", err)
	}

	for _, login := range []string{"lifter", "LIFTER@example.com"} {
		got, err := repo.GetByLogin(ctx, login)
		if err != nil || got.ID != id {
			t.Errorf("GetByLogin(%q) = %v, %v", login, got, err)
		}
	}

	exists, err := repo.ExistsByUsernameOrEmail(ctx, "lifter", "", id)
	if err != nil || exists {
		t.Errorf("own username should not count as taken: %v %v", exists, err)
	}
	exists, err = repo.ExistsByUsernameOrEmail(ctx, "lifter", "", primitive.NewObjectID())
	if err != nil || !exists {
		t.Errorf("username should be taken: %v %v", exists, err)
	}

	if _, err := repo.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown id: got %v", err)
	}
}

func TestWorkoutAndPlanRepositories(t *testing.T) {
	db := setupTestDB(t)
	workouts := NewMongoWorkoutRepository(db)
	plans := NewMongoPlanRepository(db)
	ctx := context.Background()
	owner, stranger := primitive.NewObjectID(), primitive.NewObjectID()

	var ids []primitive.ObjectID
	for _, title := range []string{"Leg Day", "Push Day"} {
		w := &domain.Workout{
			UserID:       owner,
			Title:        title,
			MuscleGroups: []string{"legs"},
			Exercises:    []domain.Exercise{{Name: "Squat", Sets: 3, Reps: 10}},
			FitnessGoal:  domain.GoalBuildMuscle,
		}
		id, err := workouts.Create(ctx, w)
		if err != nil {
			t.Fatalf("Create workout: %v", err)
		}
		ids = append(ids, id)
		time.Sleep(5 * time.Millisecond)
	}

	list, err := workouts.ListByOwner(ctx, owner)
	if err != nil || len(list) != 2 || list[0].Title != "Push Day" {
		t.Fatalf("ListByOwner = %+v, %v", list, err)
	}
	if list, _ := workouts.ListByOwner(ctx, stranger); len(list) != 0 {
		t.Errorf("stranger sees %d workouts", len(list))
	}
	if _, err := workouts.GetByID(ctx, stranger, ids[0]); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("stranger get: got %v", err)
	}

	start := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	plan := &domain.Plan{
		UserID:          owner,
		Title:           "Summer",
		Duration:        6,
		WorkoutsPerWeek: 3,
		EquipmentAccess: domain.EquipmentGym,
		FitnessGoal:     domain.GoalBuildMuscle,
		IsActive:        true,
		StartDate:       start,
	}
	planID, err := plans.Create(ctx, plan)
	if err != nil {
		t.Fatalf("Create plan: %v", err)
	}

	var got *domain.Plan
	for i := 0; i < 2; i++ {
		if got, err = plans.AddWorkout(ctx, owner, planID, ids[0]); err != nil {
			t.Fatalf("AddWorkout: %v", err)
		}
	}
	if len(got.Workouts) != 1 {
		t.Errorf("workouts after repeated add = %v", got.Workouts)
	}
	if _, err := plans.AddWorkout(ctx, stranger, planID, ids[1]); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("stranger add: got %v", err)
	}

	populated, err := workouts.GetByIDs(ctx, owner, append(got.Workouts, primitive.NewObjectID()))
	if err != nil || len(populated) != 1 || populated[0].ID != ids[0] {
		t.Errorf("GetByIDs = %+v, %v", populated, err)
	}

	weeks := 10
	updated, err := plans.Update(ctx, owner, planID, domain.PlanPatch{Duration: &weeks})
	if err != nil {
		t.Fatalf("Update plan: %v", err)
	}
	if want := start.AddDate(0, 0, 70); !updated.EndDate.Equal(want) {
		t.Errorf("end date = %v, want %v", updated.EndDate, want)
	}
	if len(updated.Workouts) != 1 || updated.Title != "Summer" {
		t.Errorf("update changed unpatched fields: %+v", updated)
	}

	// Patches touching different fields must both survive.
	title, notes := "$title", "deload in week 4"
	if _, err := plans.Update(ctx, owner, planID, domain.PlanPatch{Title: &title}); err != nil {
		t.Fatalf("Update title: %v", err)
	}
	newStart := start.AddDate(0, 1, 0)
	updated, err = plans.Update(ctx, owner, planID, domain.PlanPatch{Notes: &notes, StartDate: &newStart})
	if err != nil {
		t.Fatalf("Update notes: %v", err)
	}
	if updated.Title != title || updated.Notes != notes {
		t.Errorf("title=%q notes=%q", updated.Title, updated.Notes)
	}
	if want := newStart.AddDate(0, 0, 70); !updated.EndDate.Equal(want) {
		t.Errorf("end date after start change = %v, want %v", updated.EndDate, want)
	}
	if _, err := plans.Update(ctx, stranger, planID, domain.PlanPatch{Title: &title}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("stranger update: got %v", err)
	}

	for i := 0; i < 2; i++ {
		if got, err = plans.RemoveWorkout(ctx, owner, planID, ids[0]); err != nil {
			t.Fatalf("RemoveWorkout: %v", err)
		}
	}
	if len(got.Workouts) != 0 {
		t.Errorf("workouts after remove = %v", got.Workouts)
	}

	if err := plans.Delete(ctx, owner, planID); err != nil {
		t.Fatalf("Delete plan: %v", err)
	}
	if err := plans.Delete(ctx, owner, planID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete: got %v", err)
	}
}
