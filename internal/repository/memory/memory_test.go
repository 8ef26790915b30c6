package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// steppingClock advances one second per call so creation order is observable.
func steppingClock() func() time.Time {
	t := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestUserUniqueness(t *testing.T) {
	ctx := context.Background()
	db := New()
	users := db.Users()

	if _, err := users.Create(ctx, &domain.User{Username: "sam", Email: "sam@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := users.Create(ctx, &domain.User{Username: "sam", Email: "other@example.com", PasswordHash: "x"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate username: got %v, want ErrDuplicate", err)
	}

	u, err := users.GetByLogin(ctx, "SAM@example.com")
	if err != nil || u.Username != "sam" {
		t.Fatalf("login by email: %v, %+v", err, u)
	}

	taken, err := users.ExistsByUsernameOrEmail(ctx, "sam", "", primitive.NilObjectID)
	if err != nil || !taken {
		t.Fatalf("expected sam to be taken, got %v %v", taken, err)
	}
	taken, _ = users.ExistsByUsernameOrEmail(ctx, "sam", "", u.ID)
	if taken {
		t.Fatal("the user's own name must not count as taken")
	}
}

func TestWorkoutsAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	db := New()
	db.SetClock(steppingClock())
	repo := db.Workouts()

	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	first, _ := repo.Create(ctx, &domain.Workout{UserID: alice, Title: "Push"})
	second, _ := repo.Create(ctx, &domain.Workout{UserID: alice, Title: "Pull"})
	if _, err := repo.Create(ctx, &domain.Workout{UserID: bob, Title: "Legs"}); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListByOwner(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("expected newest first [%s %s], got %+v", second.Hex(), first.Hex(), list)
	}

	if _, err := repo.GetByID(ctx, bob, first); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("foreign get: got %v", err)
	}
	title := "Hacked"
	if _, err := repo.Update(ctx, bob, first, domain.WorkoutPatch{Title: &title}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("foreign update: got %v", err)
	}
	if err := repo.Delete(ctx, bob, first); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("foreign delete: got %v", err)
	}

	got, err := repo.GetByIDs(ctx, bob, []primitive.ObjectID{first, second})
	if err != nil || len(got) != 0 {
		t.Errorf("foreign populate leaked %d workouts (err %v)", len(got), err)
	}
	got, _ = repo.GetByIDs(ctx, alice, []primitive.ObjectID{second, primitive.NewObjectID(), first})
	if len(got) != 2 || got[0].ID != second || got[1].ID != first {
		t.Errorf("populate order/skip wrong: %+v", got)
	}
}

func TestPlanWorkoutSetSemantics(t *testing.T) {
	ctx := context.Background()
	db := New()
	plans := db.Plans()

	owner := primitive.NewObjectID()
	start := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	planID, err := plans.Create(ctx, &domain.Plan{UserID: owner, Title: "Cut", Duration: 6, StartDate: start})
	if err != nil {
		t.Fatal(err)
	}

	workoutID := primitive.NewObjectID()
	for i := 0; i < 2; i++ {
		if _, err := plans.AddWorkout(ctx, owner, planID, workoutID); err != nil {
			t.Fatal(err)
		}
	}
	p, _ := plans.GetByID(ctx, owner, planID)
	if len(p.Workouts) != 1 {
		t.Fatalf("add twice: expected 1 reference, got %d", len(p.Workouts))
	}
	if want := start.AddDate(0, 0, 42); !p.EndDate.Equal(want) {
		t.Errorf("end date = %v, want %v", p.EndDate, want)
	}

	p, err = plans.RemoveWorkout(ctx, owner, planID, primitive.NewObjectID())
	if err != nil || len(p.Workouts) != 1 {
		t.Fatalf("removing an absent id should be a no-op: %v %d", err, len(p.Workouts))
	}
	p, _ = plans.RemoveWorkout(ctx, owner, planID, workoutID)
	if len(p.Workouts) != 0 {
		t.Fatalf("expected empty workouts, got %v", p.Workouts)
	}

	if _, err := plans.AddWorkout(ctx, primitive.NewObjectID(), planID, workoutID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("foreign add: got %v", err)
	}
}

func TestPlanUpdateRecomputesEndDate(t *testing.T) {
	ctx := context.Background()
	db := New()
	plans := db.Plans()
	owner := primitive.NewObjectID()

	start := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	id, _ := plans.Create(ctx, &domain.Plan{UserID: owner, Title: "Base", Duration: 4, StartDate: start})

	weeks := 10
	updated, err := plans.Update(ctx, owner, id, domain.PlanPatch{Duration: &weeks})
	if err != nil {
		t.Fatal(err)
	}
	if want := start.AddDate(0, 0, 70); !updated.EndDate.Equal(want) {
		t.Errorf("end date = %v, want %v", updated.EndDate, want)
	}
	if updated.Title != "Base" {
		t.Errorf("title = %q, unpatched fields must keep their values", updated.Title)
	}

	if _, err := plans.Update(ctx, primitive.NewObjectID(), id, domain.PlanPatch{Duration: &weeks}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("foreign update: got %v", err)
	}
}

func TestPlanConcurrentUpdatesKeepEveryField(t *testing.T) {
	ctx := context.Background()
	plans := New().Plans()
	owner := primitive.NewObjectID()
	id, _ := plans.Create(ctx, &domain.Plan{UserID: owner, Title: "Base", Duration: 4})

	const rounds = 50
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		title := fmt.Sprintf("title-%d", i)
		notes := fmt.Sprintf("notes-%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := plans.Update(ctx, owner, id, domain.PlanPatch{Title: &title}); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := plans.Update(ctx, owner, id, domain.PlanPatch{Notes: &notes}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	p, err := plans.GetByID(ctx, owner, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Title == "Base" || p.Notes == "" {
		t.Errorf("a concurrent update was lost: title=%q notes=%q", p.Title, p.Notes)
	}
	if p.Duration != 4 {
		t.Errorf("duration = %d, want 4", p.Duration)
	}
}
