// Package memory implements the repository interfaces in process memory,
// for local runs without MongoDB and for tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB holds every collection behind one mutex.
type DB struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]*domain.User
	workouts map[primitive.ObjectID]*domain.Workout
	plans    map[primitive.ObjectID]*domain.Plan

	// now is swappable so tests can order records deterministically.
	now func() time.Time
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{
		users:    make(map[primitive.ObjectID]*domain.User),
		workouts: make(map[primitive.ObjectID]*domain.Workout),
		plans:    make(map[primitive.ObjectID]*domain.Plan),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// Users, Workouts and Plans expose the collections through the repository ports.
func (db *DB) Users() repository.UserRepository       { return (*UserRepo)(db) }
func (db *DB) Workouts() repository.WorkoutRepository { return (*WorkoutRepo)(db) }
func (db *DB) Plans() repository.PlanRepository       { return (*PlanRepo)(db) }

// DeleteUser removes a user; the API never does this, tests do.
func (db *DB) DeleteUser(id primitive.ObjectID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.users, id)
}

type (
	UserRepo    DB
	WorkoutRepo DB
	PlanRepo    DB
)

// Ensure interfaces are met.
var (
	_ repository.UserRepository    = (*UserRepo)(nil)
	_ repository.WorkoutRepository = (*WorkoutRepo)(nil)
	_ repository.PlanRepository    = (*PlanRepo)(nil)
)

// --- UserRepository ---

func (r *UserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == user.Username || u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	now := db.now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt, user.UpdatedAt, user.LastLogin = now, now, now
	cp := *user
	db.users[user.ID] = &cp
	return user.ID, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	login = strings.TrimSpace(login)
	for _, u := range db.users {
		if u.Username == login || u.Email == strings.ToLower(login) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string, exclude primitive.ObjectID) (bool, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	for id, u := range db.users {
		if id == exclude {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	now := db.now()
	u.LastLogin, u.UpdatedAt = now, now
	cp := *u
	return &cp, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, username, email *string, goal *domain.FitnessGoal) (*domain.User, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for otherID, other := range db.users {
		if otherID == id {
			continue
		}
		if (username != nil && other.Username == *username) || (email != nil && other.Email == *email) {
			return nil, repository.ErrDuplicate
		}
	}
	if username != nil {
		u.Username = *username
	}
	if email != nil {
		u.Email = *email
	}
	if goal != nil {
		u.Goal = *goal
	}
	u.UpdatedAt = db.now()
	cp := *u
	return &cp, nil
}

// --- WorkoutRepository ---

func (r *WorkoutRepo) Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now()
	workout.ID = primitive.NewObjectID()
	workout.CreatedAt, workout.UpdatedAt = now, now
	db.workouts[workout.ID] = cloneWorkout(workout)
	return workout.ID, nil
}

func (r *WorkoutRepo) GetByID(ctx context.Context, ownerID, id primitive.ObjectID) (*domain.Workout, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	w, ok := db.workouts[id]
	if !ok || w.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	return cloneWorkout(w), nil
}

func (r *WorkoutRepo) GetByIDs(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) ([]domain.Workout, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	workouts := []domain.Workout{}
	for _, id := range ids {
		if w, ok := db.workouts[id]; ok && w.UserID == ownerID {
			workouts = append(workouts, *cloneWorkout(w))
		}
	}
	return workouts, nil
}

func (r *WorkoutRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Workout, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	workouts := []domain.Workout{}
	for _, w := range db.workouts {
		if w.UserID == ownerID {
			workouts = append(workouts, *cloneWorkout(w))
		}
	}
	sort.Slice(workouts, func(i, j int) bool {
		return newerFirst(workouts[i].CreatedAt, workouts[j].CreatedAt, workouts[i].ID, workouts[j].ID)
	})
	return workouts, nil
}

func (r *WorkoutRepo) Update(ctx context.Context, ownerID, id primitive.ObjectID, patch domain.WorkoutPatch) (*domain.Workout, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	w, ok := db.workouts[id]
	if !ok || w.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	if patch.Title != nil {
		w.Title = *patch.Title
	}
	if patch.MuscleGroups != nil {
		w.MuscleGroups = append([]string(nil), patch.MuscleGroups...)
	}
	if patch.Exercises != nil {
		w.Exercises = append([]domain.Exercise(nil), patch.Exercises...)
	}
	if patch.FitnessGoal != nil {
		w.FitnessGoal = *patch.FitnessGoal
	}
	w.UpdatedAt = db.now()
	return cloneWorkout(w), nil
}

func (r *WorkoutRepo) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	w, ok := db.workouts[id]
	if !ok || w.UserID != ownerID {
		return repository.ErrNotFound
	}
	delete(db.workouts, id)
	return nil
}

// --- PlanRepository ---

func (r *PlanRepo) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now()
	plan.ID = primitive.NewObjectID()
	plan.CreatedAt, plan.UpdatedAt = now, now
	if plan.StartDate.IsZero() {
		plan.StartDate = now
	}
	if plan.Workouts == nil {
		plan.Workouts = []primitive.ObjectID{}
	}
	plan.RecomputeEndDate()
	db.plans[plan.ID] = clonePlan(plan)
	return plan.ID, nil
}

func (r *PlanRepo) GetByID(ctx context.Context, ownerID, id primitive.ObjectID) (*domain.Plan, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.plans[id]
	if !ok || p.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	return clonePlan(p), nil
}

func (r *PlanRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Plan, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	plans := []domain.Plan{}
	for _, p := range db.plans {
		if p.UserID == ownerID {
			plans = append(plans, *clonePlan(p))
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		return newerFirst(plans[i].CreatedAt, plans[j].CreatedAt, plans[i].ID, plans[j].ID)
	})
	return plans, nil
}

func (r *PlanRepo) Update(ctx context.Context, ownerID, id primitive.ObjectID, patch domain.PlanPatch) (*domain.Plan, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.plans[id]
	if !ok || p.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	patch.Apply(p)
	p.UpdatedAt = db.now()
	return clonePlan(p), nil
}

func (r *PlanRepo) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.plans[id]
	if !ok || p.UserID != ownerID {
		return repository.ErrNotFound
	}
	delete(db.plans, id)
	return nil
}

func (r *PlanRepo) AddWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*domain.Plan, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.plans[planID]
	if !ok || p.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	if !containsID(p.Workouts, workoutID) {
		p.Workouts = append(p.Workouts, workoutID)
	}
	p.UpdatedAt = db.now()
	return clonePlan(p), nil
}

func (r *PlanRepo) RemoveWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*domain.Plan, error) {
	db := (*DB)(r)
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.plans[planID]
	if !ok || p.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	kept := p.Workouts[:0]
	for _, id := range p.Workouts {
		if id != workoutID {
			kept = append(kept, id)
		}
	}
	p.Workouts = kept
	p.UpdatedAt = db.now()
	return clonePlan(p), nil
}

// --- helpers ---

func newerFirst(a, b time.Time, aID, bID primitive.ObjectID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID.Hex() > bID.Hex()
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func cloneWorkout(w *domain.Workout) *domain.Workout {
	cp := *w
	cp.MuscleGroups = append([]string(nil), w.MuscleGroups...)
	cp.Exercises = append([]domain.Exercise(nil), w.Exercises...)
	return &cp
}

func clonePlan(p *domain.Plan) *domain.Plan {
	cp := *p
	cp.Workouts = append([]primitive.ObjectID{}, p.Workouts...)
	return &cp
}
