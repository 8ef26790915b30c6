package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrWorkoutNotFound = errors.New("workout not found")
)

// ExerciseInput is one exercise as submitted. Sets and Reps are pointers so
// that an absent value can be told apart from zero.
type ExerciseInput struct {
	Name   string
	Sets   *int
	Reps   *int
	Weight *float64
	Notes  string
}

// WorkoutInput is the body of a create request.
type WorkoutInput struct {
	Title        string
	MuscleGroups []string
	Exercises    []ExerciseInput
	FitnessGoal  string
}

// WorkoutUpdate is the body of a partial update. Nil fields are left unchanged.
type WorkoutUpdate struct {
	Title        *string
	MuscleGroups []string
	Exercises    []ExerciseInput
	FitnessGoal  *string
}

type WorkoutService interface {
	List(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Workout, error)
	Get(ctx context.Context, ownerID, workoutID primitive.ObjectID) (*domain.Workout, error)
	Create(ctx context.Context, ownerID primitive.ObjectID, in WorkoutInput) (*domain.Workout, error)
	Update(ctx context.Context, ownerID, workoutID primitive.ObjectID, upd WorkoutUpdate) (*domain.Workout, error)
	Delete(ctx context.Context, ownerID, workoutID primitive.ObjectID) error
}

// workoutService implements the WorkoutService interface.
type workoutService struct {
	workoutRepo repository.WorkoutRepository
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(workoutRepo repository.WorkoutRepository) WorkoutService {
	return &workoutService{workoutRepo: workoutRepo}
}

func (s *workoutService) List(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Workout, error) {
	return s.workoutRepo.ListByOwner(ctx, ownerID)
}

func (s *workoutService) Get(ctx context.Context, ownerID, workoutID primitive.ObjectID) (*domain.Workout, error) {
	w, err := s.workoutRepo.GetByID(ctx, ownerID, workoutID)
	return w, mapWorkoutErr(err)
}

func (s *workoutService) Create(ctx context.Context, ownerID primitive.ObjectID, in WorkoutInput) (*domain.Workout, error) {
	var v validationErrors
	title := strings.TrimSpace(in.Title)
	if title == "" {
		v.miss("title")
	}
	muscleGroups := cleanLabels(in.MuscleGroups)
	if len(muscleGroups) == 0 {
		v.miss("muscleGroups")
	}
	var exercises []domain.Exercise
	if len(in.Exercises) == 0 {
		v.miss("exercises")
	} else {
		exercises = checkExercises(in.Exercises, &v)
	}
	var goal domain.FitnessGoal
	if strings.TrimSpace(in.FitnessGoal) == "" {
		v.miss("fitnessGoal")
	} else if g, ok := domain.ParseFitnessGoal(in.FitnessGoal); ok {
		goal = g
	} else {
		v.invalidate("fitnessGoal")
	}
	if err := v.err("Missing required workout fields"); err != nil {
		return nil, err
	}

	workout := &domain.Workout{
		UserID:       ownerID,
		Title:        title,
		MuscleGroups: muscleGroups,
		Exercises:    exercises,
		FitnessGoal:  goal,
	}
	if _, err := s.workoutRepo.Create(ctx, workout); err != nil {
		return nil, err
	}
	return workout, nil
}

func (s *workoutService) Update(ctx context.Context, ownerID, workoutID primitive.ObjectID, upd WorkoutUpdate) (*domain.Workout, error) {
	var (
		v     validationErrors
		patch domain.WorkoutPatch
	)
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			v.invalidate("title")
		}
		patch.Title = &title
	}
	if upd.MuscleGroups != nil {
		patch.MuscleGroups = cleanLabels(upd.MuscleGroups)
		if len(patch.MuscleGroups) == 0 {
			v.invalidate("muscleGroups")
		}
	}
	if upd.Exercises != nil {
		if len(upd.Exercises) == 0 {
			v.invalidate("exercises")
		}
		patch.Exercises = checkExercises(upd.Exercises, &v)
		if patch.Exercises == nil {
			patch.Exercises = []domain.Exercise{}
		}
	}
	if upd.FitnessGoal != nil {
		goal, ok := domain.ParseFitnessGoal(*upd.FitnessGoal)
		if !ok {
			v.invalidate("fitnessGoal")
		}
		patch.FitnessGoal = &goal
	}
	if patch.IsEmpty() {
		return nil, ErrNoFieldsToUpdate
	}
	if err := v.err("Invalid workout fields"); err != nil {
		return nil, err
	}

	w, err := s.workoutRepo.Update(ctx, ownerID, workoutID, patch)
	return w, mapWorkoutErr(err)
}

func (s *workoutService) Delete(ctx context.Context, ownerID, workoutID primitive.ObjectID) error {
	return mapWorkoutErr(s.workoutRepo.Delete(ctx, ownerID, workoutID))
}

// checkExercises records missing or non-positive fields as "exercises[i].field".
func checkExercises(in []ExerciseInput, v *validationErrors) []domain.Exercise {
	out := make([]domain.Exercise, 0, len(in))
	for i, e := range in {
		field := func(name string) string { return fmt.Sprintf("exercises[%d].%s", i, name) }
		name := strings.TrimSpace(e.Name)
		if name == "" {
			v.miss(field("name"))
		}
		switch {
		case e.Sets == nil:
			v.miss(field("sets"))
		case *e.Sets <= 0:
			v.invalidate(field("sets"))
		}
		switch {
		case e.Reps == nil:
			v.miss(field("reps"))
		case *e.Reps <= 0:
			v.invalidate(field("reps"))
		}
		if e.Weight != nil && *e.Weight < 0 {
			v.invalidate(field("weight"))
		}

		ex := domain.Exercise{Name: name, Weight: e.Weight, Notes: strings.TrimSpace(e.Notes)}
		if e.Sets != nil {
			ex.Sets = *e.Sets
		}
		if e.Reps != nil {
			ex.Reps = *e.Reps
		}
		out = append(out, ex)
	}
	return out
}

// cleanLabels trims free-form labels and drops blanks.
func cleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func mapWorkoutErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWorkoutNotFound
	}
	return err
}
