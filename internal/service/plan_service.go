package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrPlanNotFound = errors.New("plan not found")
)

// PlanInput is the body of a create request. Pointer fields are optional or
// need presence detection.
type PlanInput struct {
	Title           string
	Duration        *int
	WorkoutsPerWeek *int
	EquipmentAccess string
	FitnessGoal     string
	IsActive        *bool
	StartDate       *time.Time
	Notes           string
}

// PlanUpdate is the body of a partial update. Nil fields are left unchanged.
type PlanUpdate struct {
	Title           *string
	Duration        *int
	WorkoutsPerWeek *int
	EquipmentAccess *string
	FitnessGoal     *string
	IsActive        *bool
	StartDate       *time.Time
	Notes           *string
}

// PlanDetails is a plan with its workout references resolved to the owner's
// workout records. References to deleted workouts are left out.
type PlanDetails struct {
	Plan     *domain.Plan
	Workouts []domain.Workout
}

type PlanService interface {
	List(ctx context.Context, ownerID primitive.ObjectID) ([]PlanDetails, error)
	Get(ctx context.Context, ownerID, planID primitive.ObjectID) (*PlanDetails, error)
	Create(ctx context.Context, ownerID primitive.ObjectID, in PlanInput) (*PlanDetails, error)
	Update(ctx context.Context, ownerID, planID primitive.ObjectID, upd PlanUpdate) (*PlanDetails, error)
	Delete(ctx context.Context, ownerID, planID primitive.ObjectID) error

	// AddWorkout is idempotent; the workout must exist and belong to ownerID.
	AddWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*PlanDetails, error)
	// RemoveWorkout succeeds even if the plan does not reference workoutID.
	RemoveWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*PlanDetails, error)
}

// planService implements the PlanService interface.
type planService struct {
	planRepo    repository.PlanRepository
	workoutRepo repository.WorkoutRepository
}

// NewPlanService creates a new instance of planService.
func NewPlanService(planRepo repository.PlanRepository, workoutRepo repository.WorkoutRepository) PlanService {
	return &planService{
		planRepo:    planRepo,
		workoutRepo: workoutRepo,
	}
}

func (s *planService) List(ctx context.Context, ownerID primitive.ObjectID) ([]PlanDetails, error) {
	plans, err := s.planRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// One lookup for the references of every plan.
	var ids []primitive.ObjectID
	seen := make(map[primitive.ObjectID]bool)
	for _, p := range plans {
		for _, id := range p.Workouts {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	workouts, err := s.workoutRepo.GetByIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.Workout, len(workouts))
	for _, w := range workouts {
		byID[w.ID] = w
	}

	details := make([]PlanDetails, 0, len(plans))
	for i := range plans {
		populated := []domain.Workout{}
		for _, id := range plans[i].Workouts {
			if w, ok := byID[id]; ok {
				populated = append(populated, w)
			}
		}
		details = append(details, PlanDetails{Plan: &plans[i], Workouts: populated})
	}
	return details, nil
}

func (s *planService) Get(ctx context.Context, ownerID, planID primitive.ObjectID) (*PlanDetails, error) {
	plan, err := s.planRepo.GetByID(ctx, ownerID, planID)
	if err != nil {
		return nil, mapPlanErr(err)
	}
	return s.populate(ctx, ownerID, plan)
}

func (s *planService) Create(ctx context.Context, ownerID primitive.ObjectID, in PlanInput) (*PlanDetails, error) {
	var v validationErrors

	title := strings.TrimSpace(in.Title)
	if title == "" {
		v.miss("title")
	}
	if in.Duration == nil {
		v.miss("duration")
	} else if !validWeeks(*in.Duration) {
		v.invalidate("duration")
	}
	if in.WorkoutsPerWeek == nil {
		v.miss("workoutsPerWeek")
	} else if !validPerWeek(*in.WorkoutsPerWeek) {
		v.invalidate("workoutsPerWeek")
	}
	var equipment domain.Equipment
	if strings.TrimSpace(in.EquipmentAccess) == "" {
		v.miss("equipmentAccess")
	} else if e, ok := domain.ParseEquipment(in.EquipmentAccess); ok {
		equipment = e
	} else {
		v.invalidate("equipmentAccess")
	}
	var goal domain.FitnessGoal
	if strings.TrimSpace(in.FitnessGoal) == "" {
		v.miss("fitnessGoal")
	} else if g, ok := domain.ParseFitnessGoal(in.FitnessGoal); ok {
		goal = g
	} else {
		v.invalidate("fitnessGoal")
	}
	if in.StartDate != nil && !domain.PlanStartInRange(in.StartDate.UTC()) {
		v.invalidate("startDate")
	}
	if err := v.err("Missing required plan fields"); err != nil {
		return nil, err
	}

	plan := &domain.Plan{
		UserID:          ownerID,
		Title:           title,
		Duration:        *in.Duration,
		WorkoutsPerWeek: *in.WorkoutsPerWeek,
		EquipmentAccess: equipment,
		FitnessGoal:     goal,
		Workouts:        []primitive.ObjectID{},
		IsActive:        true,
		Notes:           strings.TrimSpace(in.Notes),
	}
	if in.IsActive != nil {
		plan.IsActive = *in.IsActive
	}
	if in.StartDate != nil {
		plan.StartDate = in.StartDate.UTC()
	}

	if _, err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return &PlanDetails{Plan: plan, Workouts: []domain.Workout{}}, nil
}

func (s *planService) Update(ctx context.Context, ownerID, planID primitive.ObjectID, upd PlanUpdate) (*PlanDetails, error) {
	var (
		v     validationErrors
		patch domain.PlanPatch
	)
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			v.invalidate("title")
		}
		patch.Title = &title
	}
	if upd.Duration != nil {
		if !validWeeks(*upd.Duration) {
			v.invalidate("duration")
		}
		patch.Duration = upd.Duration
	}
	if upd.WorkoutsPerWeek != nil {
		if !validPerWeek(*upd.WorkoutsPerWeek) {
			v.invalidate("workoutsPerWeek")
		}
		patch.WorkoutsPerWeek = upd.WorkoutsPerWeek
	}
	if upd.EquipmentAccess != nil {
		e, ok := domain.ParseEquipment(*upd.EquipmentAccess)
		if !ok {
			v.invalidate("equipmentAccess")
		}
		patch.EquipmentAccess = &e
	}
	if upd.FitnessGoal != nil {
		g, ok := domain.ParseFitnessGoal(*upd.FitnessGoal)
		if !ok {
			v.invalidate("fitnessGoal")
		}
		patch.FitnessGoal = &g
	}
	if upd.StartDate != nil {
		start := upd.StartDate.UTC()
		if !domain.PlanStartInRange(start) {
			v.invalidate("startDate")
		}
		patch.StartDate = &start
	}
	if upd.Notes != nil {
		notes := strings.TrimSpace(*upd.Notes)
		patch.Notes = &notes
	}
	patch.IsActive = upd.IsActive

	if patch.IsEmpty() {
		return nil, ErrNoFieldsToUpdate
	}
	if err := v.err("Invalid plan fields"); err != nil {
		return nil, err
	}

	updated, err := s.planRepo.Update(ctx, ownerID, planID, patch)
	if err != nil {
		return nil, mapPlanErr(err)
	}
	return s.populate(ctx, ownerID, updated)
}

func (s *planService) Delete(ctx context.Context, ownerID, planID primitive.ObjectID) error {
	return mapPlanErr(s.planRepo.Delete(ctx, ownerID, planID))
}

func (s *planService) AddWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*PlanDetails, error) {
	if _, err := s.workoutRepo.GetByID(ctx, ownerID, workoutID); err != nil {
		return nil, mapWorkoutErr(err)
	}
	plan, err := s.planRepo.AddWorkout(ctx, ownerID, planID, workoutID)
	if err != nil {
		return nil, mapPlanErr(err)
	}
	return s.populate(ctx, ownerID, plan)
}

func (s *planService) RemoveWorkout(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*PlanDetails, error) {
	plan, err := s.planRepo.RemoveWorkout(ctx, ownerID, planID, workoutID)
	if err != nil {
		return nil, mapPlanErr(err)
	}
	return s.populate(ctx, ownerID, plan)
}

func (s *planService) populate(ctx context.Context, ownerID primitive.ObjectID, plan *domain.Plan) (*PlanDetails, error) {
	workouts, err := s.workoutRepo.GetByIDs(ctx, ownerID, plan.Workouts)
	if err != nil {
		return nil, err
	}
	return &PlanDetails{Plan: plan, Workouts: workouts}, nil
}

func validWeeks(w int) bool {
	return w >= domain.MinPlanWeeks && w <= domain.MaxPlanWeeks
}

func validPerWeek(n int) bool {
	return n >= domain.MinPlanWorkoutsPerWeek && n <= domain.MaxPlanWorkoutsPerWeek
}

func mapPlanErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPlanNotFound
	}
	return err
}
