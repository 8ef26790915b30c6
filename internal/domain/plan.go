package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinPlanWeeks           = 1
	MaxPlanWeeks           = 52
	MinPlanWorkoutsPerWeek = 1
	MaxPlanWorkoutsPerWeek = 7

	// MaxPlanYear is the last year a plan date may fall in. JSON time
	// encoding fails past it.
	MaxPlanYear = 9999
)

// Plan is a multi-week program owned by one user. Workouts holds weak references:
// ids may point at workouts that were deleted since they were added.
type Plan struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	UserID          primitive.ObjectID   `bson:"userId" json:"userId"`
	Title           string               `bson:"title" json:"title"`
	Duration        int                  `bson:"duration" json:"duration"` // weeks
	WorkoutsPerWeek int                  `bson:"workoutsPerWeek" json:"workoutsPerWeek"`
	EquipmentAccess Equipment            `bson:"equipmentAccess" json:"equipmentAccess"`
	FitnessGoal     FitnessGoal          `bson:"fitnessGoal" json:"fitnessGoal"`
	Workouts        []primitive.ObjectID `bson:"workouts" json:"workouts"`
	IsActive        bool                 `bson:"isActive" json:"isActive"`
	StartDate       time.Time            `bson:"startDate" json:"startDate"`
	EndDate         time.Time            `bson:"endDate" json:"endDate"`
	Notes           string               `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PlanEndDate is StartDate plus Duration whole weeks.
func PlanEndDate(start time.Time, weeks int) time.Time {
	return start.AddDate(0, 0, weeks*7)
}

// PlanStartInRange reports whether a plan starting at start keeps its end date
// within year 1 to MaxPlanYear for every allowed duration.
func PlanStartInRange(start time.Time) bool {
	return start.Year() >= 1 && PlanEndDate(start, MaxPlanWeeks).Year() <= MaxPlanYear
}

// RecomputeEndDate must run before every write of the plan.
func (p *Plan) RecomputeEndDate() {
	p.EndDate = PlanEndDate(p.StartDate, p.Duration)
}

// PlanPatch carries the fields of a partial update. Nil means "leave unchanged".
type PlanPatch struct {
	Title           *string
	Duration        *int
	WorkoutsPerWeek *int
	EquipmentAccess *Equipment
	FitnessGoal     *FitnessGoal
	IsActive        *bool
	StartDate       *time.Time
	Notes           *string
}

func (p PlanPatch) IsEmpty() bool {
	return p.Title == nil && p.Duration == nil && p.WorkoutsPerWeek == nil && p.EquipmentAccess == nil &&
		p.FitnessGoal == nil && p.IsActive == nil && p.StartDate == nil && p.Notes == nil
}

// Apply copies the set fields of the patch onto the plan and recomputes the end date.
func (p PlanPatch) Apply(plan *Plan) {
	if p.Title != nil {
		plan.Title = *p.Title
	}
	if p.Duration != nil {
		plan.Duration = *p.Duration
	}
	if p.WorkoutsPerWeek != nil {
		plan.WorkoutsPerWeek = *p.WorkoutsPerWeek
	}
	if p.EquipmentAccess != nil {
		plan.EquipmentAccess = *p.EquipmentAccess
	}
	if p.FitnessGoal != nil {
		plan.FitnessGoal = *p.FitnessGoal
	}
	if p.IsActive != nil {
		plan.IsActive = *p.IsActive
	}
	if p.StartDate != nil {
		plan.StartDate = *p.StartDate
	}
	if p.Notes != nil {
		plan.Notes = *p.Notes
	}
	plan.RecomputeEndDate()
}
