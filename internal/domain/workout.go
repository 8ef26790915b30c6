package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise is a value object embedded in a Workout, in the order it should be performed.
type Exercise struct {
	Name   string   `bson:"name" json:"name"`
	Sets   int      `bson:"sets" json:"sets"`
	Reps   int      `bson:"reps" json:"reps"`
	Weight *float64 `bson:"weight,omitempty" json:"weight,omitempty"` // lbs or kg, user's choice
	Notes  string   `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Workout belongs to exactly one user; UserID never changes after creation.
type Workout struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Title         string             `bson:"title" json:"title"`
	MuscleGroups  []string           `bson:"muscleGroups" json:"muscleGroups"` // e.g. "chest", "legs", "back"
	Exercises     []Exercise         `bson:"exercises" json:"exercises"`
	FitnessGoal   FitnessGoal        `bson:"fitnessGoal" json:"fitnessGoal"`
	GeneratedByAI bool               `bson:"generatedByAI" json:"generatedByAI"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// WorkoutPatch carries the fields of a partial update. Nil means "leave unchanged".
type WorkoutPatch struct {
	Title        *string
	MuscleGroups []string
	Exercises    []Exercise
	FitnessGoal  *FitnessGoal
}

// IsEmpty reports whether the patch would change nothing.
func (p WorkoutPatch) IsEmpty() bool {
	return p.Title == nil && p.MuscleGroups == nil && p.Exercises == nil && p.FitnessGoal == nil
}
