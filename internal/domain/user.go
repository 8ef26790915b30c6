package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account. Users are never hard-deleted by the API.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username     string             `bson:"username" json:"username"` // Unique
	Email        string             `bson:"email" json:"email"`       // Unique, stored lowercased
	PasswordHash string             `bson:"password" json:"-"`        // Never expose this via JSON
	Goal         FitnessGoal        `bson:"goal" json:"goal"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
	LastLogin    time.Time          `bson:"lastLogin" json:"lastLogin"`
}

// Identity is the normalized "current user" attached to a request by the auth gate.
// Handlers and services only ever see this type, never a raw token claim.
type Identity struct {
	ID        primitive.ObjectID
	Username  string
	Email     string
	Goal      FitnessGoal
	CreatedAt time.Time
	LastLogin time.Time
}

// Identity builds the request identity for the user.
func (u *User) Identity() *Identity {
	return &Identity{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Goal:      u.Goal,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// GoalOrDefault falls back to general fitness for accounts without a stored goal.
func (i *Identity) GoalOrDefault() FitnessGoal {
	if i == nil || i.Goal == "" {
		return GoalGeneralFitness
	}
	return i.Goal
}
