package domain

import "strings"

// FitnessGoal is shared by users, workouts and plans.
type FitnessGoal string

const (
	GoalBuildMuscle         FitnessGoal = "build muscle"
	GoalLoseWeight          FitnessGoal = "lose weight"
	GoalAthleticPerformance FitnessGoal = "athletic performance"
	GoalGeneralFitness      FitnessGoal = "general fitness"
)

// FitnessGoals lists every accepted goal, in display order.
var FitnessGoals = []FitnessGoal{GoalBuildMuscle, GoalLoseWeight, GoalAthleticPerformance, GoalGeneralFitness}

// ParseFitnessGoal normalizes case and "-"/"_" separators ("Lose-Weight" -> "lose weight").
func ParseFitnessGoal(s string) (FitnessGoal, bool) {
	g := FitnessGoal(normalizeEnum(s, " "))
	for _, known := range FitnessGoals {
		if g == known {
			return g, true
		}
	}
	return "", false
}

// Equipment describes what a plan assumes the user has access to.
type Equipment string

const (
	EquipmentBodyweight      Equipment = "bodyweight"
	EquipmentDumbbells       Equipment = "dumbbells"
	EquipmentGym             Equipment = "gym"
	EquipmentResistanceBands Equipment = "resistance_bands"
)

var EquipmentOptions = []Equipment{EquipmentBodyweight, EquipmentDumbbells, EquipmentGym, EquipmentResistanceBands}

// ParseEquipment accepts "resistance-bands" and "resistance bands" as well.
func ParseEquipment(s string) (Equipment, bool) {
	e := Equipment(normalizeEnum(s, "_"))
	for _, known := range EquipmentOptions {
		if e == known {
			return e, true
		}
	}
	return "", false
}

func normalizeEnum(s, sep string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", sep, "_", sep, " ", sep).Replace(s)
}
