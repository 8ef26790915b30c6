package domain

import (
	"testing"
	"time"
)

func TestParseFitnessGoal(t *testing.T) {
	tests := []struct {
		in   string
		want FitnessGoal
		ok   bool
	}{
		{"lose weight", GoalLoseWeight, true},
		{"Lose-Weight", GoalLoseWeight, true},
		{"  build_muscle ", GoalBuildMuscle, true},
		{"athletic performance", GoalAthleticPerformance, true},
		{"general-fitness", GoalGeneralFitness, true},
		{"get swole", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFitnessGoal(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseFitnessGoal(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseEquipment(t *testing.T) {
	for _, in := range []string{"resistance_bands", "resistance-bands", "Resistance Bands"} {
		got, ok := ParseEquipment(in)
		if !ok || got != EquipmentResistanceBands {
			t.Errorf("ParseEquipment(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseEquipment("kettlebell"); ok {
		t.Error("expected kettlebell to be rejected")
	}
}

func TestPlanEndDate(t *testing.T) {
	start := time.Date(2024, time.February, 26, 9, 30, 0, 0, time.UTC)
	for weeks := MinPlanWeeks; weeks <= MaxPlanWeeks; weeks++ {
		got := PlanEndDate(start, weeks)
		if want := start.Add(time.Duration(weeks) * 7 * 24 * time.Hour); !got.Equal(want) {
			t.Fatalf("weeks=%d: got %v, want %v", weeks, got, want)
		}
	}
}

func TestPlanPatchApplyRecomputesEndDate(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	plan := &Plan{Title: "Base", Duration: 4, StartDate: start}
	plan.RecomputeEndDate()

	weeks := 8
	PlanPatch{Duration: &weeks}.Apply(plan)
	if want := start.AddDate(0, 0, 56); !plan.EndDate.Equal(want) {
		t.Errorf("after duration change end = %v, want %v", plan.EndDate, want)
	}

	newStart := start.AddDate(0, 1, 0)
	PlanPatch{StartDate: &newStart}.Apply(plan)
	if want := newStart.AddDate(0, 0, 56); !plan.EndDate.Equal(want) {
		t.Errorf("after start change end = %v, want %v", plan.EndDate, want)
	}
	if plan.Title != "Base" {
		t.Errorf("title changed unexpectedly: %q", plan.Title)
	}
}

func TestPatchIsEmpty(t *testing.T) {
	if !(WorkoutPatch{}).IsEmpty() || !(PlanPatch{}).IsEmpty() {
		t.Fatal("zero patches should be empty")
	}
	title := "x"
	if (WorkoutPatch{Title: &title}).IsEmpty() {
		t.Error("workout patch with title is not empty")
	}
	active := false
	if (PlanPatch{IsActive: &active}).IsEmpty() {
		t.Error("plan patch with isActive=false is not empty")
	}
}

func TestIdentityGoalOrDefault(t *testing.T) {
	var nilIdentity *Identity
	if nilIdentity.GoalOrDefault() != GoalGeneralFitness {
		t.Error("nil identity should default to general fitness")
	}
	if (&Identity{}).GoalOrDefault() != GoalGeneralFitness {
		t.Error("empty goal should default to general fitness")
	}
	if (&Identity{Goal: GoalLoseWeight}).GoalOrDefault() != GoalLoseWeight {
		t.Error("stored goal should win")
	}
}

func TestPlanStartInRange(t *testing.T) {
	tests := []struct {
		start time.Time
		want  bool
	}{
		{time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC), true},
		{time.Date(9998, time.December, 31, 0, 0, 0, 0, time.UTC), true},
		{time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(9999, time.January, 2, 0, 0, 0, 0, time.UTC), false},
		{time.Date(9999, time.December, 31, 23, 0, 0, 0, time.UTC), false},
		{time.Date(0, time.June, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		if got := PlanStartInRange(tt.start); got != tt.want {
			t.Errorf("PlanStartInRange(%v) = %v, want %v", tt.start, got, tt.want)
		}
	}
}
