package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/llm"
	"fittrack/server/internal/logging"
	"fittrack/server/internal/repository/memory"
	"fittrack/server/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeCompleter answers with CompleteFunc and remembers the last request.
type fakeCompleter struct {
	CompleteFunc func(ctx context.Context, req llm.Request) (string, error)
	last         llm.Request
	calls        int
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.CompleteFunc(ctx, req)
}

type fakeStore struct {
	mu   sync.Mutex
	puts map[string][]byte
	err  error
}

func (s *fakeStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.puts == nil {
		s.puts = make(map[string][]byte)
	}
	s.puts[key] = body
	return nil
}

func failing() *fakeCompleter {
	return &fakeCompleter{CompleteFunc: func(context.Context, llm.Request) (string, error) {
		return "", errors.New("connection refused")
	}}
}

func replying(reply string) *fakeCompleter {
	return &fakeCompleter{CompleteFunc: func(context.Context, llm.Request) (string, error) {
		return reply, nil
	}}
}

func newGenerator(c llm.Completer, store *fakeStore) *WorkoutGenerator {
	var archive storage.ObjectStore
	if store != nil {
		archive = store
	}
	return NewWorkoutGenerator(memory.New().Workouts(), c, archive, "ai", logging.Discard())
}

var tester = &domain.Identity{ID: primitive.NewObjectID(), Username: "tester", Goal: domain.GoalLoseWeight}

func TestExerciseCount(t *testing.T) {
	tests := map[int]int{1: 3, 15: 3, 30: 3, 44: 3, 45: 3, 59: 3, 60: 4, 75: 5, 90: 6, 120: 8}
	for d, want := range tests {
		if got := ExerciseCount(d); got != want {
			t.Errorf("ExerciseCount(%d) = %d, want %d", d, got, want)
		}
	}
}

func TestGenerateFallbackOnCompleterError(t *testing.T) {
	c := failing()
	g := newGenerator(c, nil)

	w, err := g.Generate(context.Background(), tester, GenerateInput{
		Equipment: []string{"bodyweight"}, MuscleGroups: []string{"legs", "abs"}, Duration: 30,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.calls != 1 {
		t.Errorf("completer called %d times, want exactly once", c.calls)
	}
	if !w.GeneratedByAI || w.UserID != tester.ID || w.ID.IsZero() {
		t.Errorf("unexpected workout %+v", w)
	}
	if len(w.Exercises) != 3 {
		t.Fatalf("got %d exercises, want 3", len(w.Exercises))
	}
	if w.Title != "Legs, Abs Workout" {
		t.Errorf("title = %q", w.Title)
	}
	if strings.Join(w.MuscleGroups, ",") != "legs,abs" {
		t.Errorf("muscle groups = %v", w.MuscleGroups)
	}
	if w.FitnessGoal != domain.GoalLoseWeight {
		t.Errorf("goal = %q", w.FitnessGoal)
	}

	wantNames := []string{"Legs Exercise", "Abs Exercise", "Legs Exercise 2"}
	for i, ex := range w.Exercises {
		if ex.Name != wantNames[i] || ex.Sets != DefaultSets || ex.Reps != DefaultReps {
			t.Errorf("exercise %d = %+v", i, ex)
		}
	}
	if w.Exercises[1].Notes != "Targeting abs" {
		t.Errorf("notes = %q", w.Exercises[1].Notes)
	}
}

func TestGenerateFallbackIsDeterministic(t *testing.T) {
	in := GenerateInput{Equipment: []string{"dumbbells"}, MuscleGroups: []string{"chest", "back", "shoulders"}, Duration: 75}

	render := func() string {
		w, err := newGenerator(failing(), nil).Generate(context.Background(), tester, in)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := json.Marshal(struct {
			Title        string
			MuscleGroups []string
			Exercises    []domain.Exercise
			FitnessGoal  domain.FitnessGoal
		}{w.Title, w.MuscleGroups, w.Exercises, w.FitnessGoal})
		return string(b)
	}

	first := render()
	for i := 0; i < 5; i++ {
		if got := render(); got != first {
			t.Fatalf("fallback output differs:\n%s\n%s", first, got)
		}
	}
}

func TestGenerateWithoutCompleterUsesDefaultGoal(t *testing.T) {
	g := newGenerator(nil, nil)
	noGoal := &domain.Identity{ID: primitive.NewObjectID()}

	w, err := g.Generate(context.Background(), noGoal, GenerateInput{
		Equipment: []string{"gym"}, MuscleGroups: []string{"arms"}, Duration: 90,
	})
	if err != nil {
		t.Fatal(err)
	}
	if w.FitnessGoal != domain.GoalGeneralFitness {
		t.Errorf("goal = %q", w.FitnessGoal)
	}
	if len(w.Exercises) != 6 {
		t.Errorf("got %d exercises, want 6", len(w.Exercises))
	}
}

func TestGenerateUsesModelReply(t *testing.T) {
	reply := "Sure! Here is your workout:\n```json\n" + `{
  "title": "Core {Crusher}",
  "fitnessGoal": "build muscle",
  "muscleGroups": ["something else"],
  "exercises": [
    {"name": "Plank", "sets": "3", "reps": 45, "notes": "hold"},
    {"name": "", "sets": 0, "reps": "8-12"},
    {"name": "Crunch", "sets": 4, "reps": 15},
    {"name": "Extra", "sets": 2, "reps": 2}
  ]
}` + "\n```\nEnjoy!"
	c := replying(reply)
	g := newGenerator(c, nil)

	w, err := g.Generate(context.Background(), tester, GenerateInput{
		Equipment: []string{"bodyweight"}, MuscleGroups: []string{"abs"}, Duration: 30,
	})
	if err != nil {
		t.Fatal(err)
	}

	if w.Title != "Core {Crusher}" {
		t.Errorf("title = %q", w.Title)
	}
	// The caller's goal and muscle groups win over the reply.
	if w.FitnessGoal != domain.GoalLoseWeight || strings.Join(w.MuscleGroups, ",") != "abs" {
		t.Errorf("goal/groups taken from reply: %q %v", w.FitnessGoal, w.MuscleGroups)
	}
	if len(w.Exercises) != 3 {
		t.Fatalf("got %d exercises, want 3 (truncated)", len(w.Exercises))
	}
	if got := w.Exercises[0]; got.Name != "Plank" || got.Sets != 3 || got.Reps != 45 || got.Notes != "hold" {
		t.Errorf("exercise 0 = %+v", got)
	}
	if got := w.Exercises[1]; got.Name != DefaultExerciseName || got.Sets != DefaultSets || got.Reps != DefaultReps {
		t.Errorf("defaults not filled: %+v", got)
	}

	if c.last.Temperature != 0.7 || c.last.MaxTokens != 1000 {
		t.Errorf("sampling params = %+v", c.last)
	}
	if !strings.Contains(c.last.User, "Generate exactly 3 exercises") || !strings.Contains(c.last.User, `"exercises"`) {
		t.Errorf("prompt missing count or schema:\n%s", c.last.User)
	}
}

func TestGeneratePadsShortModelReply(t *testing.T) {
	g := newGenerator(replying(`{"title":"Quick","exercises":[{"name":"Lunge","sets":3,"reps":12}]}`), nil)
	w, err := g.Generate(context.Background(), tester, GenerateInput{
		Equipment: []string{"bodyweight"}, MuscleGroups: []string{"legs", "glutes"}, Duration: 60,
	})
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(w.Exercises))
	for _, ex := range w.Exercises {
		names = append(names, ex.Name)
	}
	if got := strings.Join(names, "|"); got != "Lunge|Legs Exercise|Glutes Exercise|Legs Exercise 2" {
		t.Errorf("exercises = %s", got)
	}
}

func TestGenerateFallsBackOnBadReplies(t *testing.T) {
	replies := map[string]string{
		"prose only":     "I cannot help with that.",
		"invalid json":   `{"title": "x", "exercises": [}`,
		"no title":       `{"exercises":[{"name":"Squat","sets":3,"reps":5}]}`,
		"no exercises":   `{"title":"Legs"}`,
		"empty exercise": `{"title":"Legs","exercises":[]}`,
	}
	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			w, err := newGenerator(replying(reply), nil).Generate(context.Background(), tester, GenerateInput{
				Equipment: []string{"gym"}, MuscleGroups: []string{"legs"}, Duration: 45,
			})
			if err != nil {
				t.Fatal(err)
			}
			if w.Title != "Legs Workout" || len(w.Exercises) != 3 {
				t.Errorf("expected fallback, got %q with %d exercises", w.Title, len(w.Exercises))
			}
		})
	}
}

func TestGenerateValidation(t *testing.T) {
	g := newGenerator(failing(), nil)
	_, err := g.Generate(context.Background(), tester, GenerateInput{MuscleGroups: []string{"  "}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if strings.Join(verr.Missing, ",") != "equipment,muscleGroups,duration" {
		t.Errorf("missing = %v", verr.Missing)
	}
}

func TestGenerateRejectsOversizedDuration(t *testing.T) {
	db := memory.New()
	c := failing()
	g := NewWorkoutGenerator(db.Workouts(), c, nil, "ai", logging.Discard())

	for _, d := range []int{MaxWorkoutMinutes + 1, 30000000, -5} {
		_, err := g.Generate(context.Background(), tester, GenerateInput{
			Equipment:    []string{"dumbbells"},
			MuscleGroups: []string{"legs"},
			Duration:     d,
		})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("duration %d: expected ValidationError, got %v", d, err)
		}
		if strings.Join(verr.Invalid, ",") != "duration" {
			t.Errorf("duration %d: invalid = %v", d, verr.Invalid)
		}
	}
	if c.calls != 0 {
		t.Errorf("completer called %d times for rejected input", c.calls)
	}
	if list, _ := db.Workouts().ListByOwner(context.Background(), tester.ID); len(list) != 0 {
		t.Errorf("rejected requests stored %d workouts", len(list))
	}

	w, err := g.Generate(context.Background(), tester, GenerateInput{
		Equipment:    []string{"dumbbells"},
		MuscleGroups: []string{"legs"},
		Duration:     MaxWorkoutMinutes,
	})
	if err != nil {
		t.Fatalf("Generate at the ceiling: %v", err)
	}
	if len(w.Exercises) != MaxWorkoutMinutes/MinutesPerExercise {
		t.Errorf("exercises = %d, want %d", len(w.Exercises), MaxWorkoutMinutes/MinutesPerExercise)
	}
}

func TestGenerateArchivesTranscript(t *testing.T) {
	store := &fakeStore{}
	g := newGenerator(failing(), store)

	w, err := g.Generate(context.Background(), tester, GenerateInput{
		Equipment: []string{"bodyweight"}, MuscleGroups: []string{"legs"}, Duration: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.puts) != 1 {
		t.Fatalf("expected one archived transcript, got %d", len(store.puts))
	}
	for key, body := range store.puts {
		if !strings.HasPrefix(key, "ai/") || !strings.HasSuffix(key, ".json") {
			t.Errorf("key = %q", key)
		}
		var tr transcript
		if err := json.Unmarshal(body, &tr); err != nil {
			t.Fatal(err)
		}
		if tr.Outcome != OutcomeFallback || tr.WorkoutID != w.ID.Hex() || !strings.Contains(tr.Reason, "connection refused") {
			t.Errorf("transcript = %+v", tr)
		}
	}

	// Archive failures never fail the request.
	store.err = errors.New("bucket gone")
	if _, err := g.Generate(context.Background(), tester, GenerateInput{
		Equipment: []string{"bodyweight"}, MuscleGroups: []string{"legs"}, Duration: 20,
	}); err != nil {
		t.Errorf("archive error leaked: %v", err)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{`text {"a":{"b":2}} trailing {"c":3}`, `{"a":{"b":2}}`, true},
		{`{"s":"brace } inside"}`, `{"s":"brace } inside"}`, true},
		{`{"s":"quote \" and }"}`, `{"s":"quote \" and }"}`, true},
		{`{ unbalanced {"ok":true}`, `{"ok":true}`, true},
		{`{"never": "closed"`, ``, false},
		{`no json`, ``, false},
	}
	for _, tt := range tests {
		got, ok := ExtractJSONObject(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractJSONObject(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBuildExercisesExactCount(t *testing.T) {
	groups := []string{"legs", "back"}
	for n := 0; n <= 10; n++ {
		for drafts := 0; drafts <= 12; drafts += 4 {
			in := make([]ExerciseDraft, drafts)
			if got := BuildExercises(in, groups, n); len(got) != n {
				t.Fatalf("n=%d drafts=%d: got %d exercises", n, drafts, len(got))
			}
		}
	}
}
