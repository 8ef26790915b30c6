package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/llm"
	"fittrack/server/internal/repository"
	"fittrack/server/internal/storage"

	"github.com/invopop/jsonschema"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MinExercises        = 3
	MinutesPerExercise  = 15
	MaxWorkoutMinutes   = 600
	DefaultExerciseName = "Unknown Exercise"
	DefaultSets         = 3
	DefaultReps         = 10

	generationTemperature = 0.7
	generationMaxTokens   = 1000

	OutcomeModel    = "model"
	OutcomeFallback = "fallback"
)

var (
	errNoCompleter  = errors.New("no completion API configured")
	errNoJSONObject = errors.New("reply contains no JSON object")
	errMissingTitle = errors.New("reply has no title")
	errNoExercises  = errors.New("reply has no exercises")
)

// GenerateInput is what the caller asks the generator for.
type GenerateInput struct {
	Equipment    []string
	MuscleGroups []string
	Duration     int // minutes
}

// ExerciseDraft is an exercise before defaults are filled in. Zero values mean "not given".
type ExerciseDraft struct {
	Name  string
	Sets  int
	Reps  int
	Notes string
}

// Generator produces and stores a workout for the caller.
type Generator interface {
	Generate(ctx context.Context, who *domain.Identity, in GenerateInput) (*domain.Workout, error)
}

var _ Generator = (*WorkoutGenerator)(nil)

// WorkoutGenerator builds a workout through the completion API and falls back
// to a deterministic template whenever the API cannot produce a usable reply.
type WorkoutGenerator struct {
	workoutRepo   repository.WorkoutRepository
	completer     llm.Completer       // nil: always fall back
	archive       storage.ObjectStore // nil: transcripts are not kept
	archivePrefix string
	log           logrus.FieldLogger
	now           func() time.Time
}

// NewWorkoutGenerator wires the generator. completer and archive may be nil.
func NewWorkoutGenerator(
	workoutRepo repository.WorkoutRepository,
	completer llm.Completer,
	archive storage.ObjectStore,
	archivePrefix string,
	log logrus.FieldLogger,
) *WorkoutGenerator {
	return &WorkoutGenerator{
		workoutRepo:   workoutRepo,
		completer:     completer,
		archive:       archive,
		archivePrefix: archivePrefix,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ExerciseCount is the number of exercises a workout of d minutes gets.
func ExerciseCount(d int) int {
	if n := d / MinutesPerExercise; n > MinExercises {
		return n
	}
	return MinExercises
}

// Generate validates the request, drafts the workout and persists it with
// GeneratedByAI set. Only input validation and the final write can fail.
func (g *WorkoutGenerator) Generate(ctx context.Context, who *domain.Identity, in GenerateInput) (*domain.Workout, error) {
	var v validationErrors
	equipment := cleanLabels(in.Equipment)
	if len(equipment) == 0 {
		v.miss("equipment")
	}
	muscleGroups := cleanLabels(in.MuscleGroups)
	if len(muscleGroups) == 0 {
		v.miss("muscleGroups")
	}
	switch {
	case in.Duration == 0:
		v.miss("duration")
	case in.Duration < 0, in.Duration > MaxWorkoutMinutes:
		v.invalidate("duration")
	}
	if err := v.err("Missing required fields: equipment, muscleGroups, duration"); err != nil {
		return nil, err
	}

	req := GenerateInput{Equipment: equipment, MuscleGroups: muscleGroups, Duration: in.Duration}
	goal := who.GoalOrDefault()
	n := ExerciseCount(req.Duration)

	t := g.draft(ctx, req, goal, n)
	if t.Outcome == OutcomeFallback {
		g.log.WithFields(logrus.Fields{
			"user_id": who.ID.Hex(),
			"reason":  t.Reason,
		}).Warn("AI workout generation failed, using fallback")
	}

	workout := &domain.Workout{
		UserID:        who.ID,
		Title:         t.Title,
		MuscleGroups:  muscleGroups,
		Exercises:     t.Exercises,
		FitnessGoal:   goal,
		GeneratedByAI: true,
	}
	if _, err := g.workoutRepo.Create(ctx, workout); err != nil {
		return nil, err
	}

	t.WorkoutID = workout.ID.Hex()
	t.UserID = who.ID.Hex()
	g.archiveTranscript(ctx, t)
	return workout, nil
}

// transcript records one generation; it is what the archive stores.
type transcript struct {
	WorkoutID string            `json:"workoutId"`
	UserID    string            `json:"userId"`
	Outcome   string            `json:"outcome"`
	Reason    string            `json:"reason,omitempty"`
	System    string            `json:"system"`
	Prompt    string            `json:"prompt"`
	Reply     string            `json:"reply,omitempty"`
	Title     string            `json:"title"`
	Exercises []domain.Exercise `json:"exercises"`
	CreatedAt time.Time         `json:"createdAt"`
}

// draft never fails: every error path ends in the fallback.
func (g *WorkoutGenerator) draft(ctx context.Context, in GenerateInput, goal domain.FitnessGoal, n int) transcript {
	t := transcript{
		System:    systemPrompt,
		Prompt:    BuildPrompt(in, goal, n),
		CreatedAt: g.now(),
	}
	fallback := func(reason error) transcript {
		t.Outcome = OutcomeFallback
		t.Reason = reason.Error()
		t.Title = FallbackTitle(in.MuscleGroups)
		t.Exercises = BuildExercises(nil, in.MuscleGroups, n)
		return t
	}

	if g.completer == nil {
		return fallback(errNoCompleter)
	}
	raw, err := g.completer.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        t.Prompt,
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
	})
	if err != nil {
		return fallback(err)
	}
	t.Reply = raw

	reply, err := parseReply(raw)
	if err != nil {
		return fallback(err)
	}

	t.Outcome = OutcomeModel
	t.Title = strings.TrimSpace(reply.Title)
	t.Exercises = BuildExercises(reply.drafts(), in.MuscleGroups, n)
	return t
}

func (g *WorkoutGenerator) archiveTranscript(ctx context.Context, t transcript) {
	if g.archive == nil {
		return
	}
	body, err := json.Marshal(t)
	if err != nil {
		g.log.WithError(err).Error("encode generation transcript")
		return
	}
	key := storage.NewObjectKey(g.archivePrefix, "json", t.CreatedAt)
	if err := g.archive.PutObject(ctx, key, body, "application/json"); err != nil {
		g.log.WithError(err).WithField("key", key).Error("archive generation transcript")
	}
}

// --- Prompt ---

const systemPrompt = "You are a professional fitness trainer and workout planner. " +
	"You create personalized, effective workout plans based on user requirements. " +
	"Always respond with valid JSON that matches the exact structure requested."

// aiReply is the JSON object the model is asked to return.
type aiReply struct {
	Title        string       `json:"title" jsonschema:"description=Creative workout title"`
	FitnessGoal  string       `json:"fitnessGoal"`
	MuscleGroups []string     `json:"muscleGroups"`
	Exercises    []aiExercise `json:"exercises" jsonschema:"minItems=1"`
}

type aiExercise struct {
	Name  string  `json:"name"`
	Sets  flexInt `json:"sets"`
	Reps  flexInt `json:"reps"`
	Notes string  `json:"notes" jsonschema:"description=Brief notes"`
}

func (r *aiReply) drafts() []ExerciseDraft {
	out := make([]ExerciseDraft, 0, len(r.Exercises))
	for _, e := range r.Exercises {
		out = append(out, ExerciseDraft{Name: e.Name, Sets: int(e.Sets), Reps: int(e.Reps), Notes: e.Notes})
	}
	return out
}

var replySchema = func() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	b, err := json.MarshalIndent(reflector.Reflect(&aiReply{}), "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}()

// BuildPrompt renders the user message. It is a pure function of its inputs.
func BuildPrompt(in GenerateInput, goal domain.FitnessGoal, n int) string {
	groups, _ := json.Marshal(in.MuscleGroups)

	var b strings.Builder
	b.WriteString("You are a professional fitness trainer. Create a personalized workout plan and respond ONLY with valid JSON.\n\n")
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Equipment available: %s\n", strings.Join(in.Equipment, ", "))
	fmt.Fprintf(&b, "- Target muscle groups: %s\n", strings.Join(in.MuscleGroups, ", "))
	fmt.Fprintf(&b, "- Workout duration: %d minutes\n", in.Duration)
	fmt.Fprintf(&b, "- Fitness goal: %s\n", goal)
	fmt.Fprintf(&b, "- Generate exactly %d exercises\n\n", n)
	b.WriteString("Exercise guidelines:\n")
	b.WriteString("- Use only the available equipment\n")
	b.WriteString("- Target the specified muscle groups\n")
	b.WriteString("- Appropriate for the fitness goal\n")
	fmt.Fprintf(&b, "- Can be completed within %d minutes\n\n", in.Duration)
	fmt.Fprintf(&b, "Use %q as fitnessGoal and %s as muscleGroups.\n", goal, groups)
	b.WriteString("Respond with ONLY a JSON object matching this JSON Schema (no other text):\n")
	b.WriteString(replySchema)
	return b.String()
}

// --- Reply parsing ---

// parseReply extracts the first balanced JSON object from raw and checks it
// has a title and at least one exercise.
func parseReply(raw string) (*aiReply, error) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, errNoJSONObject
	}
	var reply aiReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if strings.TrimSpace(reply.Title) == "" {
		return nil, errMissingTitle
	}
	if len(reply.Exercises) == 0 {
		return nil, errNoExercises
	}
	return &reply, nil
}

// ExtractJSONObject returns the first balanced {...} in s, skipping braces
// inside JSON strings. Prose and code fences around it are ignored.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth, inString, escaped := 0, false, false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
		// Unbalanced from this brace; try the next one.
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return "", false
}

// flexInt accepts 8, 8.0 and "8". Anything else decodes to 0, which the
// exercise builder replaces with its default.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil || n < 0 {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// --- Exercise construction ---

// BuildExercises returns exactly n exercises: the drafts (defaults filled,
// truncated to n) followed by template exercises that cycle through
// muscleGroups. With no drafts this is the fallback workout.
func BuildExercises(drafts []ExerciseDraft, muscleGroups []string, n int) []domain.Exercise {
	if n <= 0 {
		return []domain.Exercise{}
	}
	if len(drafts) > n {
		drafts = drafts[:n]
	}
	if len(muscleGroups) == 0 {
		muscleGroups = []string{"full body"}
	}

	out := make([]domain.Exercise, 0, n)
	for _, d := range drafts {
		ex := domain.Exercise{
			Name:  strings.TrimSpace(d.Name),
			Sets:  d.Sets,
			Reps:  d.Reps,
			Notes: strings.TrimSpace(d.Notes),
		}
		if ex.Name == "" {
			ex.Name = DefaultExerciseName
		}
		if ex.Sets <= 0 {
			ex.Sets = DefaultSets
		}
		if ex.Reps <= 0 {
			ex.Reps = DefaultReps
		}
		out = append(out, ex)
	}

	caser := cases.Title(language.English)
	for k := 0; len(out) < n; k++ {
		group := muscleGroups[k%len(muscleGroups)]
		name := caser.String(group) + " Exercise"
		if round := k / len(muscleGroups); round > 0 {
			name += " " + strconv.Itoa(round+1)
		}
		out = append(out, domain.Exercise{
			Name:  name,
			Sets:  DefaultSets,
			Reps:  DefaultReps,
			Notes: "Targeting " + group,
		})
	}
	return out
}

// FallbackTitle title-cases the joined muscle groups: ["legs","abs"] -> "Legs, Abs Workout".
func FallbackTitle(muscleGroups []string) string {
	return cases.Title(language.English).String(strings.Join(muscleGroups, ", ")) + " Workout"
}
