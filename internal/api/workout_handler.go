package api

import (
	"net/http"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/service"

	"github.com/gin-gonic/gin"
)

// WorkoutHandler serves the workout log and the AI generator.
type WorkoutHandler struct {
	workoutService service.WorkoutService
	generator      service.Generator
}

// NewWorkoutHandler creates a new WorkoutHandler.
func NewWorkoutHandler(workoutService service.WorkoutService, generator service.Generator) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService, generator: generator}
}

// --- DTOs for API (Data Transfer Objects) ---

// ExerciseRequest is one exercise in a create or update body.
type ExerciseRequest struct {
	Name   string   `json:"name"`
	Sets   *int     `json:"sets"`
	Reps   *int     `json:"reps"`
	Weight *float64 `json:"weight"`
	Notes  string   `json:"notes"`
}

// CreateWorkoutRequest defines the expected JSON for logging a workout.
type CreateWorkoutRequest struct {
	Title        string            `json:"title"`
	MuscleGroups []string          `json:"muscleGroups"`
	Exercises    []ExerciseRequest `json:"exercises"`
	FitnessGoal  string            `json:"fitnessGoal"`
}

// UpdateWorkoutRequest allows partial updates. Absent fields are left unchanged.
type UpdateWorkoutRequest struct {
	Title        *string           `json:"title"`
	MuscleGroups []string          `json:"muscleGroups"`
	Exercises    []ExerciseRequest `json:"exercises"`
	FitnessGoal  *string           `json:"fitnessGoal"`
}

// GenerateWorkoutRequest asks for a workout for the given equipment, muscle groups and minutes.
type GenerateWorkoutRequest struct {
	Equipment    []string `json:"equipment"`
	MuscleGroups []string `json:"muscleGroups"`
	Duration     int      `json:"duration"`
}

type ExerciseResponse struct {
	Name   string   `json:"name"`
	Sets   int      `json:"sets"`
	Reps   int      `json:"reps"`
	Weight *float64 `json:"weight,omitempty"`
	Notes  string   `json:"notes,omitempty"`
}

// WorkoutResponse is the DTO for returning workout details.
type WorkoutResponse struct {
	ID            string             `json:"_id"`
	UserID        string             `json:"userId"`
	Title         string             `json:"title"`
	MuscleGroups  []string           `json:"muscleGroups"`
	Exercises     []ExerciseResponse `json:"exercises"`
	FitnessGoal   domain.FitnessGoal `json:"fitnessGoal"`
	GeneratedByAI bool               `json:"generatedByAI"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// --- Handler Methods ---

// ListWorkouts godoc
// @Summary List the caller's workouts
// @Description Newest first.
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} WorkoutResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal Server Error"
// @Router /workouts [get]
func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}

	workouts, err := h.workoutService.List(c.Request.Context(), who.ID)
	if err != nil {
		respondError(c, err, "fetching workouts")
		return
	}

	resp := make([]WorkoutResponse, 0, len(workouts))
	for i := range workouts {
		resp = append(resp, MapWorkoutToResponse(&workouts[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetWorkout godoc
// @Summary Get one workout
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workout ID"
// @Success 200 {object} WorkoutResponse
// @Failure 400 {object} ErrorResponse "Invalid ID format"
// @Failure 404 {object} ErrorResponse "Workout not found"
// @Router /workouts/{id} [get]
func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	workoutID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	workout, err := h.workoutService.Get(c.Request.Context(), who.ID, workoutID)
	if err != nil {
		respondError(c, err, "fetching workout")
		return
	}
	c.JSON(http.StatusOK, MapWorkoutToResponse(workout))
}

// CreateWorkout godoc
// @Summary Log a workout
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workout body CreateWorkoutRequest true "Workout details"
// @Success 201 {object} WorkoutResponse
// @Failure 400 {object} ErrorResponse "Missing required workout fields"
// @Failure 500 {object} ErrorResponse "Internal Server Error"
// @Router /workouts [post]
func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req CreateWorkoutRequest
	if !bindJSON(c, &req) {
		return
	}

	workout, err := h.workoutService.Create(c.Request.Context(), who.ID, service.WorkoutInput{
		Title:        req.Title,
		MuscleGroups: req.MuscleGroups,
		Exercises:    mapExerciseRequests(req.Exercises),
		FitnessGoal:  req.FitnessGoal,
	})
	if err != nil {
		respondError(c, err, "creating workout")
		return
	}
	c.JSON(http.StatusCreated, MapWorkoutToResponse(workout))
}

// UpdateWorkout godoc
// @Summary Update a workout
// @Description Partial update; owner and AI flag cannot change.
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workout ID"
// @Param workout body UpdateWorkoutRequest true "Fields to change"
// @Success 200 {object} WorkoutResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 404 {object} ErrorResponse "Workout not found"
// @Router /workouts/{id} [put]
func (h *WorkoutHandler) UpdateWorkout(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	workoutID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateWorkoutRequest
	if !bindJSON(c, &req) {
		return
	}

	workout, err := h.workoutService.Update(c.Request.Context(), who.ID, workoutID, service.WorkoutUpdate{
		Title:        req.Title,
		MuscleGroups: req.MuscleGroups,
		Exercises:    mapExerciseRequests(req.Exercises),
		FitnessGoal:  req.FitnessGoal,
	})
	if err != nil {
		respondError(c, err, "updating workout")
		return
	}
	c.JSON(http.StatusOK, MapWorkoutToResponse(workout))
}

// DeleteWorkout godoc
// @Summary Delete a workout
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workout ID"
// @Success 200 {object} gin.H "Workout deleted successfully!"
// @Failure 404 {object} ErrorResponse "Workout not found"
// @Router /workouts/{id} [delete]
func (h *WorkoutHandler) DeleteWorkout(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	workoutID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.workoutService.Delete(c.Request.Context(), who.ID, workoutID); err != nil {
		respondError(c, err, "deleting workout")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workout deleted successfully!"})
}

// GenerateWorkout godoc
// @Summary Generate a workout with AI
// @Description Asks the language model for a workout and stores it. Falls back to a template when the model is unavailable.
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GenerateWorkoutRequest true "Equipment, muscle groups and duration in minutes"
// @Success 201 {object} WorkoutResponse
// @Failure 400 {object} ErrorResponse "Missing required fields"
// @Failure 500 {object} ErrorResponse "Internal Server Error"
// @Router /workouts/ai [post]
func (h *WorkoutHandler) GenerateWorkout(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req GenerateWorkoutRequest
	if !bindJSON(c, &req) {
		return
	}

	workout, err := h.generator.Generate(c.Request.Context(), who, service.GenerateInput{
		Equipment:    req.Equipment,
		MuscleGroups: req.MuscleGroups,
		Duration:     req.Duration,
	})
	if err != nil {
		respondError(c, err, "generating workout")
		return
	}
	c.JSON(http.StatusCreated, MapWorkoutToResponse(workout))
}

// mapExerciseRequests keeps nil as nil so that an absent list is not an update.
func mapExerciseRequests(reqs []ExerciseRequest) []service.ExerciseInput {
	if reqs == nil {
		return nil
	}
	out := make([]service.ExerciseInput, len(reqs))
	for i, r := range reqs {
		out[i] = service.ExerciseInput{Name: r.Name, Sets: r.Sets, Reps: r.Reps, Weight: r.Weight, Notes: r.Notes}
	}
	return out
}

// MapWorkoutToResponse converts a domain Workout to its DTO.
func MapWorkoutToResponse(w *domain.Workout) WorkoutResponse {
	exercises := make([]ExerciseResponse, len(w.Exercises))
	for i, e := range w.Exercises {
		exercises[i] = ExerciseResponse{Name: e.Name, Sets: e.Sets, Reps: e.Reps, Weight: e.Weight, Notes: e.Notes}
	}
	muscleGroups := w.MuscleGroups
	if muscleGroups == nil {
		muscleGroups = []string{}
	}
	return WorkoutResponse{
		ID:            w.ID.Hex(),
		UserID:        w.UserID.Hex(),
		Title:         w.Title,
		MuscleGroups:  muscleGroups,
		Exercises:     exercises,
		FitnessGoal:   w.FitnessGoal,
		GeneratedByAI: w.GeneratedByAI,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}
