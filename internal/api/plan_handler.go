package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanHandler serves workout plans and their workout references.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

// CreatePlanRequest defines the expected JSON for creating a plan.
// StartDate accepts RFC 3339 or a plain YYYY-MM-DD date.
type CreatePlanRequest struct {
	Title           string  `json:"title"`
	Duration        *int    `json:"duration"`
	WorkoutsPerWeek *int    `json:"workoutsPerWeek"`
	EquipmentAccess string  `json:"equipmentAccess"`
	FitnessGoal     string  `json:"fitnessGoal"`
	IsActive        *bool   `json:"isActive"`
	StartDate       *string `json:"startDate"`
	Notes           string  `json:"notes"`
}

// UpdatePlanRequest allows partial updates.
type UpdatePlanRequest struct {
	Title           *string `json:"title"`
	Duration        *int    `json:"duration"`
	WorkoutsPerWeek *int    `json:"workoutsPerWeek"`
	EquipmentAccess *string `json:"equipmentAccess"`
	FitnessGoal     *string `json:"fitnessGoal"`
	IsActive        *bool   `json:"isActive"`
	StartDate       *string `json:"startDate"`
	Notes           *string `json:"notes"`
}

type PlanWorkoutRequest struct {
	WorkoutID string `json:"workoutId" binding:"required"`
}

// PlanResponse is a plan with its workouts populated.
type PlanResponse struct {
	ID              string             `json:"_id"`
	UserID          string             `json:"userId"`
	Title           string             `json:"title"`
	Duration        int                `json:"duration"`
	WorkoutsPerWeek int                `json:"workoutsPerWeek"`
	EquipmentAccess domain.Equipment   `json:"equipmentAccess"`
	FitnessGoal     domain.FitnessGoal `json:"fitnessGoal"`
	Workouts        []WorkoutResponse  `json:"workouts"`
	IsActive        bool               `json:"isActive"`
	StartDate       time.Time          `json:"startDate"`
	EndDate         time.Time          `json:"endDate"`
	Notes           string             `json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// --- Handler Methods ---

// ListPlans godoc
// @Summary List the caller's plans
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} PlanResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}

	plans, err := h.planService.List(c.Request.Context(), who.ID)
	if err != nil {
		respondError(c, err, "fetching plans")
		return
	}

	resp := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		resp = append(resp, MapPlanToResponse(&plans[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetPlan godoc
// @Summary Get one plan
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Success 200 {object} PlanResponse
// @Failure 404 {object} ErrorResponse "Plan not found"
// @Router /plans/{id} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	planID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	details, err := h.planService.Get(c.Request.Context(), who.ID, planID)
	if err != nil {
		respondError(c, err, "fetching plan")
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(details))
}

// CreatePlan godoc
// @Summary Create a plan
// @Description The end date is derived from the start date and duration in weeks.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body CreatePlanRequest true "Plan details"
// @Success 201 {object} PlanResponse
// @Failure 400 {object} ErrorResponse "Missing required plan fields"
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req CreatePlanRequest
	if !bindJSON(c, &req) {
		return
	}
	start, ok := parseStartDate(c, req.StartDate)
	if !ok {
		return
	}

	details, err := h.planService.Create(c.Request.Context(), who.ID, service.PlanInput{
		Title:           req.Title,
		Duration:        req.Duration,
		WorkoutsPerWeek: req.WorkoutsPerWeek,
		EquipmentAccess: req.EquipmentAccess,
		FitnessGoal:     req.FitnessGoal,
		IsActive:        req.IsActive,
		StartDate:       start,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, err, "creating plan")
		return
	}
	c.JSON(http.StatusCreated, MapPlanToResponse(details))
}

// UpdatePlan godoc
// @Summary Update a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Param plan body UpdatePlanRequest true "Fields to change"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 404 {object} ErrorResponse "Plan not found"
// @Router /plans/{id} [put]
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	planID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePlanRequest
	if !bindJSON(c, &req) {
		return
	}
	start, ok := parseStartDate(c, req.StartDate)
	if !ok {
		return
	}

	details, err := h.planService.Update(c.Request.Context(), who.ID, planID, service.PlanUpdate{
		Title:           req.Title,
		Duration:        req.Duration,
		WorkoutsPerWeek: req.WorkoutsPerWeek,
		EquipmentAccess: req.EquipmentAccess,
		FitnessGoal:     req.FitnessGoal,
		IsActive:        req.IsActive,
		StartDate:       start,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, err, "updating plan")
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(details))
}

// DeletePlan godoc
// @Summary Delete a plan
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Success 200 {object} gin.H "Plan deleted successfully!"
// @Failure 404 {object} ErrorResponse "Plan not found"
// @Router /plans/{id} [delete]
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	planID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.planService.Delete(c.Request.Context(), who.ID, planID); err != nil {
		respondError(c, err, "deleting plan")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted successfully!"})
}

// AddWorkoutToPlan godoc
// @Summary Add a workout to a plan
// @Description Adding a workout that is already in the plan changes nothing.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Param body body PlanWorkoutRequest true "Workout to add"
// @Success 200 {object} PlanResponse
// @Failure 404 {object} ErrorResponse "Plan or workout not found"
// @Router /plans/{id}/workouts [post]
func (h *PlanHandler) AddWorkoutToPlan(c *gin.Context) {
	h.changeWorkouts(c, h.planService.AddWorkout, "adding workout to plan")
}

// RemoveWorkoutFromPlan godoc
// @Summary Remove a workout from a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Param body body PlanWorkoutRequest true "Workout to remove"
// @Success 200 {object} PlanResponse
// @Failure 404 {object} ErrorResponse "Plan not found"
// @Router /plans/{id}/workouts [delete]
func (h *PlanHandler) RemoveWorkoutFromPlan(c *gin.Context) {
	h.changeWorkouts(c, h.planService.RemoveWorkout, "removing workout from plan")
}

type planWorkoutOp func(ctx context.Context, ownerID, planID, workoutID primitive.ObjectID) (*service.PlanDetails, error)

func (h *PlanHandler) changeWorkouts(c *gin.Context, op planWorkoutOp, action string) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	planID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	var req PlanWorkoutRequest
	if !bindJSON(c, &req) {
		return
	}
	workoutID, err := primitive.ObjectIDFromHex(req.WorkoutID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workoutId format", err.Error())
		return
	}

	details, err := op(c.Request.Context(), who.ID, planID, workoutID)
	if err != nil {
		respondError(c, err, action)
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(details))
}

// parseStartDate accepts RFC 3339 timestamps and YYYY-MM-DD dates.
func parseStartDate(c *gin.Context, raw *string) (*time.Time, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	s := strings.TrimSpace(*raw)
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Message: "Invalid plan fields",
		Error:   "startDate must be an RFC 3339 timestamp or a YYYY-MM-DD date",
		Fields:  []string{"startDate"},
	})
	return nil, false
}

// MapPlanToResponse converts plan details to the DTO.
func MapPlanToResponse(d *service.PlanDetails) PlanResponse {
	p := d.Plan
	workouts := make([]WorkoutResponse, 0, len(d.Workouts))
	for i := range d.Workouts {
		workouts = append(workouts, MapWorkoutToResponse(&d.Workouts[i]))
	}
	return PlanResponse{
		ID:              p.ID.Hex(),
		UserID:          p.UserID.Hex(),
		Title:           p.Title,
		Duration:        p.Duration,
		WorkoutsPerWeek: p.WorkoutsPerWeek,
		EquipmentAccess: p.EquipmentAccess,
		FitnessGoal:     p.FitnessGoal,
		Workouts:        workouts,
		IsActive:        p.IsActive,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
