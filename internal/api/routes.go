package api

import (
	"time"

	"fittrack/server/internal/ratelimit"
	"fittrack/server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Dependencies are what the router needs from main.
type Dependencies struct {
	AuthService    service.AuthService
	WorkoutService service.WorkoutService
	PlanService    service.PlanService
	Generator      service.Generator

	// Limiter may be nil, which disables the rate gate.
	Limiter       ratelimit.Limiter
	AllowedOrigin string
	Logger        logrus.FieldLogger
	StartedAt     time.Time
}

// NewRouter builds the engine with the global middleware chain and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(log))
	router.Use(CORSMiddleware(deps.AllowedOrigin))
	if deps.Limiter != nil {
		router.Use(RateLimitMiddleware(deps.Limiter))
	}

	SetupRoutes(router, deps)
	return router
}

// SetupRoutes registers every endpoint under /api.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := NewAuthHandler(deps.AuthService)
	workoutHandler := NewWorkoutHandler(deps.WorkoutService, deps.Generator)
	planHandler := NewPlanHandler(deps.PlanService)

	authMiddleware := AuthMiddleware(deps.AuthService)

	startedAt := deps.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", HealthCheck(startedAt))

		// --- Auth Routes ---
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.GET("/profile", authMiddleware, authHandler.GetProfile)
			authGroup.PUT("/profile", authMiddleware, authHandler.UpdateProfile)
		}
	}

	protected := apiGroup.Group("")
	protected.Use(authMiddleware)
	{
		// --- Workout Routes ---
		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.GET("", workoutHandler.ListWorkouts)
			workoutGroup.POST("", workoutHandler.CreateWorkout)
			workoutGroup.POST("/ai", workoutHandler.GenerateWorkout)
			workoutGroup.GET("/:id", workoutHandler.GetWorkout)
			workoutGroup.PUT("/:id", workoutHandler.UpdateWorkout)
			workoutGroup.DELETE("/:id", workoutHandler.DeleteWorkout)
		}

		// --- Plan Routes ---
		planGroup := protected.Group("/plans")
		{
			planGroup.GET("", planHandler.ListPlans)
			planGroup.POST("", planHandler.CreatePlan)
			planGroup.GET("/:id", planHandler.GetPlan)
			planGroup.PUT("/:id", planHandler.UpdatePlan)
			planGroup.DELETE("/:id", planHandler.DeletePlan)
			planGroup.POST("/:id/workouts", planHandler.AddWorkoutToPlan)
			planGroup.DELETE("/:id/workouts", planHandler.RemoveWorkoutFromPlan)
		}
	}
}
