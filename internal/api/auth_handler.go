package api

import (
	"net/http"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

// RegisterRequest is validated by the service so that every missing field is reported at once.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Goal     string `json:"goal"`
}

// LoginRequest accepts the username or the email under either key.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries only the fields to change.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Goal     *string `json:"goal"`
}

// UserResponse excludes sensitive info like password hash
type UserResponse struct {
	ID        string             `json:"_id"`
	Username  string             `json:"username"`
	Email     string             `json:"email"`
	Goal      domain.FitnessGoal `json:"goal"`
	CreatedAt time.Time          `json:"createdAt"`
	LastLogin time.Time          `json:"lastLogin"`
}

type AuthData struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// AuthResponse wraps the token issued by register and login.
type AuthResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    AuthData `json:"data"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new user
// @Description Creates a new account and returns a signed token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration details"
// @Success 201 {object} AuthResponse "User created successfully"
// @Failure 400 {object} ErrorResponse "Invalid input (validation error)"
// @Failure 409 {object} ErrorResponse "Conflict (username or email already exists)"
// @Failure 500 {object} ErrorResponse "Internal Server Error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	token, user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Goal:     req.Goal,
	})
	if err != nil {
		respondError(c, err, "registering user")
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Success: true,
		Message: "User registered successfully",
		Data:    AuthData{Token: token, User: MapUserToResponse(user)},
	})
}

// Login godoc
// @Summary Log in a user
// @Description Authenticates by username or email and returns a JWT token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid input (validation error)"
// @Failure 401 {object} ErrorResponse "Unauthorized (invalid credentials)"
// @Failure 500 {object} ErrorResponse "Internal Server Error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}
	if login == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing required fields: username or email",
			Fields:  []string{"username"},
		})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), login, req.Password)
	if err != nil {
		respondError(c, err, "logging in")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		Data:    AuthData{Token: token, User: MapUserToResponse(user)},
	})
}

// GetProfile godoc
// @Summary Get the current user's profile
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), who.ID)
	if err != nil {
		respondError(c, err, "fetching profile")
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// UpdateProfile godoc
// @Summary Update the current user's profile
// @Description Changes username, email or goal. Omitted fields stay as they are.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 409 {object} ErrorResponse "Username or email taken"
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), who.ID, service.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Goal:     req.Goal,
	})
	if err != nil {
		respondError(c, err, "updating profile")
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// MapUserToResponse converts a domain User to a UserResponse DTO.
func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:        user.ID.Hex(),
		Username:  user.Username,
		Email:     user.Email,
		Goal:      user.Goal,
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	}
}
