package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this username or email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid username/email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrUserNotFound         = errors.New("user not found")
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
	// MaxPasswordLength is in bytes; bcrypt rejects longer input.
	MaxPasswordLength = 72

	tokenIssuer = "fittrack"
)

var validate = validator.New()

// RegisterInput is the raw registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Goal     string
}

// ProfileUpdate holds the optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Goal     *string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (token string, user *domain.User, err error)
	// Login accepts either the username or the email as login.
	Login(ctx context.Context, login, password string) (token string, user *domain.User, err error)
	// Authenticate resolves a bearer token to the identity of an existing user.
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, upd ProfileUpdate) (*domain.User, error)
}

// --- Service Implementation ---

// authService implements the AuthService interface.
type authService struct {
	userRepo      repository.UserRepository
	jwtSecret     []byte
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // config validation rejects this earlier
	}
	if jwtExpiration <= 0 {
		jwtExpiration = 7 * 24 * time.Hour
	}
	return &authService{
		userRepo:      userRepo,
		jwtSecret:     []byte(jwtSecret),
		jwtExpiration: jwtExpiration,
	}
}

// Register handles new user registration and signs the first token.
func (s *authService) Register(ctx context.Context, in RegisterInput) (string, *domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	// 1. Input validation
	var v validationErrors
	if username == "" {
		v.miss("username")
	}
	if email == "" {
		v.miss("email")
	}
	if in.Password == "" {
		v.miss("password")
	}
	if strings.TrimSpace(in.Goal) == "" {
		v.miss("goal")
	}
	if username != "" && !validUsername(username) {
		v.invalidate("username")
	}
	if email != "" && !validEmail(email) {
		v.invalidate("email")
	}
	if in.Password != "" && (utf8.RuneCountInString(in.Password) < MinPasswordLength || len(in.Password) > MaxPasswordLength) {
		v.invalidate("password")
	}
	goal, goalOK := domain.ParseFitnessGoal(in.Goal)
	if strings.TrimSpace(in.Goal) != "" && !goalOK {
		v.invalidate("goal")
	}
	if err := v.err("Invalid registration details"); err != nil {
		return "", nil, err
	}

	// 2. Check if the username or email is already taken
	taken, err := s.userRepo.ExistsByUsernameOrEmail(ctx, username, email, primitive.NilObjectID)
	if err != nil {
		return "", nil, err
	}
	if taken {
		return "", nil, ErrUserAlreadyExists
	}

	// 3. Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, ErrHashingFailed
	}

	// 4. Save the user; the unique indexes catch a concurrent registration
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Goal:         goal,
	}
	if _, err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", nil, ErrUserAlreadyExists
		}
		return "", nil, err
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}
	user.PasswordHash = ""
	return token, user, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, login, password string) (string, *domain.User, error) {
	login = strings.TrimSpace(login)

	// 1. Basic Input Validation
	var v validationErrors
	if login == "" {
		v.miss("username")
	}
	if password == "" {
		v.miss("password")
	}
	if err := v.err("Username/email and password are required"); err != nil {
		return "", nil, err
	}

	// 2. Fetch user by username or email
	user, err := s.userRepo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrAuthenticationFailed
		}
		return "", nil, err
	}

	// 3. Compare the provided password with the stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	// 4. Record the login
	user, err = s.userRepo.TouchLastLogin(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}
	user.PasswordHash = ""
	return token, user, nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*domain.Identity, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up token user: %w", err)
	}
	return user.Identity(), nil
}

func (s *authService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, upd ProfileUpdate) (*domain.User, error) {
	if upd.Username == nil && upd.Email == nil && upd.Goal == nil {
		return nil, ErrNoFieldsToUpdate
	}

	var (
		v               validationErrors
		username, email *string
		goal            *domain.FitnessGoal
	)
	if upd.Username != nil {
		u := strings.TrimSpace(*upd.Username)
		if !validUsername(u) {
			v.invalidate("username")
		}
		username = &u
	}
	if upd.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*upd.Email))
		if !validEmail(e) {
			v.invalidate("email")
		}
		email = &e
	}
	if upd.Goal != nil {
		g, ok := domain.ParseFitnessGoal(*upd.Goal)
		if !ok {
			v.invalidate("goal")
		}
		goal = &g
	}
	if err := v.err("Invalid profile details"); err != nil {
		return nil, err
	}

	if username != nil || email != nil {
		taken, err := s.userRepo.ExistsByUsernameOrEmail(ctx, deref(username), deref(email), userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUserAlreadyExists
		}
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, username, email, goal)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID: user.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func validUsername(u string) bool {
	n := utf8.RuneCountInString(u)
	return n >= MinUsernameLength && n <= MaxUsernameLength
}

func validEmail(e string) bool {
	return validate.Var(e, "required,email") == nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
