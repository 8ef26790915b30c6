package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fittrack/server/internal/domain"
	"fittrack/server/internal/ratelimit"
	"fittrack/server/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Constants for context keys
const (
	ContextIdentityKey  = "identity"
	ContextRequestIDKey = "requestID"
	ContextLoggerKey    = "logger"

	HeaderRequestID = "X-Request-ID"
)

// RequestIDMiddleware reuses an incoming X-Request-ID or generates one, and
// echoes it on the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// LoggingMiddleware attaches a request-scoped logger and logs every request
// once it completes.
func LoggingMiddleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		entry := log.WithField("request_id", c.GetString(ContextRequestIDKey))
		c.Set(ContextLoggerKey, entry)

		c.Next()

		status := c.Writer.Status()
		fields := entry.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			fields.Error("request completed")
		case status >= http.StatusBadRequest:
			fields.Warn("request completed")
		default:
			fields.Info("request completed")
		}
	}
}

// CORSMiddleware allows the browser frontend at origin to call the API with credentials.
func CORSMiddleware(origin string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", HeaderRequestID},
		ExposeHeaders:    []string{HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// RateLimitMiddleware rejects clients over their quota with 429. A limiter
// error rejects the request with 500; it never lets the request through.
func RateLimitMiddleware(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			requestLogger(c).WithError(err).Error("rate limiter unavailable")
			abortWithError(c, http.StatusInternalServerError, "Internal server error", err.Error())
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int((res.RetryAfter+time.Second-1)/time.Second)))
			}
			abortWithError(c, http.StatusTooManyRequests, "Too many requests", "")
			return
		}
		c.Next()
	}
}

// AuthMiddleware resolves the bearer token to an identity and stores it in
// the context. There is no anonymous fallback.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Access token required", "")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}", "")
			return
		}

		identity, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				abortWithError(c, http.StatusUnauthorized, "Token expired", "")
			case errors.Is(err, service.ErrInvalidToken):
				abortWithError(c, http.StatusUnauthorized, "Invalid token", "")
			case errors.Is(err, service.ErrUserNotFound):
				abortWithError(c, http.StatusUnauthorized, "User not found", "")
			default:
				requestLogger(c).WithError(err).Error("auth middleware lookup failed")
				abortWithError(c, http.StatusInternalServerError, "Internal server error", err.Error())
			}
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Message string   `json:"message"`
	Error   string   `json:"error,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message, cause string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Message: message, Error: cause})
}

// getIdentity returns the identity stored by AuthMiddleware.
func getIdentity(c *gin.Context) (*domain.Identity, bool) {
	raw, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := raw.(*domain.Identity)
	return identity, ok && identity != nil
}

// mustIdentity aborts with 401 when no identity is present. Handlers behind
// AuthMiddleware always have one.
func mustIdentity(c *gin.Context) (*domain.Identity, bool) {
	identity, ok := getIdentity(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "Access token required", "")
	}
	return identity, ok
}

// requestLogger returns the logger set by LoggingMiddleware, or the standard logger.
func requestLogger(c *gin.Context) logrus.FieldLogger {
	if raw, ok := c.Get(ContextLoggerKey); ok {
		if l, ok := raw.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logrus.StandardLogger()
}
