package api

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"fittrack/server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var jsonFieldNamesOnce sync.Once

// useJSONFieldNames makes binding errors report the JSON names of fields.
func useJSONFieldNames() {
	jsonFieldNamesOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})
		}
	})
}

// bindJSON decodes the request body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	useJSONFieldNames()
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, io.EOF):
		abortWithError(c, http.StatusBadRequest, "Request body is required", "")
	case errors.As(err, &verrs):
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing required fields: " + strings.Join(fields, ", "),
			Error:   err.Error(),
			Fields:  fields,
		})
	default:
		abortWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}
	return false
}

// parseObjectIDParam reads a path parameter as an ObjectID. A malformed id is a 400.
func parseObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format", err.Error())
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondError maps a service error onto the HTTP error envelope. Anything
// unrecognised is logged and answered with 500, naming the failed action.
func respondError(c *gin.Context, err error, action string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: verr.Message,
			Error:   verr.Error(),
			Fields:  verr.Fields(),
		})
	case errors.Is(err, service.ErrNoFieldsToUpdate):
		abortWithError(c, http.StatusBadRequest, "No fields provided to update.", "")
	case errors.Is(err, service.ErrWorkoutNotFound):
		abortWithError(c, http.StatusNotFound, "Workout not found.", "")
	case errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, "Plan not found.", "")
	case errors.Is(err, service.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, "User not found", "")
	case errors.Is(err, service.ErrUserAlreadyExists):
		abortWithError(c, http.StatusConflict, "User already exists", err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, "Invalid credentials", "")
	default:
		requestLogger(c).WithError(err).Errorf("error %s", action)
		abortWithError(c, http.StatusInternalServerError, "Error "+action, err.Error())
	}
}
