// Package httpx contains helpers shared by the HTTP handlers
package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/service"
	"bitwise74/recipe-api/pkg/apperr"
	"bitwise74/recipe-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Error answers a service error under the given key, usually "error" or
// "detail". Internal and upstream failures are logged with their cause.
func Error(c *gin.Context, err error, key string) {
	requestID := c.GetString("requestID")

	switch apperr.KindOf(err) {
	case apperr.Internal, apperr.Upstream:
		zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
	default:
		zap.L().Debug("Request rejected", zap.Error(err), zap.String("requestID", requestID))
	}

	c.JSON(apperr.Status(err), gin.H{
		key:         apperr.Message(err),
		"requestID": requestID,
	})
}

// BadBody answers a request whose body couldn't be bound. Failed binding
// tags are answered with the offending fields.
func BadBody(c *gin.Context, err error) {
	requestID := c.GetString("requestID")

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     validators.FieldsError(err).Error(),
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":     "Invalid request body",
		"requestID": requestID,
	})

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
}

// ParseID reads the :id path parameter. It answers 404 and returns false
// when the parameter isn't a valid ID.
func ParseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"detail":    "Not found.",
			"requestID": c.GetString("requestID"),
		})
		return 0, false
	}

	return uint(id), true
}

// ListQuery reads the search and pagination query parameters
func ListQuery(c *gin.Context) service.ListQuery {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	return service.ListQuery{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	}
}

// Principal returns the caller set by the JWT middleware
func Principal(c *gin.Context) *access.Principal {
	return c.MustGet(access.ContextKey).(*access.Principal)
}
