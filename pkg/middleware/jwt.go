package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewJWTMiddleware authenticates the bearer access token of a request and
// stores the resolved principal in the context
func NewJWTMiddleware(db *gorm.DB, sessions *service.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail":    "Authentication credentials were not provided.",
				"requestID": requestID,
			})
			return
		}

		claims, err := sessions.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail":    "Given token not valid for any token type",
				"requestID": requestID,
			})

			zap.L().Debug("Rejected access token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		// The account may have been deleted or deactivated after the token was issued
		var a model.Account
		err = db.WithContext(c.Request.Context()).
			Preload("Profile").
			Preload("Nutritionist").
			First(&a, claims.UserID).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"detail":    "User not found",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to load account", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if !a.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail":    "User is inactive",
				"requestID": requestID,
			})
			return
		}

		c.Set(access.ContextKey, access.Resolve(&a))
		c.Set("userID", strconv.FormatUint(uint64(a.ID), 10))
		c.Next()
	}
}
