package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"bitwise74/recipe-api/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const turnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// NewTurnstileMiddleware checks Cloudflare turnstile tokens sent in the
// TurnstileToken header. It does nothing when turnstile is disabled.
func NewTurnstileMiddleware(cfg config.TurnstileConfig) gin.HandlerFunc {
	return newTurnstileMiddleware(cfg, turnstileVerifyURL)
}

func newTurnstileMiddleware(cfg config.TurnstileConfig, verifyURL string) gin.HandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		requestID := c.GetString("requestID")

		token := c.Request.Header.Get("TurnstileToken")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Missing or invalid turnstile token",
				"requestID": requestID,
			})
			return
		}

		jsonBody, _ := json.Marshal(gin.H{
			"secret":   cfg.SecretToken,
			"response": token,
			"remoteip": c.ClientIP(),
		})

		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, verifyURL, bytes.NewReader(jsonBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Unauthorized",
				"requestID": requestID,
			})

			zap.L().Error("Failed to reach turnstile", zap.Error(err), zap.String("requestID", requestID))
			return
		}
		defer resp.Body.Close()

		var res turnstileResponse
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil || !res.Success {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Unauthorized",
				"requestID": requestID,
			})
			return
		}

		c.Next()
	}
}
