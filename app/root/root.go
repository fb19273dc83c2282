// Package root contains the handlers that aren't tied to a resource
package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Heartbeat answers as long as the server is up
func Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Validate only answers when the JWT middleware let the request through
func Validate(c *gin.Context) {
	c.Status(http.StatusOK)
}
