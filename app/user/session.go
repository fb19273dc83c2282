package user

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type logoutBody struct {
	RefreshToken string `json:"refresh_token"`
}

func UserLogout(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	p := httpx.Principal(c)

	var data logoutBody
	err := c.ShouldBindJSON(&data)
	if err == nil {
		err = d.Sessions.Revoke(c.Request.Context(), data.RefreshToken, p.Account.ID)
	}

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Error during logout. Please try again.",
			"requestID": requestID,
		})

		zap.L().Debug("Logout failed", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Status(http.StatusResetContent)
}

type refreshBody struct {
	Refresh string `json:"refresh"`
}

func UserRefresh(c *gin.Context, d *internal.Deps) {
	var data refreshBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	pair, err := d.Sessions.Rotate(c.Request.Context(), data.Refresh)
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, pair)
}
