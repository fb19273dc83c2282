package user

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"

	"github.com/gin-gonic/gin"
)

func UserVerify(c *gin.Context, d *internal.Deps) {
	err := d.Verifier.Confirm(c.Request.Context(), c.Param("id_token"), c.Param("verify_token"))
	if err != nil {
		httpx.Error(c, err, "error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User verified successfully",
	})
}

type resendBody struct {
	Email string `json:"email"`
}

func UserVerifyResend(c *gin.Context, d *internal.Deps) {
	var data resendBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	if err := d.Verifier.Resend(c.Request.Context(), data.Email); err != nil {
		httpx.Error(c, err, "error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If an unverified account uses this email, a new verification link has been sent.",
	})
}
