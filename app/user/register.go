package user

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

type registerBody struct {
	User *service.AccountInput `json:"user"`
	service.AccountInput
}

// account returns the nested user object, falling back to top level fields
func (b *registerBody) account() service.AccountInput {
	if b.User != nil {
		return *b.User
	}

	return b.AccountInput
}

func UserRegister(c *gin.Context, d *internal.Deps) {
	var data registerBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	if _, err := d.Registrar.Register(c.Request.Context(), access.RoleUser, data.account(), nil); err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered and verification link sent to provided email.",
	})
}
