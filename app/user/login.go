package user

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

type loginBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	var (
		res *service.LoginResult
		err error
	)

	if data.Username == "" && data.Email != "" {
		res, err = d.Auth.LoginByEmail(c.Request.Context(), data.Email, data.Password)
	} else {
		res, err = d.Auth.Login(c.Request.Context(), data.Username, data.Password)
	}
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, res)
}
