package recipe

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

type generateBody struct {
	Ingredients string `json:"ingredients"`
}

func RecipeGenerate(c *gin.Context, d *internal.Deps) {
	var data generateBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	text, err := service.GenerateRecipe(c.Request.Context(), d.Generator, data.Ingredients)
	if err != nil {
		httpx.Error(c, err, "error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipe": text,
	})
}
