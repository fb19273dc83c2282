package recipe

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

// RecipeCreate accepts either JSON or a multipart form with an optional image
func RecipeCreate(c *gin.Context, d *internal.Deps) {
	var data service.RecipeInput
	if err := c.ShouldBind(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	if isMultipart(c) {
		key, ok := uploadImage(c, d)
		if !ok {
			return
		}
		data.Image = key
	}

	r, err := d.Catalog.Create(c.Request.Context(), httpx.Principal(c), data)
	if err != nil {
		discardImage(c, d, data.Image)
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Recipe added successfully",
		"recipe":  r,
	})
}
