package recipe

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

func RecipeUpdate(c *gin.Context, d *internal.Deps) {
	id, ok := httpx.ParseID(c)
	if !ok {
		return
	}

	var data service.RecipePatch
	if err := c.ShouldBind(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	var uploaded string
	if isMultipart(c) {
		key, ok := uploadImage(c, d)
		if !ok {
			return
		}

		if key != "" {
			uploaded = key
			data.Image = &uploaded
		}
	}

	r, err := d.Catalog.Update(c.Request.Context(), httpx.Principal(c), id, data)
	if err != nil {
		discardImage(c, d, uploaded)
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Recipe updated successfully",
		"recipe":  r,
	})
}

func RecipeDelete(c *gin.Context, d *internal.Deps) {
	id, ok := httpx.ParseID(c)
	if !ok {
		return
	}

	if err := d.Catalog.Delete(c.Request.Context(), httpx.Principal(c), id); err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.Status(http.StatusNoContent)
}
