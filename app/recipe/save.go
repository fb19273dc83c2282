package recipe

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"

	"github.com/gin-gonic/gin"
)

func RecipeSave(c *gin.Context, d *internal.Deps) {
	id, ok := httpx.ParseID(c)
	if !ok {
		return
	}

	if err := d.Catalog.Save(c.Request.Context(), httpx.Principal(c), id); err != nil {
		httpx.Error(c, err, "message")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Recipe saved successfully.",
	})
}

func RecipeUnsave(c *gin.Context, d *internal.Deps) {
	id, ok := httpx.ParseID(c)
	if !ok {
		return
	}

	if err := d.Catalog.Unsave(c.Request.Context(), httpx.Principal(c), id); err != nil {
		httpx.Error(c, err, "message")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Recipe removed successfully.",
	})
}
