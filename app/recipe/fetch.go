package recipe

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

func RecipeFetch(c *gin.Context, d *internal.Deps) {
	id, ok := httpx.ParseID(c)
	if !ok {
		return
	}

	r, err := d.Catalog.Get(c.Request.Context(), httpx.Principal(c), id)
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, r)
}

// RecipeList returns a handler listing one partition of the catalog
func RecipeList(part service.Partition, d *internal.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := d.Catalog.List(c.Request.Context(), httpx.Principal(c), part, httpx.ListQuery(c))
		if err != nil {
			httpx.Error(c, err, "detail")
			return
		}

		c.JSON(http.StatusOK, out)
	}
}
