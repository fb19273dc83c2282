// Package nutritionist contains the handlers of nutritionist accounts
package nutritionist

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

type registerBody struct {
	User service.AccountInput `json:"user"`
	service.NutritionistInput
}

func NutritionistRegister(c *gin.Context, d *internal.Deps) {
	var data registerBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	_, err := d.Registrar.Register(c.Request.Context(), access.RoleNutritionist, data.User, &data.NutritionistInput)
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Nutritionist registered and verification link sent to provided email.",
	})
}

func NutritionistMe(c *gin.Context, d *internal.Deps) {
	n, err := d.Accounts.Nutritionist(c.Request.Context(), httpx.Principal(c))
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, n)
}

func NutritionistUpdate(c *gin.Context, d *internal.Deps) {
	var data service.NutritionistUpdate
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	n, err := d.Accounts.UpdateNutritionist(c.Request.Context(), httpx.Principal(c), data)
	if err != nil {
		httpx.Error(c, err, "message")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nutritionist": n,
		"message":      "Profile updated successfully",
	})
}

// NutritionistList returns every verified nutritionist, staff only
func NutritionistList(c *gin.Context, d *internal.Deps) {
	out, err := d.Accounts.ListNutritionists(c.Request.Context())
	if err != nil {
		httpx.Error(c, err, "error")
		return
	}

	c.JSON(http.StatusOK, out)
}
