package user

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

func UserMe(c *gin.Context, d *internal.Deps) {
	profile, err := d.Accounts.Me(c.Request.Context(), httpx.Principal(c))
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	if profile.SavedRecipes == nil {
		profile.SavedRecipes = []model.Recipe{}
	}

	c.JSON(http.StatusOK, profile)
}

func UserUpdate(c *gin.Context, d *internal.Deps) {
	var data service.AccountUpdate
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	a, err := d.Accounts.Update(c.Request.Context(), httpx.Principal(c).Account, data)
	if err != nil {
		httpx.Error(c, err, "message")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    a,
		"message": "Profile updated successfully",
	})
}

func UserDelete(c *gin.Context, d *internal.Deps) {
	if err := d.Accounts.Delete(c.Request.Context(), httpx.Principal(c), c.Param("username")); err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Account deleted successfully!",
	})
}

type profileSummary struct {
	User       model.Summary `json:"user"`
	IsVerified bool          `json:"is_verified"`
}

// UserList returns every verified user profile, staff only
func UserList(c *gin.Context, d *internal.Deps) {
	profiles, err := d.Accounts.ListProfiles(c.Request.Context())
	if err != nil {
		httpx.Error(c, err, "error")
		return
	}

	out := make([]profileSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileSummary{
			User:       p.Account.Summary(),
			IsVerified: p.IsVerified,
		})
	}

	c.JSON(http.StatusOK, out)
}
