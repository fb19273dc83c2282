// Package blog contains the handlers of nutritionist blogs and their review
package blog

import (
	"net/http"

	"bitwise74/recipe-api/app/httpx"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

// BlogCreate ignores any status in the body, new blogs are always pending
func BlogCreate(c *gin.Context, d *internal.Deps) {
	var data service.BlogInput
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	b, err := d.Moderation.Create(c.Request.Context(), httpx.Principal(c), data)
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Blog added successfully and sent for review",
		"blog":    b,
	})
}

func BlogUpdate(c *gin.Context, d *internal.Deps) {
	id, ok := httpx.ParseID(c)
	if !ok {
		return
	}

	var data service.BlogPatch
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	b, err := d.Moderation.UpdateContent(c.Request.Context(), httpx.Principal(c), id, data)
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Blog updated successfully and sent for review",
		"blog":    b,
	})
}

type statusBody struct {
	Status string `json:"status"`
}

func BlogStatusUpdate(c *gin.Context, d *internal.Deps) {
	id, ok := httpx.ParseID(c)
	if !ok {
		return
	}

	var data statusBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httpx.BadBody(c, err)
		return
	}

	b, err := d.Moderation.UpdateStatus(c.Request.Context(), httpx.Principal(c), id, data.Status)
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Blog status updated successfully",
		"blog":    b,
	})
}

func BlogDelete(c *gin.Context, d *internal.Deps) {
	id, ok := httpx.ParseID(c)
	if !ok {
		return
	}

	if err := d.Moderation.Delete(c.Request.Context(), httpx.Principal(c), id); err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.Status(http.StatusNoContent)
}

func BlogApproved(c *gin.Context, d *internal.Deps) {
	out, err := d.Moderation.ListApproved(c.Request.Context(), httpx.ListQuery(c))
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, out)
}

func BlogByStatus(c *gin.Context, d *internal.Deps) {
	out, err := d.Moderation.ListByStatus(c.Request.Context(), httpx.Principal(c), c.Param("status"), httpx.ListQuery(c))
	if err != nil {
		httpx.Error(c, err, "detail")
		return
	}

	c.JSON(http.StatusOK, out)
}
