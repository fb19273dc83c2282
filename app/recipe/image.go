// Package recipe contains the handlers of the recipe catalog
package recipe

import (
	"errors"
	"net/http"

	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/storage"
	"bitwise74/recipe-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// isMultipart reports whether the request carries a form with a possible image
func isMultipart(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEMultipartPOSTForm
}

// uploadImage stores the optional "image" form file. It returns an empty
// key when no image was sent and false when it already answered the request.
func uploadImage(c *gin.Context, d *internal.Deps) (string, bool) {
	requestID := c.MustGet("requestID").(string)

	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", true
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid image upload",
			"requestID": requestID,
		})

		zap.L().Debug("Failed to read form file", zap.Error(err), zap.String("requestID", requestID))
		return "", false
	}

	code, f, mime, err := validators.ImageValidator(fh, d.Cfg.Upload.MaxSize)
	if err != nil {
		if code == http.StatusInternalServerError {
			c.JSON(code, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to validate image", zap.Error(err), zap.String("requestID", requestID))
			return "", false
		}

		c.JSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return "", false
	}
	defer f.Close()

	key, err := storage.NewImageKey(mime.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate image key", zap.Error(err), zap.String("requestID", requestID))
		return "", false
	}

	if err := d.Images.Put(c.Request.Context(), key, f, mime.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to store image", zap.Error(err), zap.String("requestID", requestID))
		return "", false
	}

	return key, true
}

// discardImage removes an uploaded image whose recipe couldn't be saved
func discardImage(c *gin.Context, d *internal.Deps, key string) {
	if key == "" {
		return
	}

	if err := d.Images.Delete(c.Request.Context(), key); err != nil {
		zap.L().Error("Failed to delete orphaned image", zap.String("key", key), zap.Error(err))
	}
}
