package upload

import (
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

func UploadAbort(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	if err := d.Uploader.Abort(c.Request.Context(), c.Param("id"), userID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
