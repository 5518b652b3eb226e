package upload

import (
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

func UploadStatus(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	res, err := d.Uploader.Status(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
