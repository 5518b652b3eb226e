package file

import (
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/internal/service"
	"bitwise74/drive-api/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

func FileDownload(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	url, err := d.Files.DownloadURL(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int64(service.PresignExpiry.Seconds()),
	})
}
