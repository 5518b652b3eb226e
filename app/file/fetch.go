// Package file contains the handlers for files whose upload has finished
package file

import (
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

func FileFetch(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	file, err := d.Files.Fetch(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, file)
}
