package file

import (
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

type listQuery struct {
	FolderID string `form:"folder_id" binding:"omitempty,max=36"`
	Skip     int    `form:"skip" binding:"min=0"`
	Limit    int    `form:"limit" binding:"min=0,max=1000"`
}

// FileList returns a page of the caller's files in one folder. Without
// folder_id the root is listed.
func FileList(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	var folderID *string
	if q.FolderID != "" {
		folderID = &q.FolderID
	}

	files, err := d.Files.List(c.Request.Context(), userID, folderID, q.Skip, q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
	})
}
