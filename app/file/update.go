package file

import (
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/internal/service"
	"bitwise74/drive-api/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

type updateBody struct {
	Name     *string `json:"name" binding:"omitempty,max=255"`
	FolderID *string `json:"folder_id" binding:"omitempty,max=36"`
	// Moves the file out of any folder. Can't be combined with folder_id
	ToRoot bool `json:"to_root"`
}

// FileUpdate renames a file and/or moves it to another folder
func FileUpdate(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var body updateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if body.ToRoot && body.FolderID != nil {
		response.BadRequest(c, "folder_id and to_root are mutually exclusive")
		return
	}

	if body.Name == nil && body.FolderID == nil && !body.ToRoot {
		response.BadRequest(c, "Nothing to update")
		return
	}

	file, err := d.Files.Update(c.Request.Context(), c.Param("id"), userID, service.FileChanges{
		Name:     body.Name,
		Move:     body.ToRoot || body.FolderID != nil,
		FolderID: body.FolderID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, file)
}
