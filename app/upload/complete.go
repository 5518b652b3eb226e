package upload

import (
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/internal/model"
	"bitwise74/drive-api/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

type completedPart struct {
	PartNumber int32  `json:"part_number" binding:"required,gt=0"`
	ETag       string `json:"etag" binding:"required"`
}

type completeBody struct {
	Parts []completedPart `json:"parts" binding:"required,min=1,dive"`
}

func UploadComplete(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var body completeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	parts := make([]model.CompletedPart, len(body.Parts))
	for i, p := range body.Parts {
		parts[i] = model.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}

	file, err := d.Uploader.Complete(c.Request.Context(), c.Param("id"), userID, parts)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, file)
}
