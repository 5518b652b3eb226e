// Package upload contains the handlers driving a resumable multipart upload
package upload

import (
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/internal/service"
	"bitwise74/drive-api/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

type initiateBody struct {
	Filename    string  `json:"filename" binding:"required,max=255"`
	Size        int64   `json:"size" binding:"required,gt=0"`
	Fingerprint string  `json:"fingerprint" binding:"required,max=255"`
	MimeType    *string `json:"mime_type" binding:"omitempty,max=255"`
	FolderID    *string `json:"folder_id" binding:"omitempty,max=36"`
}

// UploadInitiate starts a new upload or resumes the one matching the
// fingerprint. Resumed uploads answer with 200 instead of 201.
func UploadInitiate(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var body initiateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	res, err := d.Uploader.Initiate(c.Request.Context(), service.InitiateRequest{
		OwnerID:     userID,
		Filename:    body.Filename,
		Size:        body.Size,
		Fingerprint: body.Fingerprint,
		MimeType:    body.MimeType,
		FolderID:    body.FolderID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}

	c.JSON(status, res)
}
