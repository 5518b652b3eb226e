package upload

import (
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/pkg/response"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type acknowledgeBody struct {
	ETag string `json:"etag" binding:"required"`
}

func partNumber(c *gin.Context) (int32, bool) {
	n, err := strconv.ParseInt(c.Param("number"), 10, 32)
	if err != nil {
		response.BadRequest(c, "Part number must be an integer")
		return 0, false
	}

	return int32(n), true
}

// UploadPresignPart returns a URL the client uploads the part's bytes to
func UploadPresignPart(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	n, ok := partNumber(c)
	if !ok {
		return
	}

	res, err := d.Uploader.PresignPart(c.Request.Context(), c.Param("id"), userID, n)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// UploadAcknowledgePart records the ETag the storage returned for a part
func UploadAcknowledgePart(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	n, ok := partNumber(c)
	if !ok {
		return
	}

	var body acknowledgeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	res, err := d.Uploader.AcknowledgePart(c.Request.Context(), c.Param("id"), userID, n, body.ETag)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
