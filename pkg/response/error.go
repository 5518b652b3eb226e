// Package response turns service errors into JSON error bodies
package response

import (
	"bitwise74/drive-api/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Status maps an error returned by the service layer to an HTTP status code
func Status(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	// A failed finalize wraps both storage errors and has to read as rejected
	case errors.Is(err, service.ErrStorageRejected):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts the request with a body describing err. Anything the client
// can't act on is logged and masked.
func Error(c *gin.Context, err error) {
	requestID := c.GetString("requestID")
	status := Status(err)

	msg := err.Error()

	switch status {
	case http.StatusInternalServerError:
		msg = "Internal server error"
		zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
	case http.StatusServiceUnavailable:
		msg = "Storage is temporarily unavailable, try again later"
		zap.L().Warn("Storage unavailable", zap.Error(err), zap.String("requestID", requestID))
	case http.StatusBadGateway:
		msg = "Storage rejected the request"
		zap.L().Warn("Storage rejected request", zap.Error(err), zap.String("requestID", requestID))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     msg,
		"requestID": requestID,
	})
}

// BadRequest is used for requests that fail binding before reaching the service
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":     msg,
		"requestID": c.GetString("requestID"),
	})
}
