// Package middleware contains any custom middleware used in the app
package middleware

import (
	"bitwise74/drive-api/pkg/util"

	"github.com/gin-gonic/gin"
)

const RequestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware returns a new middleware function that generates a request ID for
// each incoming request, sets it as requestID and echoes it back in a header
func NewRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := util.RandStr(10)

		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
