package root

import (
	"bitwise74/drive-api/internal"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Heartbeat reports whether the server can still reach its database
func Heartbeat(c *gin.Context, d *internal.Deps) {
	sqlDB, err := d.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}

	if err != nil {
		zap.L().Error("Heartbeat failed to reach database", zap.Error(err))
		c.Status(http.StatusServiceUnavailable)
		return
	}

	c.Status(http.StatusOK)
}
