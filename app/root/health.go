package root

import (
	"context"
	"net/http"
	"time"

	"bitwise74/auth-api/internal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Health reports whether the account store can be reached
func Health(c *gin.Context, d *internal.Deps) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := d.Auth.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":   false,
			"message":   "Database unavailable",
			"status":    "unavailable",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})

		zap.L().Warn("Health check failed", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "OK",
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
