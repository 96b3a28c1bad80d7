package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Encoding, X-Requested-With, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

// maintenanceMiddleware gates the admin API during database maintenance.
// Sensor ingest stays open: those handlers only touch the queue, and site
// activity lost during a maintenance window cannot be recovered afterwards.
func maintenanceMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		switch {
		case path == "/healthz" || path == "/api/status":
			c.Next()
		case strings.HasPrefix(path, "/ingest/"):
			c.Next()
		case strings.HasPrefix(path, "/api/") || path == "/api":
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "err": "maintenance"})
			c.Abort()
		default:
			c.String(http.StatusServiceUnavailable, "maintenance")
			c.Abort()
		}
	}
}
