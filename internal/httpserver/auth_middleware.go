package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitewatch/auditlog/internal/auth"
)

const ctxAdminIDKey = "admin_id"

func RequireUser(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
		if token == "" {
			c.Status(http.StatusUnauthorized)
			c.Abort()
			return
		}

		claims, ok := auth.VerifyToken(secret, token, time.Now())
		if !ok {
			c.Status(http.StatusUnauthorized)
			c.Abort()
			return
		}
		c.Set(ctxAdminIDKey, claims.AdminID)
		c.Next()
	}
}
