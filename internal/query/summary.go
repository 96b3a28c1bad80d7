package query

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitewatch/auditlog/internal/digest"
)

// SendSummaryNowHandler compiles a report for today so far and queues it
// immediately, regardless of the regular schedule. The response mirrors the
// admin UI's expected shape rather than the standard envelope.
func SendSummaryNowHandler(sched *digest.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		msg, err := sched.SendNow(ctx)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"data":    "The report could not be sent. Please check the server logs for details.",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": msg})
	}
}
