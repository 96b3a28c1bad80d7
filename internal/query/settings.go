package query

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitewatch/auditlog/internal/store"
)

func GetSettingHandler(settings *store.Settings) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.Param("name"))
		if name == "" {
			respondErr(c, http.StatusBadRequest, "missing setting name")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		respondOK(c, gin.H{
			"name":  name,
			"value": settings.Get(ctx, name, ""),
		})
	}
}

func SetSettingHandler(settings *store.Settings) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			respondErr(c, http.StatusBadRequest, "missing setting name")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := settings.Set(ctx, req.Name, req.Value); err != nil {
			respondErr(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondOK(c, gin.H{"name": req.Name, "value": req.Value})
	}
}
