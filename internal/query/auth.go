package query

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitewatch/auditlog/internal/auth"
	"github.com/sitewatch/auditlog/internal/store"
	"gorm.io/gorm"
)

type AdminDTO struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// BootstrapHandler creates the first admin account. Rejected once any admin
// exists.
func BootstrapHandler(db *gorm.DB, authSecret []byte, tokenTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			respondErr(c, http.StatusNotImplemented, "database not configured")
			return
		}
		if len(authSecret) == 0 {
			respondErr(c, http.StatusServiceUnavailable, "AUTH_SECRET not configured")
			return
		}

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, http.StatusBadRequest, err.Error())
			return
		}
		req.Email = strings.TrimSpace(req.Email)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		n, err := store.CountAdmins(ctx, db)
		if err != nil {
			respondErr(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		if n > 0 {
			respondErr(c, http.StatusConflict, "already initialized")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondErr(c, http.StatusBadRequest, err.Error())
			return
		}
		uid, err := store.CreateAdmin(ctx, db, req.Email, hash)
		if err != nil {
			respondErr(c, http.StatusServiceUnavailable, err.Error())
			return
		}

		token, err := auth.SignToken(authSecret, uid, time.Now().Add(tokenTTL))
		if err != nil {
			respondErr(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondOK(c, gin.H{
			"token": token,
			"admin": AdminDTO{ID: uid, Email: strings.ToLower(req.Email)},
		})
	}
}

func LoginHandler(db *gorm.DB, authSecret []byte, tokenTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			respondErr(c, http.StatusNotImplemented, "database not configured")
			return
		}
		if len(authSecret) == 0 {
			respondErr(c, http.StatusServiceUnavailable, "AUTH_SECRET not configured")
			return
		}

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, http.StatusBadRequest, err.Error())
			return
		}
		req.Email = strings.TrimSpace(req.Email)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		u, ok, err := store.GetAdminByEmail(ctx, db, req.Email)
		if err != nil {
			respondErr(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		if !ok || !auth.CheckPassword(u.PasswordHash, req.Password) {
			respondErr(c, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := auth.SignToken(authSecret, u.ID, time.Now().Add(tokenTTL))
		if err != nil {
			respondErr(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondOK(c, gin.H{
			"token": token,
			"admin": AdminDTO{ID: u.ID, Email: u.Email},
		})
	}
}

func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			respondErr(c, http.StatusNotImplemented, "database not configured")
			return
		}
		uid := adminIDFromGin(c)
		if uid <= 0 {
			respondErr(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		u, ok, err := store.GetAdminByID(ctx, db, uid)
		if err != nil {
			respondErr(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		if !ok {
			respondErr(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		respondOK(c, gin.H{"admin": AdminDTO{ID: u.ID, Email: u.Email}})
	}
}

func adminIDFromGin(c *gin.Context) int64 {
	v, ok := c.Get("admin_id")
	if !ok {
		return 0
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		return 0
	}
	return id
}
