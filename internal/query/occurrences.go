package query

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/model"
	"github.com/sitewatch/auditlog/internal/store"
	"gorm.io/gorm"
)

type OccurrenceDTO struct {
	ID          int64          `json:"id"`
	AlertID     int            `json:"alert_id"`
	Severity    string         `json:"severity"`
	Description string         `json:"description"`
	SiteID      int            `json:"site_id"`
	CreatedOn   time.Time      `json:"created_on"`
	ClientIP    string         `json:"client_ip,omitempty"`
	Username    string         `json:"username,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

func occurrenceDTO(cat *catalog.Catalog, row model.Occurrence) OccurrenceDTO {
	dto := OccurrenceDTO{
		ID:        row.ID,
		AlertID:   row.AlertID,
		SiteID:    row.SiteID,
		CreatedOn: row.CreatedOn,
		ClientIP:  row.ClientIP,
		Username:  row.Username,
		Meta:      row.MetaMap(),
	}
	if def, ok := cat.Get(row.AlertID); ok {
		dto.Severity = def.Severity.String()
		dto.Description = def.Description
	}
	return dto
}

func RecentOccurrencesHandler(db *gorm.DB, cat *catalog.Catalog, siteID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		rows, err := store.RecentOccurrences(ctx, db, siteID, limit)
		if err != nil {
			respondErr(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		out := make([]OccurrenceDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, occurrenceDTO(cat, row))
		}
		respondOK(c, out)
	}
}

func GetOccurrenceHandler(db *gorm.DB, cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("occurrenceId"), 10, 64)
		if err != nil || id <= 0 {
			respondErr(c, http.StatusBadRequest, "invalid occurrence id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		row, ok, err := store.GetOccurrence(ctx, db, id)
		if err != nil {
			respondErr(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		if !ok {
			respondErr(c, http.StatusNotFound, "occurrence not found")
			return
		}
		respondOK(c, occurrenceDTO(cat, row))
	}
}

// AlertsHandler lists the catalog, for building admin UIs.
func AlertsHandler(cat *catalog.Catalog) gin.HandlerFunc {
	type alertDTO struct {
		ID          int    `json:"id"`
		Severity    string `json:"severity"`
		Description string `json:"description"`
		ObjectTag   string `json:"object_tag"`
		ActionTag   string `json:"action_tag"`
	}
	return func(c *gin.Context) {
		defs := cat.GetAll()
		out := make([]alertDTO, 0, len(defs))
		for id, def := range defs {
			out = append(out, alertDTO{
				ID:          id,
				Severity:    def.Severity.String(),
				Description: def.Description,
				ObjectTag:   def.ObjectTag,
				ActionTag:   def.ActionTag,
			})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		respondOK(c, out)
	}
}
