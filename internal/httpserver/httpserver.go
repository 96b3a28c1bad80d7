package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/config"
	"github.com/sitewatch/auditlog/internal/digest"
	"github.com/sitewatch/auditlog/internal/ingest"
	"github.com/sitewatch/auditlog/internal/obs"
	"github.com/sitewatch/auditlog/internal/openapi"
	"github.com/sitewatch/auditlog/internal/query"
	"github.com/sitewatch/auditlog/internal/queue"
	"github.com/sitewatch/auditlog/internal/store"
	swgui "github.com/swaggest/swgui/v3"
	"gorm.io/gorm"
)

// Deps carries the optional server collaborators. Any nil member disables the
// routes that need it.
type Deps struct {
	Catalog   *catalog.Catalog
	Settings  *store.Settings
	Scheduler *digest.Scheduler
	Stats     *obs.Stats
}

func New(cfg config.Config, publisher queue.Publisher, db *gorm.DB, deps Deps) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(maintenanceMiddleware(cfg.MaintenanceMode))
	if deps.Stats != nil {
		router.Use(observabilityMiddleware(deps.Stats))
	}

	router.GET("/openapi.json", func(c *gin.Context) { c.JSON(http.StatusOK, openapi.Spec()) })
	router.GET("/docs/*any", gin.WrapH(swgui.New("auditlog API", "/openapi.json", "/docs")))

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	authEnabled := db != nil && len(cfg.AuthSecret) > 0

	apiRoot := router.Group("/api")
	{
		apiRoot.GET("/status", query.StatusHandler(db, cfg.MaintenanceMode, len(cfg.AuthSecret) > 0))
		apiRoot.GET("/stats", query.StatsHandler(deps.Stats))
		if db != nil {
			apiRoot.POST("/auth/bootstrap", query.BootstrapHandler(db, cfg.AuthSecret, cfg.AuthTokenTTL))
			apiRoot.POST("/auth/login", query.LoginHandler(db, cfg.AuthSecret, cfg.AuthTokenTTL))
		}

		adminAPI := apiRoot.Group("")
		if authEnabled {
			adminAPI.Use(RequireUser(cfg.AuthSecret))
		}
		if db != nil {
			adminAPI.GET("/me", query.MeHandler(db))
			adminAPI.GET("/occurrences/recent", query.RecentOccurrencesHandler(db, deps.Catalog, cfg.SiteID))
			adminAPI.GET("/occurrences/:occurrenceId", query.GetOccurrenceHandler(db, deps.Catalog))
		}
		if deps.Catalog != nil {
			adminAPI.GET("/alerts", query.AlertsHandler(deps.Catalog))
		}
		if deps.Settings != nil {
			adminAPI.GET("/settings/:name", query.GetSettingHandler(deps.Settings))
			adminAPI.POST("/settings", query.SetSettingHandler(deps.Settings))
		}
		if deps.Scheduler != nil {
			adminAPI.POST("/summary/send-now", query.SendSummaryNowHandler(deps.Scheduler))
		}
	}

	ingestAPI := router.Group("/ingest")
	{
		ingestAPI.POST("/sql", ingest.SQLHandler(publisher, cfg.SiteID))
		ingestAPI.POST("/404", ingest.NotFoundHandler(publisher, cfg.SiteID))
		ingestAPI.POST("/trigger", ingest.TriggerHandler(publisher, cfg.SiteID))
	}

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
