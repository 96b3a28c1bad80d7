package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/classifier"
	"github.com/sitewatch/auditlog/internal/config"
	"github.com/sitewatch/auditlog/internal/consumer"
	"github.com/sitewatch/auditlog/internal/db"
	"github.com/sitewatch/auditlog/internal/digest"
	"github.com/sitewatch/auditlog/internal/dispatch"
	"github.com/sitewatch/auditlog/internal/enrich"
	"github.com/sitewatch/auditlog/internal/httpserver"
	"github.com/sitewatch/auditlog/internal/logfile"
	"github.com/sitewatch/auditlog/internal/migrate"
	"github.com/sitewatch/auditlog/internal/notify"
	"github.com/sitewatch/auditlog/internal/obs"
	"github.com/sitewatch/auditlog/internal/queue"
	"github.com/sitewatch/auditlog/internal/store"
	"github.com/sitewatch/auditlog/internal/throttle"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("config: %s", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := obs.New()

	nsqPublisher, err := queue.NewNSQPublisher(cfg.NSQDAddress)
	if err != nil {
		log.Fatalf("nsq publisher: %v", err)
	}
	defer nsqPublisher.Stop()
	publisher := queue.ObservePublisher(nsqPublisher, stats)

	var gdb *gorm.DB
	if cfg.PostgresURL != "" {
		d, err := db.Open(ctx, cfg.PostgresURL, db.Pool{})
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		gdb = d
		sqlDB, err := gdb.DB()
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer sqlDB.Close()

		migCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := migrate.AutoMigrate(migCtx, gdb); err != nil {
			cancel()
			log.Fatalf("db migrate: %v", err)
		}
		cancel()
	}

	settings := store.NewSettings(gdb)

	cat, err := catalog.Default(func(name string) bool {
		return settings.Bool(context.Background(), store.SettingIntegrationPrefix+name, false)
	})
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	geoip, err := enrich.NewGeoIP(cfg.GeoIPCityMMDB)
	if err != nil {
		log.Fatalf("geoip: %v", err)
	}
	if geoip != nil {
		defer geoip.Close()
	}

	dispatcher := dispatch.New(gdb, cat, cfg.SiteID)
	dispatcher.GeoIP = geoip
	dispatcher.Stats = stats

	compiler := digest.NewCompiler(gdb, settings, cat)
	compiler.Multisite = cfg.Multisite
	compiler.SiteURL = cfg.SiteURL

	logWriter := logfile.NewWriter(cfg.WorkingDir, settings)

	scheduler := digest.NewScheduler(gdb, settings, compiler, logWriter, stats, cfg.SiteID)
	if cfg.DigestDailySpec != "" {
		scheduler.DailySpec = cfg.DigestDailySpec
	}
	if cfg.DigestWeeklySpec != "" {
		scheduler.WeeklySpec = cfg.DigestWeeklySpec
	}
	if gdb != nil {
		if err := scheduler.Start(ctx); err != nil {
			log.Fatalf("digest scheduler: %v", err)
		}
		defer scheduler.Stop()

		worker := notify.NewWorker(gdb, cfg, stats)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("notify worker: %v", err)
			}
		}()
	}

	srv := httpserver.New(cfg, publisher, gdb, httpserver.Deps{
		Catalog:   cat,
		Settings:  settings,
		Scheduler: scheduler,
		Stats:     stats,
	})

	var eventConsumer *consumer.NSQConsumer
	var requestConsumer *consumer.NSQConsumer
	if cfg.RunConsumers {
		if gdb == nil {
			log.Fatalf("POSTGRES_URL required when RUN_CONSUMERS=true")
		}
		rdb, err := throttle.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping: %v", err)
		}
		cancel()
		defer rdb.Close()

		tracker := &classifier.NotFoundTracker{
			DB:         gdb,
			Settings:   settings,
			Throttle:   throttle.NewCounter(rdb),
			Log:        logWriter,
			Dispatcher: dispatcher,
			Stats:      stats,
		}
		deps := consumer.Deps{
			Settings:   settings,
			Schema:     &db.Inspector{DB: gdb},
			Dispatcher: dispatcher,
			Tracker:    tracker,
			Stats:      stats,
			Prefix:     cfg.TablePrefix,
		}
		eventConsumer, err = consumer.NewEventConsumer(ctx, cfg, deps)
		if err != nil {
			log.Fatalf("event consumer: %v", err)
		}
		requestConsumer, err = consumer.NewRequestConsumer(ctx, cfg, deps)
		if err != nil {
			log.Fatalf("request consumer: %v", err)
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("http listening on %s", cfg.HTTPAddr)

	if cfg.RunConsumers {
		log.Printf("consumers enabled (events/requests)")
	}

	select {
	case <-ctx.Done():
		log.Printf("shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if cfg.RunConsumers {
		eventConsumer.Stop()
		requestConsumer.Stop()
	}
}
