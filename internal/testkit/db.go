package testkit

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sitewatch/auditlog/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB returns an in-memory sqlite database with the schema migrated.
// It stands in for Postgres in tests; no external services required.
func OpenTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", url.QueryEscape(t.Name()))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("gorm.Open(sqlite): %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("gdb.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(
		&model.AdminUser{},
		&model.SiteUser{},
		&model.Occurrence{},
		&model.Setting{},
		&model.Delivery{},
	); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gdb
}
