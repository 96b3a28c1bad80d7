package migrate

import (
	"context"

	"github.com/sitewatch/auditlog/internal/model"
	"gorm.io/gorm"
)

func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	gdb := db.WithContext(ctx)
	if err := gdb.AutoMigrate(
		&model.AdminUser{},
		&model.SiteUser{},
		&model.Occurrence{},
		&model.Setting{},
		&model.Delivery{},
	); err != nil {
		return err
	}

	// GIN index for meta lookups (the digest query and the admin search both
	// filter on meta keys).
	if err := gdb.Exec(`CREATE INDEX IF NOT EXISTS idx_occurrences_meta ON occurrences USING GIN (meta)`).Error; err != nil {
		return err
	}

	// The 404 aggregation probe: same alert, site, user and ip within one day.
	if err := gdb.Exec(`
		CREATE INDEX IF NOT EXISTS idx_occurrences_day_source
		ON occurrences (alert_id, site_id, username, client_ip, created_on)
	`).Error; err != nil {
		return err
	}

	if err := gdb.Exec(`CREATE INDEX IF NOT EXISTS idx_deliveries_due ON deliveries (status, next_attempt_at)`).Error; err != nil {
		return err
	}

	return nil
}
