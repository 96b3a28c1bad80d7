// Package db opens the Postgres database behind the occurrence, settings and
// delivery stores, and answers the schema probes the SQL classifier needs for
// its CREATE TABLE duplicate guard.
package db

import (
	"context"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Pool bounds the shared connection pool. Zero values pick defaults sized for
// this service's writers: two NSQ consumers, the digest scheduler and the
// delivery worker, plus the admin API. Occurrence writes are single short
// statements, so the pool stays small and recycles connections instead of
// growing.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

func (p Pool) withDefaults() Pool {
	if p.MaxOpen <= 0 {
		p.MaxOpen = 16
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = 4
	}
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	if p.MaxLifetime <= 0 {
		p.MaxLifetime = time.Hour
	}
	if p.MaxIdleTime <= 0 {
		p.MaxIdleTime = 10 * time.Minute
	}
	return p
}

// Open connects, applies the pool bounds and verifies the connection with a
// short ping. Gorm's own logging stays silent; the callers log outcomes.
func Open(ctx context.Context, postgresURL string, pool Pool) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(postgresURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	pool = pool.withDefaults()
	sqlDB.SetMaxOpenConns(pool.MaxOpen)
	sqlDB.SetMaxIdleConns(pool.MaxIdle)
	sqlDB.SetConnMaxLifetime(pool.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

// Inspector answers table-existence probes against the live schema. The
// classifier consults it before raising a table-created alert, so a CREATE
// that hit an existing table stays quiet.
type Inspector struct {
	DB *gorm.DB
}

func (i *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	if i == nil || i.DB == nil {
		return false, nil
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return false, nil
	}
	return i.DB.WithContext(ctx).Migrator().HasTable(table), nil
}
