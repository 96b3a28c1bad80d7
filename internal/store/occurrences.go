package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sitewatch/auditlog/internal/model"
	"gorm.io/gorm"
)

func SaveOccurrence(ctx context.Context, db *gorm.DB, row *model.Occurrence) (int64, error) {
	if db == nil || row == nil {
		return 0, nil
	}
	if row.CreatedOn.IsZero() {
		row.CreatedOn = time.Now().UTC()
	}
	if len(row.Meta) == 0 {
		row.Meta = []byte("{}")
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

func GetOccurrence(ctx context.Context, db *gorm.DB, id int64) (model.Occurrence, bool, error) {
	if db == nil || id <= 0 {
		return model.Occurrence{}, false, nil
	}
	var row model.Occurrence
	err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Occurrence{}, false, nil
		}
		return model.Occurrence{}, false, err
	}
	return row, true, nil
}

// FindDayOccurrence looks up an existing occurrence for the given alert and
// (ip, username, site) key within [dayStart, dayEnd). The 404 aggregation
// path uses it to decide "update in place" vs "new row".
func FindDayOccurrence(ctx context.Context, db *gorm.DB, alertID int, siteID int, username string, clientIP string, dayStart, dayEnd time.Time) (model.Occurrence, bool, error) {
	if db == nil {
		return model.Occurrence{}, false, nil
	}
	var row model.Occurrence
	err := db.WithContext(ctx).
		Where("alert_id = ? AND site_id = ? AND username = ? AND client_ip = ? AND created_on >= ? AND created_on < ?",
			alertID, siteID, strings.TrimSpace(username), strings.TrimSpace(clientIP), dayStart, dayEnd).
		Order("created_on ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Occurrence{}, false, nil
		}
		return model.Occurrence{}, false, err
	}
	return row, true, nil
}

// UpdateOccurrenceMeta rewrites the meta column only. created_on is left
// untouched so an aggregated row keeps its original timestamp.
func UpdateOccurrenceMeta(ctx context.Context, db *gorm.DB, id int64, meta map[string]any) error {
	if db == nil || id <= 0 {
		return nil
	}
	row := model.Occurrence{}
	if err := row.SetMeta(meta); err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&model.Occurrence{}).
		Where("id = ?", id).
		Update("meta", row.Meta).Error
}

// QueryWindow returns occurrences in [start, end) restricted to allowIDs,
// ordered chronologically ascending. The digest compiler relies on that
// order; empty allowIDs yields an empty result, not "everything".
func QueryWindow(ctx context.Context, db *gorm.DB, siteID int, start, end time.Time, allowIDs []int) ([]model.Occurrence, error) {
	if db == nil || len(allowIDs) == 0 {
		return nil, nil
	}
	q := db.WithContext(ctx).
		Where("created_on >= ? AND created_on < ? AND alert_id IN ?", start, end, allowIDs).
		Order("created_on ASC, id ASC")
	if siteID > 0 {
		q = q.Where("site_id = ?", siteID)
	}
	var rows []model.Occurrence
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func CountWindow(ctx context.Context, db *gorm.DB, siteID int, start, end time.Time, allowIDs []int) (int64, error) {
	if db == nil || len(allowIDs) == 0 {
		return 0, nil
	}
	q := db.WithContext(ctx).
		Model(&model.Occurrence{}).
		Where("created_on >= ? AND created_on < ? AND alert_id IN ?", start, end, allowIDs)
	if siteID > 0 {
		q = q.Where("site_id = ?", siteID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func RecentOccurrences(ctx context.Context, db *gorm.DB, siteID int, limit int) ([]model.Occurrence, error) {
	if db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := db.WithContext(ctx).Order("created_on DESC, id DESC").Limit(limit)
	if siteID > 0 {
		q = q.Where("site_id = ?", siteID)
	}
	var rows []model.Occurrence
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// IsUniqueViolation reports whether err is a Postgres duplicate-key error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
