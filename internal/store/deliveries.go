package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sitewatch/auditlog/internal/model"
	"gorm.io/gorm"
)

const (
	ChannelEmail = "email"
	ChannelSlack = "slack"
	ChannelSMS   = "sms"

	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

func EnqueueDelivery(ctx context.Context, db *gorm.DB, row *model.Delivery) (int64, error) {
	if db == nil {
		return 0, errors.New("store: nil db")
	}
	if row == nil {
		return 0, errors.New("store: nil delivery")
	}
	row.ChannelType = strings.TrimSpace(row.ChannelType)
	row.Target = strings.TrimSpace(row.Target)
	if row.ChannelType == "" || row.Target == "" {
		return 0, errors.New("store: delivery needs channel and target")
	}
	if row.Status == "" {
		row.Status = DeliveryPending
	}
	if row.NextAttemptAt.IsZero() {
		row.NextAttemptAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// DueDeliveries returns pending rows whose next attempt time has passed,
// oldest first.
func DueDeliveries(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]model.Delivery, error) {
	if db == nil {
		return nil, errors.New("store: nil db")
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []model.Delivery
	err := db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", DeliveryPending, now).
		Order("id asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func MarkDeliverySent(ctx context.Context, db *gorm.DB, id int64) error {
	if db == nil {
		return errors.New("store: nil db")
	}
	return db.WithContext(ctx).Model(&model.Delivery{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     DeliverySent,
			"last_error": "",
		}).Error
}

// MarkDeliveryFailed records one failed attempt. Terminal failures flip the
// status to failed; retryable ones stay pending with a pushed-out next
// attempt.
func MarkDeliveryFailed(ctx context.Context, db *gorm.DB, id int64, attempts int, nextAttempt time.Time, terminal bool, cause string) error {
	if db == nil {
		return errors.New("store: nil db")
	}
	status := DeliveryPending
	if terminal {
		status = DeliveryFailed
	}
	return db.WithContext(ctx).Model(&model.Delivery{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"attempts":        attempts,
			"next_attempt_at": nextAttempt,
			"last_error":      cause,
		}).Error
}
