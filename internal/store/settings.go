package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sitewatch/auditlog/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Well-known setting names. Everything is default-on or default-off as noted;
// absent rows fall back to the caller-provided default.
const (
	SettingLogBackgroundEvents = "database:log-background-events" // default false
	SettingNotFoundLimit       = "404s:daily-limit"               // default 99
	SettingNotFoundLogToFile   = "404s:log-to-file"               // default false
	SettingNotFoundLogReferrer = "404s:log-referrer"              // default false
	SettingNotFoundExcluded    = "404s:excluded-urls"             // comma separated
	SettingDisabledAlerts      = "alerts:disabled"                // comma separated ids
	SettingDigestSendEmpty     = "digest:send-empty"              // default false
	SettingDigestDisplayMode   = "digest:user-display"            // login|display-name|first-last
	SettingDigestBucketPrefix  = "digest:bucket:"                 // + bucket name, default true
	SettingDigestRecipients    = "digest:recipients"              // comma separated emails
	SettingSlackWebhooks       = "notify:slack-webhooks"          // comma separated URLs
	SettingSMSNumbers          = "notify:sms-numbers"             // comma separated numbers
	SettingIntegrationPrefix   = "integration:"                   // + provider name, default false
)

// Settings is the options store. Reads are cheap single-row lookups; the
// classifier and digest compiler read toggles through this on every run so
// administrative changes apply without restart.
type Settings struct {
	DB *gorm.DB
}

func NewSettings(db *gorm.DB) *Settings { return &Settings{DB: db} }

func (s *Settings) Get(ctx context.Context, name string, def string) string {
	if s == nil || s.DB == nil {
		return def
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return def
	}
	var row model.Setting
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return def
		}
		return def
	}
	return row.Value
}

func (s *Settings) Set(ctx context.Context, name string, value string) error {
	if s == nil || s.DB == nil {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("settings: empty name")
	}
	row := model.Setting{Name: name, Value: value}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *Settings) Bool(ctx context.Context, name string, def bool) bool {
	raw := strings.TrimSpace(s.Get(ctx, name, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func (s *Settings) Int(ctx context.Context, name string, def int) int {
	raw := strings.TrimSpace(s.Get(ctx, name, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// List reads a comma-separated value; empty entries are dropped.
func (s *Settings) List(ctx context.Context, name string) []string {
	raw := s.Get(ctx, name, "")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IntList is List parsed as integers; non-numeric entries are dropped.
func (s *Settings) IntList(ctx context.Context, name string) []int {
	var out []int
	for _, p := range s.List(ctx, name) {
		if v, err := strconv.Atoi(p); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// BucketEnabled is the per-digest-bucket toggle, default on unless explicitly
// set false.
func (s *Settings) BucketEnabled(ctx context.Context, bucket string) bool {
	return s.Bool(ctx, SettingDigestBucketPrefix+strings.TrimSpace(bucket), true)
}
