package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type AdminUser struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex;column:email"`
	PasswordHash string    `gorm:"type:text;not null;column:password_hash"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime;column:created_at"`
}

func (AdminUser) TableName() string { return "admin_users" }

// SiteUser is the site-side user directory consulted for display-name
// resolution when rendering digests.
type SiteUser struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	SiteID      int       `gorm:"not null;index;column:site_id"`
	Login       string    `gorm:"type:varchar(255);not null;index;column:login"`
	DisplayName string    `gorm:"type:varchar(255);not null;default:'';column:display_name"`
	FirstName   string    `gorm:"type:varchar(255);not null;default:'';column:first_name"`
	LastName    string    `gorm:"type:varchar(255);not null;default:'';column:last_name"`
	Email       string    `gorm:"type:varchar(255);not null;default:'';column:email"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime;column:created_at"`
}

func (SiteUser) TableName() string { return "site_users" }

// Occurrence is one logged activity event. Rows are created by the dispatch
// path and, for the 404 aggregation case, mutated in place within the same
// calendar day. They are never deleted here; pruning is an external concern.
type Occurrence struct {
	ID        int64          `gorm:"primaryKey;autoIncrement;column:id"`
	AlertID   int            `gorm:"not null;index:idx_occurrences_alert_created,priority:1;column:alert_id"`
	SiteID    int            `gorm:"not null;index;column:site_id"`
	CreatedOn time.Time      `gorm:"not null;index:idx_occurrences_alert_created,priority:2;column:created_on"`
	ClientIP  string         `gorm:"type:varchar(64);index;column:client_ip"`
	Username  string         `gorm:"type:varchar(255);index;column:username"`
	UserID    *int64         `gorm:"column:user_id"`
	Meta      datatypes.JSON `gorm:"type:jsonb;not null;default:'{}';column:meta"`
}

func (Occurrence) TableName() string { return "occurrences" }

// MetaMap decodes the meta column. Malformed meta decodes to nil; callers
// treat missing keys as "skip this row", never as a failure.
func (o Occurrence) MetaMap() map[string]any {
	if len(o.Meta) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(o.Meta, &m); err != nil {
		return nil
	}
	return m
}

func (o *Occurrence) SetMeta(m map[string]any) error {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	o.Meta = datatypes.JSON(b)
	return nil
}

// Setting is one admin-configurable option (feature toggles, throttle limit,
// excluded URLs, digest bucket switches).
type Setting struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex;column:name"`
	Value     string    `gorm:"type:text;not null;default:'';column:value"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;column:updated_at"`
}

func (Setting) TableName() string { return "settings" }

// Delivery is a queued outbound notification (digest email, SMS or Slack
// message) drained by the notify worker.
type Delivery struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id"`
	SiteID        int       `gorm:"not null;index;column:site_id"`
	ChannelType   string    `gorm:"type:varchar(16);not null;index;column:channel_type"`
	Target        string    `gorm:"type:text;not null;column:target"`
	Subject       string    `gorm:"type:text;not null;column:subject"`
	Body          string    `gorm:"type:text;not null;column:body"`
	Status        string    `gorm:"type:varchar(16);not null;index;column:status"`
	Attempts      int       `gorm:"not null;default:0;column:attempts"`
	NextAttemptAt time.Time `gorm:"not null;index;column:next_attempt_at"`
	LastError     string    `gorm:"type:text;not null;default:'';column:last_error"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime;column:created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime;column:updated_at"`
}

func (Delivery) TableName() string { return "deliveries" }
