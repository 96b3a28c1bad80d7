// Package dispatch is the single entry point sensors use to emit alerts.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/enrich"
	"github.com/sitewatch/auditlog/internal/model"
	"github.com/sitewatch/auditlog/internal/obs"
	"github.com/sitewatch/auditlog/internal/store"
	"gorm.io/gorm"
)

// Meta keys the facade promotes to occurrence columns.
const (
	MetaClientIP = "ClientIP"
	MetaUsername = "Username"
	MetaUserID   = "UserID"
)

type suppressKey struct{}

// Suppressed marks a context so Trigger becomes a no-op for its duration.
// Maintenance routines (self-updates) wrap their work in it; suppression ends
// with the context scope on every path, including panics unwound past the
// caller's defer.
func Suppressed(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressKey{}, true)
}

func isSuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(suppressKey{}).(bool)
	return v
}

type Dispatcher struct {
	DB      *gorm.DB
	Catalog *catalog.Catalog
	SiteID  int
	GeoIP   *enrich.GeoIP
	Stats   *obs.Stats
	Now     func() time.Time
}

func New(db *gorm.DB, cat *catalog.Catalog, siteID int) *Dispatcher {
	return &Dispatcher{
		DB:      db,
		Catalog: cat,
		SiteID:  siteID,
		Now:     time.Now,
	}
}

// Trigger persists one occurrence of the given alert. Unknown ids fail fast;
// everything below a known id is fire-and-forget from the caller's view, with
// retry (if any) the persistence layer's business. The returned id is the new
// occurrence row.
func (d *Dispatcher) Trigger(ctx context.Context, alertID int, meta map[string]any) (int64, error) {
	if d == nil || d.DB == nil {
		return 0, nil
	}
	if _, ok := d.Catalog.Get(alertID); !ok {
		return 0, fmt.Errorf("dispatch: unknown alert id %d", alertID)
	}
	if isSuppressed(ctx) {
		d.Stats.ObserveSuppressed()
		return 0, nil
	}

	row := model.Occurrence{
		AlertID:   alertID,
		SiteID:    d.SiteID,
		CreatedOn: d.Now().UTC(),
	}
	rest := make(map[string]any, len(meta))
	for k, v := range meta {
		switch k {
		case MetaClientIP:
			row.ClientIP = strings.TrimSpace(toString(v))
		case MetaUsername:
			row.Username = strings.TrimSpace(toString(v))
		case MetaUserID:
			if id, ok := toInt64(v); ok && id > 0 {
				row.UserID = &id
			}
		default:
			rest[k] = v
		}
	}
	if row.ClientIP != "" {
		if loc, ok := d.GeoIP.Lookup(row.ClientIP); ok && loc.Country != "" {
			rest["Country"] = loc.Country
		}
	}
	if err := row.SetMeta(rest); err != nil {
		return 0, err
	}

	id, err := store.SaveOccurrence(ctx, d.DB, &row)
	if err != nil {
		return 0, err
	}
	d.Stats.ObserveDispatched()
	return id, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	default:
		return 0, false
	}
}
