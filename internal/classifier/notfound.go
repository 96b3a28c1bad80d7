package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/dispatch"
	"github.com/sitewatch/auditlog/internal/logfile"
	"github.com/sitewatch/auditlog/internal/obs"
	"github.com/sitewatch/auditlog/internal/store"
	"github.com/sitewatch/auditlog/internal/throttle"
	"gorm.io/gorm"
)

const (
	notFoundMsg = "Has requested a non-existing page on the website"
	// Appended once, when the daily limit is first crossed.
	scanWarning = " This could be a scan for vulnerabilities: the daily limit of 404 requests from this source was exceeded."

	defaultNotFoundLimit = 99
)

// NotFoundTracker aggregates authenticated-user 404s. Within one calendar day
// the same (site, user, ip) source mutates a single occurrence instead of
// flooding the log with rows; a Redis counter stops even the mutations once
// the daily limit is passed.
type NotFoundTracker struct {
	DB         *gorm.DB
	Settings   *store.Settings
	Throttle   *throttle.Counter
	Log        *logfile.Writer
	Dispatcher *dispatch.Dispatcher
	Stats      *obs.Stats
	Now        func() time.Time
}

type NotFoundRequest struct {
	Username string
	UserID   int64
	ClientIP string
	URL      string
	Referrer string
}

// Track processes one 404 page view. Every early return is a normal "no
// event" outcome, not an error; errors only surface for storage failures.
func (t *NotFoundTracker) Track(ctx context.Context, req NotFoundRequest) error {
	if t == nil || t.DB == nil {
		return nil
	}
	url := strings.TrimSpace(req.URL)
	if url == "" || t.isExcluded(ctx, url) {
		return nil
	}
	// Anonymous visitors go through a separate volumetric path; only
	// authenticated 404s are tracked here.
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil
	}
	for _, id := range t.Settings.IntList(ctx, store.SettingDisabledAlerts) {
		if id == catalog.User404 {
			return nil
		}
	}

	siteID := t.Dispatcher.SiteID
	limit := t.Settings.Int(ctx, store.SettingNotFoundLimit, defaultNotFoundLimit)
	if t.Throttle.IsPastLimit(ctx, siteID, username, req.ClientIP, limit) {
		// Keep counting silently so the window keeps its shape.
		t.Throttle.Increment(ctx, siteID, username, req.ClientIP)
		t.Stats.ObserveThrottleSkip()
		return nil
	}

	linkFile, err := t.Log.WriteLine(ctx, catalog.User404, req.ClientIP, username, url, req.Referrer)
	if err != nil {
		// Degraded: the alert still fires, just without a file link.
		linkFile = ""
	}

	now := t.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	existing, found, err := store.FindDayOccurrence(ctx, t.DB, catalog.User404, siteID, username, req.ClientIP, dayStart, dayEnd)
	if err != nil {
		return err
	}

	if found {
		meta := existing.MetaMap()
		if meta == nil {
			meta = map[string]any{}
		}
		attempts, capped := attemptsFromMeta(meta)
		if !capped {
			attempts++
			if attempts > limit {
				meta["Attempts"] = fmt.Sprintf("more than %d", limit)
				meta["Msg"] = notFoundMsg + scanWarning
			} else {
				meta["Attempts"] = attempts
				meta["Msg"] = notFoundMsg
			}
		}
		meta["URL"] = url
		if linkFile != "" {
			meta["LinkFile"] = linkFile
		}
		if err := store.UpdateOccurrenceMeta(ctx, t.DB, existing.ID, meta); err != nil {
			return err
		}
	} else {
		meta := map[string]any{
			dispatch.MetaClientIP: req.ClientIP,
			dispatch.MetaUsername: username,
			"Attempts":            1,
			"Msg":                 notFoundMsg,
			"URL":                 url,
		}
		if req.UserID > 0 {
			meta[dispatch.MetaUserID] = req.UserID
		}
		if linkFile != "" {
			meta["LinkFile"] = linkFile
		}
		if _, err := t.Dispatcher.Trigger(ctx, catalog.User404, meta); err != nil {
			return err
		}
	}

	t.Throttle.Increment(ctx, siteID, username, req.ClientIP)
	return nil
}

func (t *NotFoundTracker) isExcluded(ctx context.Context, url string) bool {
	for _, ex := range t.Settings.List(ctx, store.SettingNotFoundExcluded) {
		if strings.EqualFold(ex, url) {
			return true
		}
	}
	return false
}

func (t *NotFoundTracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

// attemptsFromMeta reads the Attempts meta, which is a number until the limit
// is crossed and the literal "more than N" string afterwards.
func attemptsFromMeta(meta map[string]any) (int, bool) {
	switch v := meta["Attempts"].(type) {
	case float64:
		return int(v), false
	case int:
		return v, false
	case int64:
		return int(v), false
	case string:
		return 0, true
	default:
		return 0, false
	}
}
