package digest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/logfile"
	"github.com/sitewatch/auditlog/internal/model"
	"github.com/sitewatch/auditlog/internal/store"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	c, db := newTestCompiler(t)
	s := NewScheduler(db, c.Settings, c, logfile.NewWriter(t.TempDir(), c.Settings), nil, 1)
	s.Now = func() time.Time { return time.Date(2024, 5, 15, 6, 0, 0, 0, time.UTC) }
	return s
}

func seedOccurrence(t *testing.T, s *Scheduler, alertID int, createdOn time.Time) {
	t.Helper()
	row := model.Occurrence{
		AlertID:   alertID,
		SiteID:    1,
		CreatedOn: createdOn,
		ClientIP:  "10.0.0.1",
		Username:  "alice",
	}
	if err := row.SetMeta(map[string]any{}); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if _, err := store.SaveOccurrence(context.Background(), s.DB, &row); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestRun_QueuesOneDeliveryPerTarget(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)
	ctx := context.Background()
	if err := s.Settings.Set(ctx, store.SettingDigestRecipients, "a@example.com,b@example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Settings.Set(ctx, store.SettingSlackWebhooks, "https://hooks.example.com/T1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Inside yesterday's window.
	seedOccurrence(t, s, catalog.UserLoggedIn, time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC))

	n, err := s.Run(ctx, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 3 {
		t.Fatalf("queued %d deliveries, want 3", n)
	}

	rows, err := store.DueDeliveries(ctx, s.DB, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d due rows, want 3", len(rows))
	}
	for _, row := range rows {
		if !strings.Contains(row.Subject, "Daily activity report") {
			t.Fatalf("subject = %q", row.Subject)
		}
		if row.Status != store.DeliveryPending {
			t.Fatalf("status = %q", row.Status)
		}
	}
}

func TestRun_WindowExcludesToday(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)
	ctx := context.Background()
	if err := s.Settings.Set(ctx, store.SettingDigestRecipients, "a@example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Today's event is outside the daily window; empty digests are
	// suppressed by default so nothing is queued.
	seedOccurrence(t, s, catalog.UserLoggedIn, time.Date(2024, 5, 15, 1, 0, 0, 0, time.UTC))

	n, err := s.Run(ctx, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 0 {
		t.Fatalf("queued %d deliveries, want 0", n)
	}
}

func TestSendNow(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)
	ctx := context.Background()

	msg, err := s.SendNow(ctx)
	if err != nil {
		t.Fatalf("send now: %v", err)
	}
	if !strings.Contains(msg, "no events") {
		t.Fatalf("empty-day message = %q", msg)
	}

	if err := s.Settings.Set(ctx, store.SettingDigestRecipients, "a@example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}
	seedOccurrence(t, s, catalog.UserLoggedIn, time.Date(2024, 5, 15, 5, 0, 0, 0, time.UTC))

	msg, err = s.SendNow(ctx)
	if err != nil {
		t.Fatalf("send now: %v", err)
	}
	if !strings.Contains(msg, "queued for 1") {
		t.Fatalf("message = %q", msg)
	}
}
