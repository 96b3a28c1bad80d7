package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/model"
	"github.com/sitewatch/auditlog/internal/testkit"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	cat, err := catalog.Default(nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	d := New(testkit.OpenTestDB(t), cat, 1)
	d.Now = func() time.Time { return time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC) }
	return d
}

func TestTrigger_UnknownAlertFailsFast(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	if _, err := d.Trigger(context.Background(), 123456, nil); err == nil {
		t.Fatalf("expected error for unknown alert id")
	}
	var n int64
	if err := d.DB.Model(&model.Occurrence{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("no occurrence should be persisted, got %d", n)
	}
}

func TestTrigger_PromotesKnownMeta(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	id, err := d.Trigger(context.Background(), catalog.UserLoggedIn, map[string]any{
		MetaClientIP: " 10.0.0.7 ",
		MetaUsername: "alice",
		MetaUserID:   int64(42),
		"Role":       "editor",
	})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected occurrence id, got %d", id)
	}

	var row model.Occurrence
	if err := d.DB.First(&row, "id = ?", id).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if row.ClientIP != "10.0.0.7" || row.Username != "alice" {
		t.Fatalf("columns not promoted: %+v", row)
	}
	if row.UserID == nil || *row.UserID != 42 {
		t.Fatalf("user id not promoted: %+v", row.UserID)
	}
	if !row.CreatedOn.Equal(d.Now()) {
		t.Fatalf("created_on = %v", row.CreatedOn)
	}

	meta := row.MetaMap()
	if meta["Role"] != "editor" {
		t.Fatalf("free-form meta lost: %v", meta)
	}
	if _, ok := meta[MetaClientIP]; ok {
		t.Fatalf("promoted keys should not stay in meta: %v", meta)
	}
}

func TestTrigger_SuppressedContext(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	ctx := Suppressed(context.Background())
	id, err := d.Trigger(ctx, catalog.PluginActivated, map[string]any{"Plugin": "shop"})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if id != 0 {
		t.Fatalf("suppressed trigger created occurrence %d", id)
	}

	// Suppression is scoped to the derived context, not the dispatcher.
	if id, err := d.Trigger(context.Background(), catalog.PluginActivated, nil); err != nil || id == 0 {
		t.Fatalf("dispatcher stayed suppressed after scope exit: id=%d err=%v", id, err)
	}
}
