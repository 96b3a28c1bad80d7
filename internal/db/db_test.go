package db

import (
	"context"
	"testing"
	"time"

	"github.com/sitewatch/auditlog/internal/testkit"
)

func TestPoolWithDefaults(t *testing.T) {
	t.Parallel()

	p := Pool{}.withDefaults()
	if p.MaxOpen != 16 || p.MaxIdle != 4 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if p.MaxLifetime != time.Hour || p.MaxIdleTime != 10*time.Minute {
		t.Fatalf("unexpected defaults: %+v", p)
	}

	// Idle never exceeds open.
	p = Pool{MaxOpen: 2, MaxIdle: 8}.withDefaults()
	if p.MaxIdle != 2 {
		t.Fatalf("expected idle clamped to %d, got %d", p.MaxOpen, p.MaxIdle)
	}
}

func TestInspectorTableExists(t *testing.T) {
	t.Parallel()

	gdb := testkit.OpenTestDB(t)
	ins := &Inspector{DB: gdb}
	ctx := context.Background()

	ok, err := ins.TableExists(ctx, "occurrences")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if !ok {
		t.Fatalf("expected migrated table to exist")
	}

	ok, err = ins.TableExists(ctx, "wp_nope")
	if err != nil || ok {
		t.Fatalf("expected missing table, got ok=%v err=%v", ok, err)
	}

	if ok, err := ins.TableExists(ctx, "   "); err != nil || ok {
		t.Fatalf("blank table name: ok=%v err=%v", ok, err)
	}

	var nilIns *Inspector
	if ok, err := nilIns.TableExists(ctx, "occurrences"); err != nil || ok {
		t.Fatalf("nil inspector: ok=%v err=%v", ok, err)
	}
}
