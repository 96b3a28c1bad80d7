package logfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sitewatch/auditlog/internal/store"
	"github.com/sitewatch/auditlog/internal/testkit"
)

func newTestWriter(t *testing.T, logToFile bool) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	settings := store.NewSettings(testkit.OpenTestDB(t))
	if logToFile {
		if err := settings.Set(context.Background(), store.SettingNotFoundLogToFile, "true"); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	w := NewWriter(dir, settings)
	w.Now = func() time.Time { return time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC) }
	return w, filepath.Join(dir, subdir)
}

func TestWriteLine_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	w, dir := newTestWriter(t, false)
	path, err := w.WriteLine(context.Background(), 6007, "10.1.2.3", "alice", "https://example.test/missing", "")
	if err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no file, got %q", path)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("directory should not be created when disabled")
	}
}

func TestWriteLine_FormatAndSentinel(t *testing.T) {
	t.Parallel()

	w, dir := newTestWriter(t, true)
	ctx := context.Background()

	path, err := w.WriteLine(ctx, 6007, "127.0.0.1", "alice", "https://example.test/missing", "https://referrer.test/")
	if err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	want := filepath.Join(dir, "6007_20260803.log")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	// Referrer logging is off by default; localhost is normalized.
	if got := string(b); got != "localhost,Request URL https://example.test/missing,\n" {
		t.Fatalf("unexpected line: %q", got)
	}

	if err := w.Settings.Set(ctx, store.SettingNotFoundLogReferrer, "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := w.WriteLine(ctx, 6007, "10.1.2.3", "alice", "/a", "https://referrer.test/"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	b, _ = os.ReadFile(path)
	if !strings.Contains(string(b), "10.1.2.3,Request URL /a,Referer https://referrer.test/,\n") {
		t.Fatalf("referrer segment missing: %q", string(b))
	}

	if _, err := os.Stat(filepath.Join(dir, "index.php")); err != nil {
		t.Fatalf("index.php sentinel missing: %v", err)
	}
}

func TestWriteLine_FallbackPicksLatestModified(t *testing.T) {
	t.Parallel()

	w, dir := newTestWriter(t, true)
	ctx := context.Background()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// A directory squatting on the primary name makes the append open fail.
	if err := os.Mkdir(filepath.Join(dir, "6007_20260803.log"), 0o755); err != nil {
		t.Fatalf("mkdir primary: %v", err)
	}
	older := filepath.Join(dir, "6007_20260803_1.log")
	newer := filepath.Join(dir, "6007_20260803_2.log")
	for _, p := range []string{older, newer} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}
	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	if err := os.Chtimes(older, base, base); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(newer, base.Add(time.Hour), base.Add(time.Hour)); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	path, err := w.WriteLine(ctx, 6007, "10.0.0.9", "alice", "/gone", "")
	if err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if path != newer {
		t.Fatalf("fallback wrote to %q, want latest-modified %q", path, newer)
	}
	b, _ := os.ReadFile(newer)
	if !strings.Contains(string(b), "/gone") {
		t.Fatalf("line not appended to fallback file: %q", string(b))
	}
	if b, _ := os.ReadFile(older); len(b) != 0 {
		t.Fatalf("older fallback file should be untouched")
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()

	w, dir := newTestWriter(t, true)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	old := filepath.Join(dir, "6007_20260601.log")
	recent := filepath.Join(dir, "6007_20260801.log")
	other := filepath.Join(dir, "unrelated.txt")
	for _, p := range []string{old, recent, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	stale := w.Now().Add(-5 * 7 * 24 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(other, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := w.Prune(""); err == nil {
		t.Fatalf("empty prefix must be rejected")
	}
	if err := w.Prune("6007_"); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("stale log should be removed")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Fatalf("recent log should survive: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("non-matching file should survive: %v", err)
	}
}
