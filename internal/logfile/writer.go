// Package logfile appends 404 request lines to per-day log files under the
// working directory. Concurrent requests never share a handle: when the
// primary file cannot be opened the writer falls back to a suffixed sibling
// instead of retrying, trading file-name tidiness for append safety.
package logfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sitewatch/auditlog/internal/store"
)

const (
	subdir = "404s"
	// Probe budget for the suffixed-fallback loop. The original behavior was
	// unbounded; a persistently unwritable filesystem now gives up instead of
	// spinning, and the caller continues without a file link.
	maxProbes = 32

	pruneAge = 4 * 7 * 24 * time.Hour
)

type Writer struct {
	Dir      string
	Settings *store.Settings
	Now      func() time.Time
}

func NewWriter(workingDir string, settings *store.Settings) *Writer {
	return &Writer{
		Dir:      filepath.Join(workingDir, subdir),
		Settings: settings,
		Now:      time.Now,
	}
}

// WriteLine appends one request line and returns the path of the file it
// landed in. It is a no-op (empty path, nil error) when file logging is
// disabled. A nil error with an empty path also covers "could not acquire any
// file": the 404 alert itself must never fail because its side-channel log
// did.
func (w *Writer) WriteLine(ctx context.Context, alertID int, ip, username, url, referrer string) (string, error) {
	if w == nil {
		return "", nil
	}
	if !w.Settings.Bool(ctx, store.SettingNotFoundLogToFile, false) {
		return "", nil
	}
	if err := w.ensureDir(); err != nil {
		return "", err
	}

	ip = normalizeIP(ip)
	line := ip + ",Request URL " + strings.TrimSpace(url)
	if w.Settings.Bool(ctx, store.SettingNotFoundLogReferrer, false) && strings.TrimSpace(referrer) != "" {
		line += ",Referer " + strings.TrimSpace(referrer)
	}
	line += ",\n"

	day := w.Now().UTC().Format("20060102")
	base := fmt.Sprintf("%d_%s", alertID, day)

	f, path := w.openTarget(base)
	if f == nil {
		return "", nil
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return "", err
	}
	return path, nil
}

// openTarget opens the primary {base}.log for append, falling back on
// failure to {base}_{n}.log: a not-yet-existing suffix is created fresh; an
// existing suffix is reused only when it is the latest-modified file carrying
// the day's prefix.
func (w *Writer) openTarget(base string) (*os.File, string) {
	primary := filepath.Join(w.Dir, base+".log")
	if f, err := os.OpenFile(primary, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		return f, primary
	}

	latest := w.latestModified(base)
	for n := 1; n <= maxProbes; n++ {
		candidate := filepath.Join(w.Dir, fmt.Sprintf("%s_%d.log", base, n))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			if f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				return f, candidate
			}
			continue
		}
		if candidate == latest {
			if f, err := os.OpenFile(candidate, os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				return f, candidate
			}
		}
	}
	return nil, ""
}

// latestModified returns the path of the most recently modified file in the
// log directory whose name carries the given day prefix.
func (w *Writer) latestModified(prefix string) string {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return ""
	}
	var (
		best      string
		bestMtime time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMtime) {
			best = filepath.Join(w.Dir, e.Name())
			bestMtime = info.ModTime()
		}
	}
	return best
}

// Prune deletes log files whose name contains prefix and whose modification
// time is older than four weeks. The empty-prefix guard keeps a misconfigured
// caller from sweeping the whole directory.
func (w *Writer) Prune(prefix string) error {
	if w == nil {
		return nil
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return fmt.Errorf("logfile: refusing to prune with empty prefix")
	}
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	cutoff := w.Now().Add(-pruneAge)
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(w.Dir, e.Name()))
		}
	}
	return nil
}

// ensureDir creates the 404 directory and its index.php sentinel, which
// blocks directory listing when the working dir sits under a web root.
func (w *Writer) ensureDir() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}
	sentinel := filepath.Join(w.Dir, "index.php")
	if _, err := os.Stat(sentinel); os.IsNotExist(err) {
		return os.WriteFile(sentinel, nil, 0o644)
	}
	return nil
}

func normalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "127.0.0.1" || ip == "::1" {
		return "localhost"
	}
	return ip
}
