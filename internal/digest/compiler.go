package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/model"
	"github.com/sitewatch/auditlog/internal/store"
	"gorm.io/gorm"
)

// Bucket names double as the settings suffix for the per-bucket toggle
// ("digest:bucket:" + name), so keep them stable.
type Bucket string

const (
	BucketLogins          Bucket = "logins"
	BucketFailedPassword  Bucket = "failed-wrong-password"
	BucketFailedUsername  Bucket = "failed-wrong-username"
	BucketPasswordSelf    Bucket = "password-self"
	BucketPasswordForced  Bucket = "password-forced"
	BucketPluginActivity  Bucket = "plugin-activity"
	BucketSystemActivity  Bucket = "system-activity"
	BucketUserProfile     Bucket = "user-profile"
	BucketMultisite       Bucket = "multisite"
	BucketPostsPublished  Bucket = "posts-published"
	BucketPostsTrashed    Bucket = "posts-trashed"
	BucketPostsDeleted    Bucket = "posts-deleted"
	BucketPostsModified   Bucket = "posts-modified"
	BucketPostsStatus     Bucket = "posts-status-changed"
	BucketFilesAdded      Bucket = "files-added"
	BucketFilesModified   Bucket = "files-modified"
	BucketFilesDeleted    Bucket = "files-deleted"
)

// maxDetailRows bounds the detail table per bucket; the count phrase still
// reflects the full total.
const maxDetailRows = 10

const emptyBody = "No events so far."

// Section is one rendered bucket.
type Section struct {
	Bucket  Bucket
	Count   int
	Heading string
	Rows    []string
}

// Report is the rendered digest. Body is plain assembled text; transport
// formatting (HTML wrapping) is the notifier's concern.
type Report struct {
	Subject  string
	Sections []Section
	Body     string
}

type route struct {
	bucket Bucket
	ids    catalog.IDSet
}

// Compiler turns a window of occurrences into a digest report. It is a pure
// function of its inputs apart from the settings reads; the display-name memo
// lives on the per-run state, never on the compiler.
type Compiler struct {
	DB        *gorm.DB
	Settings  *store.Settings
	Catalog   *catalog.Catalog
	Multisite bool
	SiteURL   string

	routes []route
}

func NewCompiler(db *gorm.DB, settings *store.Settings, cat *catalog.Catalog) *Compiler {
	c := &Compiler{DB: db, Settings: settings, Catalog: cat}
	// Routing order is part of the contract: first match wins, and the
	// password buckets must fire before the general user-profile bucket.
	c.routes = []route{
		{BucketLogins, catalog.NewIDSet(catalog.UserLoggedIn)},
		{BucketFailedPassword, catalog.NewIDSet(catalog.LoginFailedWrongPassword)},
		{BucketFailedUsername, catalog.NewIDSet(catalog.LoginFailedWrongUsername)},
		{BucketPasswordSelf, catalog.NewIDSet(catalog.UserChangedOwnPassword)},
		{BucketPasswordForced, catalog.NewIDSet(catalog.UserPasswordForced)},
		{BucketPluginActivity, catalog.NewIDSet(
			catalog.PluginInstalled, catalog.PluginActivated, catalog.PluginDeactivated,
			catalog.PluginUninstalled, catalog.PluginUpgraded)},
		{BucketSystemActivity, catalog.NewIDSet(cat.IDsByObjectTag("system", "database")...)},
		{BucketPostsPublished, catalog.NewIDSet(catalog.PostPublished)},
		{BucketPostsTrashed, catalog.NewIDSet(catalog.PostTrashed)},
		{BucketPostsDeleted, catalog.NewIDSet(catalog.PostDeleted)},
		{BucketPostsModified, catalog.NewIDSet(catalog.PostModified)},
		{BucketPostsStatus, catalog.NewIDSet(catalog.PostStatusChanged)},
		{BucketUserProfile, catalog.NewIDSet(cat.IDsByObjectTag("user-profile")...)},
		{BucketMultisite, catalog.NewIDSet(cat.IDsByObjectTag("multisite")...)},
		{BucketFilesAdded, catalog.NewIDSet(catalog.FileUploaded)},
		{BucketFilesModified, catalog.NewIDSet(catalog.FileModified)},
		{BucketFilesDeleted, catalog.NewIDSet(catalog.FileDeleted)},
	}
	return c
}

// AllowedIDs is the union of every routed id set; the caller scopes its window
// query to this list.
func (c *Compiler) AllowedIDs() []int {
	seen := catalog.IDSet{}
	var out []int
	for _, r := range c.routes {
		for id := range r.ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Generate renders the digest for an already-fetched, chronologically ordered
// window. The second return is false when the caller must not send anything
// (empty window with empty digests suppressed).
func (c *Compiler) Generate(ctx context.Context, events []model.Occurrence, windowStart, windowEnd time.Time, weekly bool) (Report, bool, error) {
	subject := c.subject(windowStart, weekly)

	if len(events) == 0 {
		if !c.Settings.Bool(ctx, store.SettingDigestSendEmpty, false) {
			return Report{}, false, nil
		}
		return Report{Subject: subject, Body: emptyBody}, true, nil
	}

	buckets := map[Bucket][]model.Occurrence{}
	for _, ev := range events {
		for _, r := range c.routes {
			if r.ids.Has(ev.AlertID) {
				buckets[r.bucket] = append(buckets[r.bucket], ev)
				break
			}
		}
	}

	run := &run{c: c, ctx: ctx, names: map[string]string{}}
	var sections []Section
	for _, r := range c.routes {
		evs := buckets[r.bucket]
		if len(evs) == 0 || !c.Settings.BucketEnabled(ctx, string(r.bucket)) {
			continue
		}
		sections = append(sections, run.renderBucket(r.bucket, evs))
	}

	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.Heading)
		b.WriteString("\n")
		for _, row := range s.Rows {
			b.WriteString("  - ")
			b.WriteString(row)
			b.WriteString("\n")
		}
	}
	return Report{Subject: subject, Sections: sections, Body: b.String()}, true, nil
}

func (c *Compiler) subject(windowStart time.Time, weekly bool) string {
	if weekly {
		return fmt.Sprintf("Weekly activity report for the week of %s", windowStart.Format("January 2, 2006"))
	}
	return fmt.Sprintf("Daily activity report for %s", windowStart.Format("January 2, 2006"))
}

// run carries the per-generation state, most importantly the display-name
// memo, so repeated Generate calls stay independent.
type run struct {
	c     *Compiler
	ctx   context.Context
	names map[string]string
}

func (r *run) renderBucket(bucket Bucket, evs []model.Occurrence) Section {
	total := len(evs)
	sec := Section{Bucket: bucket, Count: total, Heading: r.heading(bucket, evs)}
	shown := evs
	if len(shown) > maxDetailRows {
		shown = shown[:maxDetailRows]
	}
	for _, ev := range shown {
		row, ok := r.renderRow(ev)
		if !ok {
			// Malformed meta skips the row, never the digest.
			continue
		}
		sec.Rows = append(sec.Rows, row)
	}
	return sec
}

func (r *run) heading(bucket Bucket, evs []model.Occurrence) string {
	total := len(evs)
	switch bucket {
	case BucketLogins:
		users := distinctUsers(evs)
		return fmt.Sprintf("There %s from %d unique %s:",
			pluralize(total, "was 1 login", "were %d logins"),
			users, pluralize(users, "user", "users"))
	case BucketFailedPassword:
		return fmt.Sprintf("There %s with a wrong password:",
			pluralize(total, "was 1 failed login", "were %d failed logins"))
	case BucketFailedUsername:
		return fmt.Sprintf("There %s with a wrong username:",
			pluralize(total, "was 1 failed login", "were %d failed logins"))
	case BucketPasswordSelf:
		return fmt.Sprintf("%s their own password:",
			pluralize(total, "1 user changed", "%d users changed"))
	case BucketPasswordForced:
		return fmt.Sprintf("%s changed by an administrator:",
			pluralize(total, "The password of 1 user was", "The passwords of %d users were"))
	case BucketPluginActivity:
		return fmt.Sprintf("There %s:",
			pluralize(total, "was 1 plugin change", "were %d plugin changes"))
	case BucketSystemActivity:
		return fmt.Sprintf("There %s:",
			pluralize(total, "was 1 system event", "were %d system events"))
	case BucketUserProfile:
		return fmt.Sprintf("There %s:",
			pluralize(total, "was 1 user profile change", "were %d user profile changes"))
	case BucketMultisite:
		return fmt.Sprintf("There %s:",
			pluralize(total, "was 1 network change", "were %d network changes"))
	case BucketPostsPublished:
		return fmt.Sprintf("%s published:", pluralize(total, "1 post was", "%d posts were"))
	case BucketPostsTrashed:
		return fmt.Sprintf("%s moved to trash:", pluralize(total, "1 post was", "%d posts were"))
	case BucketPostsDeleted:
		return fmt.Sprintf("%s permanently deleted:", pluralize(total, "1 post was", "%d posts were"))
	case BucketPostsModified:
		return fmt.Sprintf("%s modified:", pluralize(total, "1 post was", "%d posts were"))
	case BucketPostsStatus:
		return fmt.Sprintf("The status of %s:", pluralize(total, "1 post changed", "%d posts changed"))
	case BucketFilesAdded:
		return fmt.Sprintf("%s uploaded:", pluralize(total, "1 file was", "%d files were"))
	case BucketFilesModified:
		return fmt.Sprintf("%s modified:", pluralize(total, "1 file was", "%d files were"))
	case BucketFilesDeleted:
		return fmt.Sprintf("%s deleted:", pluralize(total, "1 file was", "%d files were"))
	default:
		return fmt.Sprintf("%d events:", total)
	}
}

// pluralize returns the singular literal when n == 1, otherwise the plural
// format applied to n. The plural form may omit the verb entirely ("user").
func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	if strings.Contains(plural, "%d") {
		return fmt.Sprintf(plural, n)
	}
	return plural
}

func distinctUsers(evs []model.Occurrence) int {
	seen := map[string]bool{}
	for _, ev := range evs {
		login := strings.ToLower(strings.TrimSpace(ev.Username))
		if login == "" {
			continue
		}
		seen[login] = true
	}
	return len(seen)
}
