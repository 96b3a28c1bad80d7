package digest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/model"
	"github.com/sitewatch/auditlog/internal/store"
	"github.com/sitewatch/auditlog/internal/testkit"
	"gorm.io/gorm"
)

func newTestCompiler(t *testing.T) (*Compiler, *gorm.DB) {
	t.Helper()
	db := testkit.OpenTestDB(t)
	cat, err := catalog.Default(func(string) bool { return false })
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return NewCompiler(db, store.NewSettings(db), cat), db
}

func occ(t *testing.T, alertID int, username, ip string, meta map[string]any) model.Occurrence {
	t.Helper()
	row := model.Occurrence{
		AlertID:   alertID,
		SiteID:    1,
		CreatedOn: time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC),
		ClientIP:  ip,
		Username:  username,
	}
	if err := row.SetMeta(meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	return row
}

var testWindow = struct{ start, end time.Time }{
	start: time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC),
	end:   time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC),
}

func TestGenerate_BucketPartitioning(t *testing.T) {
	t.Parallel()
	c, _ := newTestCompiler(t)
	events := []model.Occurrence{
		occ(t, catalog.UserLoggedIn, "alice", "10.0.0.1", nil),
		occ(t, catalog.LoginFailedWrongPassword, "alice", "10.0.0.1", nil),
		occ(t, catalog.LoginFailedWrongUsername, "ghost", "10.0.0.2", nil),
		occ(t, catalog.UserChangedOwnPassword, "alice", "10.0.0.1", nil),
		occ(t, catalog.UserPasswordForced, "admin", "10.0.0.9", map[string]any{"TargetUsername": "bob"}),
		occ(t, catalog.PluginInstalled, "admin", "10.0.0.9", map[string]any{"PluginName": "Akismet"}),
		occ(t, catalog.PostPublished, "alice", "10.0.0.1", map[string]any{"PostTitle": "Hello"}),
	}

	report, send, err := c.Generate(context.Background(), events, testWindow.start, testWindow.end, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !send {
		t.Fatal("non-empty window must be sent")
	}
	if len(report.Sections) != 7 {
		t.Fatalf("got %d sections, want 7: %+v", len(report.Sections), report.Sections)
	}
	want := []Bucket{
		BucketLogins, BucketFailedPassword, BucketFailedUsername,
		BucketPasswordSelf, BucketPasswordForced, BucketPluginActivity, BucketPostsPublished,
	}
	for i, sec := range report.Sections {
		if sec.Bucket != want[i] {
			t.Fatalf("section %d = %s, want %s", i, sec.Bucket, want[i])
		}
		if sec.Count != 1 {
			t.Fatalf("bucket %s count = %d, want 1", sec.Bucket, sec.Count)
		}
		if len(sec.Rows) != 1 {
			t.Fatalf("bucket %s rows = %d, want 1", sec.Bucket, len(sec.Rows))
		}
		if !strings.Contains(sec.Heading, "1") {
			t.Fatalf("bucket %s heading has no count: %q", sec.Bucket, sec.Heading)
		}
	}
}

func TestGenerate_TruncationKeepsFullCount(t *testing.T) {
	t.Parallel()
	c, _ := newTestCompiler(t)
	var events []model.Occurrence
	for i := 0; i < 15; i++ {
		events = append(events, occ(t, catalog.UserLoggedIn,
			fmt.Sprintf("user%d", i%4), fmt.Sprintf("10.0.0.%d", i), nil))
	}
	// A row with no username must not register as a distinct user.
	events = append(events, occ(t, catalog.UserLoggedIn, "  ", "10.0.0.99", nil))

	report, _, err := c.Generate(context.Background(), events, testWindow.start, testWindow.end, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(report.Sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(report.Sections))
	}
	sec := report.Sections[0]
	if !strings.Contains(sec.Heading, "were 16 logins") || !strings.Contains(sec.Heading, "4 unique users") {
		t.Fatalf("heading = %q", sec.Heading)
	}
	if len(sec.Rows) != maxDetailRows {
		t.Fatalf("rows = %d, want %d", len(sec.Rows), maxDetailRows)
	}
}

func TestGenerate_MalformedRowSkippedNotCounted(t *testing.T) {
	t.Parallel()
	c, _ := newTestCompiler(t)
	events := []model.Occurrence{
		occ(t, catalog.UserLoggedIn, "alice", "10.0.0.1", nil),
		occ(t, catalog.UserLoggedIn, "bob", "", nil), // no IP: row dropped
	}

	report, _, err := c.Generate(context.Background(), events, testWindow.start, testWindow.end, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sec := report.Sections[0]
	if sec.Count != 2 {
		t.Fatalf("count = %d, want the full total", sec.Count)
	}
	if len(sec.Rows) != 1 {
		t.Fatalf("rows = %d, want the malformed one skipped", len(sec.Rows))
	}
}

func TestGenerate_EmptyWindow(t *testing.T) {
	t.Parallel()
	c, _ := newTestCompiler(t)
	ctx := context.Background()

	_, send, err := c.Generate(ctx, nil, testWindow.start, testWindow.end, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if send {
		t.Fatal("empty window with empty digests disabled must not send")
	}

	if err := c.Settings.Set(ctx, store.SettingDigestSendEmpty, "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	report, send, err := c.Generate(ctx, nil, testWindow.start, testWindow.end, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !send || !strings.Contains(report.Body, "No events so far") {
		t.Fatalf("got send=%v body=%q", send, report.Body)
	}
}

func TestGenerate_BucketToggleOff(t *testing.T) {
	t.Parallel()
	c, _ := newTestCompiler(t)
	ctx := context.Background()
	if err := c.Settings.Set(ctx, store.SettingDigestBucketPrefix+string(BucketLogins), "false"); err != nil {
		t.Fatalf("set: %v", err)
	}
	events := []model.Occurrence{
		occ(t, catalog.UserLoggedIn, "alice", "10.0.0.1", nil),
		occ(t, catalog.PostPublished, "alice", "10.0.0.1", map[string]any{"PostTitle": "Hello"}),
	}

	report, _, err := c.Generate(ctx, events, testWindow.start, testWindow.end, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(report.Sections) != 1 || report.Sections[0].Bucket != BucketPostsPublished {
		t.Fatalf("sections = %+v, want only the posts bucket", report.Sections)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	t.Parallel()
	c, db := newTestCompiler(t)
	ctx := context.Background()

	// A site user so name resolution exercises the memo both runs.
	if err := db.Create(&model.SiteUser{SiteID: 1, Login: "alice", DisplayName: "Alice A"}).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := c.Settings.Set(ctx, store.SettingDigestDisplayMode, "display-name"); err != nil {
		t.Fatalf("set: %v", err)
	}
	events := []model.Occurrence{
		occ(t, catalog.UserLoggedIn, "alice", "10.0.0.1", nil),
		occ(t, catalog.UserLoggedIn, "alice", "10.0.0.2", nil),
		occ(t, catalog.PluginUpgraded, "alice", "10.0.0.1", map[string]any{"PluginName": "Akismet"}),
	}

	first, _, err := c.Generate(ctx, events, testWindow.start, testWindow.end, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, _, err := c.Generate(ctx, events, testWindow.start, testWindow.end, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reports differ between runs:\n%+v\n%+v", first, second)
	}
	if !strings.Contains(first.Sections[0].Rows[0], "Alice A") {
		t.Fatalf("display name not resolved: %q", first.Sections[0].Rows[0])
	}
}
