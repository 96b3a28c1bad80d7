package classifier

import (
	"context"
	"testing"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/store"
	"github.com/sitewatch/auditlog/internal/testkit"
)

type fakeSchema struct {
	tables map[string]bool
}

func (f fakeSchema) TableExists(_ context.Context, table string) (bool, error) {
	return f.tables[table], nil
}

func TestParseSchemaStatement(t *testing.T) {
	t.Parallel()
	cases := []struct {
		stmt   string
		action Action
		table  string
		ok     bool
	}{
		{"ALTER TABLE wp_my_plugin ADD COLUMN x INT", ActionUpdate, "wp_my_plugin", true},
		{"CREATE TABLE wp_my_plugin (id INT)", ActionCreate, "wp_my_plugin", true},
		{"create table if not exists wp_my_plugin (id INT)", ActionCreate, "wp_my_plugin", true},
		{"DROP TABLE wp_my_plugin", ActionDelete, "wp_my_plugin", true},
		{"DROP TABLE IF EXISTS wp_my_plugin", ActionDelete, "wp_my_plugin", true},
		{"CREATE TABLE `wp_my_plugin`(id INT)", ActionCreate, "wp_my_plugin", true},
		{"SELECT * FROM wp_posts", "", "", false},
		{"CREATE INDEX idx ON wp_posts (id)", "", "", false},
		{"DROP TABLE", "", "", false},
	}
	for _, tc := range cases {
		action, table, ok := parseSchemaStatement(tc.stmt)
		if ok != tc.ok || action != tc.action || table != tc.table {
			t.Fatalf("parse %q = (%q, %q, %v), want (%q, %q, %v)",
				tc.stmt, action, table, ok, tc.action, tc.table, tc.ok)
		}
	}
}

func TestClassify_ActorFromScript(t *testing.T) {
	t.Parallel()
	db := testkit.OpenTestDB(t)
	settings := store.NewSettings(db)
	schema := fakeSchema{tables: map[string]bool{}}

	cases := []struct {
		script string
		want   int
	}{
		{"/wp-admin/plugins.php", catalog.PluginCreatedTable},
		{"/wp-admin/plugin-install.php", catalog.PluginCreatedTable},
		{"/wp-admin/themes.php", catalog.ThemeCreatedTable},
		{"/wp-admin/customize.php", catalog.ThemeCreatedTable},
		{"/wp-cron.php", catalog.UnknownCreatedTable},
		{"", catalog.UnknownCreatedTable},
	}
	for _, tc := range cases {
		c := NewSQLClassifier("wp_", tc.script, schema, settings)
		ev, ok, err := c.Classify(context.Background(), "CREATE TABLE wp_custom_data (id INT)")
		if err != nil {
			t.Fatalf("classify (%s): %v", tc.script, err)
		}
		if !ok || ev.AlertID != tc.want {
			t.Fatalf("script %q: got (%d, %v), want alert %d", tc.script, ev.AlertID, ok, tc.want)
		}
		if ev.Meta["TableName"] != "wp_custom_data" {
			t.Fatalf("script %q: meta table = %v", tc.script, ev.Meta["TableName"])
		}
	}
}

func TestClassify_BackgroundSuppression(t *testing.T) {
	t.Parallel()
	db := testkit.OpenTestDB(t)
	settings := store.NewSettings(db)
	schema := fakeSchema{tables: map[string]bool{}}
	ctx := context.Background()

	c := NewSQLClassifier("wp_", "/wp-admin/upgrade.php", schema, settings)
	_, ok, err := c.Classify(ctx, "ALTER TABLE wp_posts ADD COLUMN x INT")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ok {
		t.Fatal("core table event should be suppressed by default")
	}

	if err := settings.Set(ctx, store.SettingLogBackgroundEvents, "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	ev, ok, err := c.Classify(ctx, "ALTER TABLE wp_posts ADD COLUMN x INT")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !ok || ev.AlertID != catalog.CoreModifiedTable {
		t.Fatalf("got (%d, %v), want %d", ev.AlertID, ok, catalog.CoreModifiedTable)
	}
}

func TestClassify_MultisiteCoreTables(t *testing.T) {
	t.Parallel()
	db := testkit.OpenTestDB(t)
	settings := store.NewSettings(db)
	ctx := context.Background()
	if err := settings.Set(ctx, store.SettingLogBackgroundEvents, "true"); err != nil {
		t.Fatalf("set: %v", err)
	}

	c := NewSQLClassifier("wp_", "", fakeSchema{}, settings)
	for _, table := range []string{"wp_3_posts", "wp_options", "wp_blogs", "wp_sitemeta"} {
		ev, ok, err := c.Classify(ctx, "DROP TABLE "+table)
		if err != nil {
			t.Fatalf("classify %s: %v", table, err)
		}
		if !ok || ev.AlertID != catalog.CoreDeletedTable {
			t.Fatalf("table %s: got (%d, %v), want %d", table, ev.AlertID, ok, catalog.CoreDeletedTable)
		}
	}
	// A prefixed but non-core table is not attributed to WordPress.
	ev, ok, err := c.Classify(ctx, "DROP TABLE wp_woocommerce_orders")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !ok || ev.AlertID != catalog.UnknownDeletedTable {
		t.Fatalf("got (%d, %v), want %d", ev.AlertID, ok, catalog.UnknownDeletedTable)
	}
}

func TestClassify_ExistingTableCreateIsNoop(t *testing.T) {
	t.Parallel()
	db := testkit.OpenTestDB(t)
	settings := store.NewSettings(db)
	schema := fakeSchema{tables: map[string]bool{"wp_custom_data": true}}

	c := NewSQLClassifier("wp_", "/wp-admin/plugins.php", schema, settings)
	_, ok, err := c.Classify(context.Background(), "CREATE TABLE IF NOT EXISTS wp_custom_data (id INT)")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ok {
		t.Fatal("re-issued CREATE for an existing table should not produce an event")
	}
	// The same statement against a missing table does.
	ev, ok, err := c.Classify(context.Background(), "CREATE TABLE IF NOT EXISTS wp_other (id INT)")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !ok || ev.AlertID != catalog.PluginCreatedTable {
		t.Fatalf("got (%d, %v), want %d", ev.AlertID, ok, catalog.PluginCreatedTable)
	}
}

func TestClassify_UnmappedComboIsNoop(t *testing.T) {
	t.Parallel()
	db := testkit.OpenTestDB(t)
	settings := store.NewSettings(db)

	// Themes have no update alert.
	c := NewSQLClassifier("wp_", "/wp-admin/themes.php", fakeSchema{}, settings)
	_, ok, err := c.Classify(context.Background(), "ALTER TABLE wp_theme_data ADD COLUMN x INT")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ok {
		t.Fatal("unmapped actor/action pair should be a silent no-op")
	}
}
