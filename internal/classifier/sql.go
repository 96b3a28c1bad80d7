package classifier

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/store"
)

type Actor string

const (
	ActorWordPress Actor = "wordpress"
	ActorPlugins   Actor = "plugins"
	ActorThemes    Actor = "themes"
	ActorUnknown   Actor = "unknown"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// schemaAlerts maps resolved (actor, action) pairs to alert ids. Missing
// combinations (themes/unknown never alter tables in practice) are a silent
// no-op, not an error.
var schemaAlerts = map[Actor]map[Action]int{
	ActorPlugins: {
		ActionCreate: catalog.PluginCreatedTable,
		ActionUpdate: catalog.PluginModifiedTable,
		ActionDelete: catalog.PluginDeletedTable,
	},
	ActorThemes: {
		ActionCreate: catalog.ThemeCreatedTable,
		ActionDelete: catalog.ThemeDeletedTable,
	},
	ActorUnknown: {
		ActionCreate: catalog.UnknownCreatedTable,
		ActionDelete: catalog.UnknownDeletedTable,
	},
	ActorWordPress: {
		ActionCreate: catalog.CoreCreatedTable,
		ActionUpdate: catalog.CoreModifiedTable,
		ActionDelete: catalog.CoreDeletedTable,
	},
}

// SchemaInspector answers "does this table exist right now". The CREATE guard
// needs it because idempotent activation code re-issues CREATE TABLE IF NOT
// EXISTS on every page load.
type SchemaInspector interface {
	TableExists(ctx context.Context, table string) (bool, error)
}

// SQLClassifier resolves schema-changing SQL statements to alert events. One
// instance is scoped to a single request: the script basename is memoized on
// first use and never re-read.
type SQLClassifier struct {
	Settings *store.Settings
	Schema   SchemaInspector

	prefix     string
	scriptPath string

	siteTables    *regexp.Regexp
	networkTables *regexp.Regexp

	scriptBase     string
	scriptResolved bool
}

func NewSQLClassifier(prefix string, scriptPath string, schema SchemaInspector, settings *store.Settings) *SQLClassifier {
	prefix = strings.TrimSpace(prefix)
	quoted := regexp.QuoteMeta(prefix)
	return &SQLClassifier{
		Settings:   settings,
		Schema:     schema,
		prefix:     prefix,
		scriptPath: scriptPath,
		siteTables: regexp.MustCompile(`^` + quoted +
			`(\d+_)?(commentmeta|comments|links|options|postmeta|posts|terms|termmeta|term_relationships|term_taxonomy|usermeta|users)$`),
		networkTables: regexp.MustCompile(`^` + quoted +
			`(blogs|blog_versions|registration_log|signups|site|sitemeta|users|usermeta)$`),
	}
}

// Event is a classified, ready-to-dispatch alert.
type Event struct {
	AlertID int
	Meta    map[string]any
}

// Classify inspects a raw SQL statement and returns the alert event it maps
// to. The second return is false for every "no event" outcome: statements the
// tokenizer does not recognize, suppressed background activity, duplicate
// CREATEs and unmapped actor/action pairs.
func (c *SQLClassifier) Classify(ctx context.Context, stmt string) (Event, bool, error) {
	action, table, ok := parseSchemaStatement(stmt)
	if !ok {
		return Event{}, false, nil
	}

	actor := c.resolveActor(table)
	if actor == ActorWordPress && !c.Settings.Bool(ctx, store.SettingLogBackgroundEvents, false) {
		return Event{}, false, nil
	}
	if action == ActionCreate && c.Schema != nil {
		exists, err := c.Schema.TableExists(ctx, table)
		if err != nil {
			return Event{}, false, err
		}
		if exists {
			return Event{}, false, nil
		}
	}

	id, ok := schemaAlerts[actor][action]
	if !ok {
		return Event{}, false, nil
	}
	return Event{
		AlertID: id,
		Meta: map[string]any{
			"TableName": table,
			"Actor":     string(actor),
		},
	}, true, nil
}

// resolveActor classifies the owner of a table: known core tables belong to
// WordPress, everything else is attributed to the current request's script
// basename when it names a known surface, otherwise unknown.
func (c *SQLClassifier) resolveActor(table string) Actor {
	if c.siteTables.MatchString(table) || c.networkTables.MatchString(table) {
		return ActorWordPress
	}
	switch c.scriptBasename() {
	case "plugins", "plugin-install", "plugin-editor":
		return ActorPlugins
	case "themes", "theme-install", "theme-editor", "customize":
		return ActorThemes
	default:
		return ActorUnknown
	}
}

// scriptBasename is memoized per classifier instance; the executing script
// does not change within a request.
func (c *SQLClassifier) scriptBasename() string {
	if c.scriptResolved {
		return c.scriptBase
	}
	c.scriptResolved = true
	p := strings.TrimSpace(c.scriptPath)
	if p == "" {
		c.scriptBase = ""
		return ""
	}
	base := filepath.Base(p)
	c.scriptBase = strings.TrimSuffix(base, filepath.Ext(base))
	return c.scriptBase
}

// parseSchemaStatement tokenizes on whitespace and extracts the table name at
// the fixed positional offset of each recognized statement shape:
//
//	ALTER TABLE <name> ...                    offset 2
//	CREATE TABLE <name> ...                   offset 2
//	CREATE TABLE IF NOT EXISTS <name> ...     offset 5
//	DROP TABLE <name>                         offset 2
//	DROP TABLE IF EXISTS <name>               offset 4
func parseSchemaStatement(stmt string) (Action, string, bool) {
	fields := strings.Fields(stmt)
	if len(fields) < 3 {
		return "", "", false
	}

	kw := func(i int, want string) bool {
		return i < len(fields) && strings.EqualFold(fields[i], want)
	}

	var (
		action Action
		offset int
	)
	switch {
	case kw(0, "alter") && kw(1, "table"):
		action, offset = ActionUpdate, 2
	case kw(0, "create") && kw(1, "table"):
		action, offset = ActionCreate, 2
		if kw(2, "if") && kw(3, "not") && kw(4, "exists") {
			offset = 5
		}
	case kw(0, "drop") && kw(1, "table"):
		action, offset = ActionDelete, 2
		if kw(2, "if") && kw(3, "exists") {
			offset = 4
		}
	default:
		return "", "", false
	}

	if offset >= len(fields) {
		return "", "", false
	}
	table := cleanTableToken(fields[offset])
	if table == "" {
		return "", "", false
	}
	return action, table, true
}

func cleanTableToken(tok string) string {
	tok = strings.TrimSpace(tok)
	// A column list can ride on the token when no space precedes it.
	if i := strings.IndexByte(tok, '('); i >= 0 {
		tok = tok[:i]
	}
	tok = strings.Trim(tok, "`\";")
	return tok
}
