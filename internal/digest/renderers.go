package digest

import (
	"fmt"
	"strings"

	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/model"
	"github.com/sitewatch/auditlog/internal/store"
)

// renderFn formats one detail row. Returning false drops the row (missing or
// malformed meta) without touching the bucket count.
type renderFn func(r *run, ev model.Occurrence) (string, bool)

// renderers is the per-alert-id strategy table, consulted before the generic
// fallback. Registered once at package init; alert ids not listed here render
// through the catalog's short description.
var renderers = map[int]renderFn{}

func init() {
	register := func(fn renderFn, ids ...int) {
		for _, id := range ids {
			renderers[id] = fn
		}
	}
	register(renderLogin,
		catalog.UserLoggedIn, catalog.LoginFailedWrongPassword, catalog.LoginFailedWrongUsername)
	register(renderPasswordSelf, catalog.UserChangedOwnPassword)
	register(renderPasswordForced, catalog.UserPasswordForced)
	register(renderPlugin,
		catalog.PluginInstalled, catalog.PluginActivated, catalog.PluginDeactivated,
		catalog.PluginUninstalled, catalog.PluginUpgraded)
	register(renderPost,
		catalog.PostPublished, catalog.PostTrashed, catalog.PostDeleted,
		catalog.PostModified, catalog.PostStatusChanged)
	register(renderFile,
		catalog.FileUploaded, catalog.FileModified, catalog.FileDeleted)
}

func (r *run) renderRow(ev model.Occurrence) (string, bool) {
	if fn, ok := renderers[ev.AlertID]; ok {
		return fn(r, ev)
	}
	return renderGeneric(r, ev)
}

func renderLogin(r *run, ev model.Occurrence) (string, bool) {
	ip := strings.TrimSpace(ev.ClientIP)
	if ip == "" {
		return "", false
	}
	return fmt.Sprintf("User %s from IP %s", r.displayName(ev), ip), true
}

func renderPasswordSelf(r *run, ev model.Occurrence) (string, bool) {
	return fmt.Sprintf("User %s changed their password", r.displayName(ev)), true
}

func renderPasswordForced(r *run, ev model.Occurrence) (string, bool) {
	meta := ev.MetaMap()
	target, _ := meta["TargetUsername"].(string)
	if strings.TrimSpace(target) == "" {
		return "", false
	}
	return fmt.Sprintf("Password of user %s was changed by %s", target, r.displayName(ev)), true
}

var pluginVerbs = map[int]string{
	catalog.PluginInstalled:   "installed",
	catalog.PluginActivated:   "activated",
	catalog.PluginDeactivated: "deactivated",
	catalog.PluginUninstalled: "uninstalled",
	catalog.PluginUpgraded:    "upgraded",
}

func renderPlugin(r *run, ev model.Occurrence) (string, bool) {
	meta := ev.MetaMap()
	name, _ := meta["PluginName"].(string)
	if strings.TrimSpace(name) == "" {
		return "", false
	}
	return fmt.Sprintf("User %s %s the plugin %s", r.displayName(ev), pluginVerbs[ev.AlertID], name), true
}

func renderPost(r *run, ev model.Occurrence) (string, bool) {
	meta := ev.MetaMap()
	title, _ := meta["PostTitle"].(string)
	if strings.TrimSpace(title) == "" {
		return "", false
	}
	line := title
	if url, _ := meta["PostUrl"].(string); strings.TrimSpace(url) != "" {
		line = fmt.Sprintf("<a href=%q>%s</a>", url, title)
	}
	line = fmt.Sprintf("%s by user %s", line, r.displayName(ev))
	if r.c.Multisite && r.c.SiteURL != "" {
		line += " on site " + r.c.SiteURL
	}
	return line, true
}

func renderFile(r *run, ev model.Occurrence) (string, bool) {
	meta := ev.MetaMap()
	name, _ := meta["FileName"].(string)
	if strings.TrimSpace(name) == "" {
		return "", false
	}
	return fmt.Sprintf("%s by user %s", name, r.displayName(ev)), true
}

func renderGeneric(r *run, ev model.Occurrence) (string, bool) {
	def, ok := r.c.Catalog.Get(ev.AlertID)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s (user %s)", def.Description, r.displayName(ev)), true
}

// displayName resolves the actor label for one occurrence, memoized per run
// so a login is looked up at most once per report.
func (r *run) displayName(ev model.Occurrence) string {
	login := strings.TrimSpace(ev.Username)
	key := strings.ToLower(login)
	if name, ok := r.names[key]; ok {
		return name
	}

	name := r.resolveName(login, ev.UserID)
	r.names[key] = name
	return name
}

func (r *run) resolveName(login string, userID *int64) string {
	var (
		row   model.SiteUser
		found bool
	)
	if login != "" {
		row, found, _ = store.GetSiteUserByLogin(r.ctx, r.c.DB, login)
	} else if userID != nil {
		row, found, _ = store.GetSiteUserByID(r.ctx, r.c.DB, *userID)
	}
	if !found {
		if login != "" {
			return login
		}
		return "System"
	}

	mode := r.c.Settings.Get(r.ctx, store.SettingDigestDisplayMode, "login")
	switch mode {
	case "display-name":
		if strings.TrimSpace(row.DisplayName) != "" {
			return row.DisplayName
		}
	case "first-last":
		full := strings.TrimSpace(row.FirstName + " " + row.LastName)
		if full != "" {
			return full
		}
	}
	if strings.TrimSpace(row.Login) != "" {
		return row.Login
	}
	return "System"
}
