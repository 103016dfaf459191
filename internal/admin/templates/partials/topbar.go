package partials

import (
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
)

// TopbarActions renders the environment badge, the loading indicator and the user menu.
func TopbarActions() templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		ctx := m.Context()
		env := middleware.EnvironmentFromContext(ctx)
		short, tone := environmentBadge(env)

		m.Open("div", helpers.Class("flex items-center gap-4"), helpers.A("data-topbar-actions", ""))

		m.Open("span", helpers.Class(helpers.BadgeClass(tone)), helpers.A("data-environment-badge", env), helpers.A("title", env))
		m.Element("span", short, helpers.A("aria-hidden", "true"))
		m.Element("span", env+" environment", helpers.Class("sr-only"))
		m.Close("span")

		m.Open("span", helpers.A("id", "global-indicator"), helpers.Class("htmx-indicator text-xs text-slate-500"), helpers.A("role", "status"))
		m.Text("Loading…")
		m.Close("span")

		if user, ok := middleware.UserFromContext(ctx); ok {
			m.Open("div", helpers.Class("flex items-center gap-3"), helpers.A("data-user-menu", ""))
			m.Open("div", helpers.Class("min-w-0 text-right"))
			m.Element("p", user.DisplayName(), helpers.Class("truncate text-sm font-medium text-slate-900"))
			if len(user.Roles) > 0 {
				m.Element("p", strings.Join(user.Roles, ", "), helpers.Class("truncate text-xs text-slate-500"))
			}
			m.Close("div")

			m.Open("form",
				helpers.A("method", "post"),
				helpers.A("action", logoutPath(helpers.BasePath(ctx))),
				helpers.A("data-user-menu-logout", ""),
			)
			m.Void("input", helpers.A("type", "hidden"), helpers.A("name", middleware.CSRFFormField), helpers.A("value", middleware.CSRFTokenFromContext(ctx)))
			m.Element("button", "Sign out", helpers.A("type", "submit"), helpers.Class(helpers.ButtonClass(false)))
			m.Close("form")
			m.Close("div")
		}

		m.Close("div")
	})
}

func environmentBadge(env string) (string, string) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "prd":
		return "PRD", "danger"
	case "staging", "stage", "stg":
		return "STG", "warning"
	default:
		return "DEV", "info"
	}
}

func logoutPath(base string) string {
	if base == "/" {
		return "/logout"
	}
	return strings.TrimRight(base, "/") + "/logout"
}
