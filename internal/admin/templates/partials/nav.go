package partials

import (
	"context"

	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/navigation"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
)

// Sidebar renders the navigation menu, hiding links the user may not open and highlighting the
// current route.
func Sidebar(menu []navigation.MenuGroup) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		ctx := m.Context()
		m.Open("aside", helpers.Class("w-60 shrink-0 border-r border-slate-200 bg-white px-4 py-6"), helpers.A("data-sidebar", ""))
		m.Open("a", helpers.Href(helpers.BasePath(ctx)), helpers.Class("mb-6 block px-3 text-lg font-semibold text-slate-900"))
		m.Text("Catalog Admin")
		m.Close("a")
		m.Open("nav", helpers.A("aria-label", "Main"), helpers.Class("space-y-6"))
		for _, group := range menu {
			if !hasVisibleItems(group, ctx) {
				continue
			}
			m.Open("div", helpers.A("data-menu-group", group.Key))
			m.Element("p", group.Label, helpers.Class("px-3 text-xs font-semibold uppercase tracking-wide text-slate-400"))
			m.Open("ul", helpers.Class("mt-2 space-y-1"))
			for _, item := range visibleItems(group, ctx) {
				active := helpers.NavActive(ctx, item.Pattern, item.MatchPrefix)
				m.Open("li")
				m.Open("a",
					helpers.Href(item.Href),
					helpers.Class(helpers.NavClass(active)),
					helpers.When(active, helpers.A("aria-current", "page")),
					helpers.A("data-menu-item", item.Key),
				)
				if item.Icon != "" {
					m.Element("span", item.Icon, helpers.A("aria-hidden", "true"))
				}
				m.Element("span", item.Label)
				m.Close("a")
				m.Close("li")
			}
			m.Close("ul")
			m.Close("div")
		}
		m.Close("nav")
		m.Close("aside")
	})
}

func hasVisibleItems(group navigation.MenuGroup, ctx context.Context) bool {
	return len(visibleItems(group, ctx)) > 0
}

func visibleItems(group navigation.MenuGroup, ctx context.Context) []navigation.MenuItem {
	if !helpers.HasCapability(ctx, string(group.Capability)) {
		return nil
	}
	out := make([]navigation.MenuItem, 0, len(group.Items))
	for _, item := range group.Items {
		if helpers.HasCapability(ctx, string(item.Capability)) {
			out = append(out, item)
		}
	}
	return out
}
