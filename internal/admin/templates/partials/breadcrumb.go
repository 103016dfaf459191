package partials

import (
	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
)

// Breadcrumb is one trail entry; the last entry is the current page and carries no link.
type Breadcrumb struct {
	Label string
	Href  string
}

// Breadcrumbs renders the trail separated by "›".
func Breadcrumbs(items []Breadcrumb) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		if len(items) == 0 {
			return
		}
		m.Open("nav", helpers.A("aria-label", "Breadcrumb"), helpers.Class("text-sm text-slate-500"), helpers.A("data-breadcrumbs", ""))
		m.Open("ol", helpers.Class("flex flex-wrap items-center gap-2"))
		for i, item := range items {
			last := i == len(items)-1
			m.Open("li", helpers.Class("flex items-center gap-2"))
			switch {
			case last:
				m.Element("span", item.Label, helpers.A("aria-current", "page"), helpers.Class("font-medium text-slate-900"))
			case item.Href != "":
				m.Element("a", item.Label, helpers.Href(item.Href), helpers.Class("hover:text-slate-900"))
			default:
				m.Element("span", item.Label)
			}
			if !last {
				m.Element("span", "›", helpers.A("aria-hidden", "true"))
			}
			m.Close("li")
		}
		m.Close("ol")
		m.Close("nav")
	})
}
