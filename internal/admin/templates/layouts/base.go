package layouts

import (
	"encoding/json"

	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/navigation"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
	"finitefield.org/catalog-admin/internal/admin/templates/partials"
)

// HTMXScript is the htmx build loaded by every page.
const HTMXScript = "https://unpkg.com/htmx.org@2.0.4"

// PageMeta carries the per-page chrome.
type PageMeta struct {
	Title       string
	Breadcrumbs []partials.Breadcrumb
	Flash       *partials.Toast
}

// Base wraps body in the admin shell: sidebar, breadcrumbs, topbar and toast region. Every htmx
// request made from the page sends the CSRF token header.
func Base(meta PageMeta, body templ.Component) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		ctx := m.Context()
		m.Raw("<!DOCTYPE html>")
		m.Open("html", helpers.A("lang", "en"))
		head(m, meta.Title)
		m.Open("body",
			helpers.Class("min-h-screen bg-slate-100 text-slate-900"),
			helpers.A("hx-headers", csrfHeaders(middleware.CSRFTokenFromContext(ctx))),
		)
		m.Open("div", helpers.Class("flex min-h-screen"))
		m.Render(partials.Sidebar(navigation.BuildMenu(helpers.BasePath(ctx))))
		m.Open("div", helpers.Class("flex min-w-0 flex-1 flex-col"))
		m.Open("header", helpers.Class("flex items-center justify-between border-b border-slate-200 bg-white px-8 py-4"))
		m.Render(partials.Breadcrumbs(meta.Breadcrumbs))
		m.Render(partials.TopbarActions())
		m.Close("header")
		m.Open("main", helpers.A("id", "main"), helpers.Class("flex-1 px-8 py-6"))
		m.Render(body)
		m.Close("main")
		m.Close("div")
		m.Close("div")
		m.Render(partials.ToastRegion(meta.Flash))
		m.Close("body")
		m.Close("html")
	})
}

// Bare renders a page without navigation chrome, for the login screen.
func Bare(title string, body templ.Component) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		m.Raw("<!DOCTYPE html>")
		m.Open("html", helpers.A("lang", "en"))
		head(m, title)
		m.Open("body", helpers.Class("flex min-h-screen items-center justify-center bg-slate-100 text-slate-900"))
		m.Render(body)
		m.Render(partials.ToastRegion(nil))
		m.Close("body")
		m.Close("html")
	})
}

func head(m *helpers.Markup, title string) {
	full := "Catalog Admin"
	if title != "" {
		full = title + " · Catalog Admin"
	}
	m.Open("head")
	m.Void("meta", helpers.A("charset", "utf-8"))
	m.Void("meta", helpers.A("name", "viewport"), helpers.A("content", "width=device-width, initial-scale=1"))
	m.Element("title", full)
	m.Void("link", helpers.A("rel", "stylesheet"), helpers.A("href", "/public/static/admin.css"))
	m.Open("script", helpers.A("src", HTMXScript), helpers.Flag("defer"))
	m.Close("script")
	m.Open("script", helpers.A("src", "/public/static/admin.js"), helpers.Flag("defer"))
	m.Close("script")
	m.Close("head")
}

func csrfHeaders(token string) string {
	data, err := json.Marshal(map[string]string{"X-CSRF-Token": token})
	if err != nil {
		return "{}"
	}
	return string(data)
}
