package categories

import (
	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/rbac"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
	"finitefield.org/catalog-admin/internal/admin/templates/layouts"
	"finitefield.org/catalog-admin/internal/admin/templates/partials"
)

// Index renders the category list page.
func Index(data PageData) templ.Component {
	body := helpers.Component(func(m *helpers.Markup) {
		ctx := m.Context()
		m.Open("div", helpers.Class("mb-6 flex items-center justify-between"))
		m.Element("h1", data.Title, helpers.Class("text-2xl font-semibold"))
		m.Open("div", helpers.Class("flex items-center gap-2"))
		if helpers.HasCapability(ctx, string(rbac.CapCatalogExport)) {
			m.Element("a", "Export", helpers.Href(data.ExportURL), helpers.A("data-export", ""), helpers.Class(helpers.ButtonClass(false)))
		}
		if helpers.HasCapability(ctx, string(rbac.CapCategoriesEdit)) {
			m.Element("a", "Add Category", helpers.Href(data.AddURL), helpers.A("data-add", ""), helpers.Class(helpers.ButtonClass(true)))
		}
		m.Close("div")
		m.Close("div")
		m.Open("div", helpers.Class("mb-4 flex justify-end"))
		m.Render(partials.SearchBar(data.Search))
		m.Close("div")
		m.Render(Table(data.Table))
	})
	return layouts.Base(layouts.PageMeta{Title: data.Title, Breadcrumbs: data.Breadcrumbs, Flash: data.Flash}, body)
}

// Table renders the swappable list fragment.
func Table(data TableData) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		ctx := m.Context()
		canEdit := helpers.HasCapability(ctx, string(rbac.CapCategoriesEdit))
		canDelete := helpers.HasCapability(ctx, string(rbac.CapCategoriesDelete))

		m.Open("section", helpers.A("id", TableID), helpers.A("data-list", "categories"), helpers.Class("space-y-4"))
		m.Render(partials.TagFilter(data.Tags, "#"+TableID))
		m.Open("div", helpers.Class("overflow-hidden rounded-lg border border-slate-200 bg-white"))
		m.Open("table", helpers.Class("min-w-full divide-y divide-slate-200 text-sm"))
		m.Render(partials.TableHead(data.Head))
		m.Open("tbody", helpers.A("data-table-body", ""), helpers.Class("divide-y divide-slate-100"))
		if len(data.Rows) == 0 {
			m.Render(partials.EmptyRow(partials.EmptyRowData{
				Error:    data.Error,
				RetryURL: data.RetryURL,
				Target:   "#" + TableID,
				Colspan:  len(Columns),
			}))
		}
		for _, row := range data.Rows {
			m.Open("tr", helpers.A("data-category-id", row.ID), helpers.Class("hover:bg-slate-50"))
			m.Open("td", helpers.Class("px-4 py-3"))
			m.Open("div", helpers.Class("flex items-center gap-3"))
			if row.Image != "" {
				m.Void("img", helpers.Src(row.Image), helpers.A("alt", ""), helpers.A("loading", "lazy"), helpers.Class("h-10 w-10 rounded-md object-cover"))
			}
			m.Open("div")
			m.Open("p", helpers.Class("font-medium text-slate-900"))
			m.Render(partials.Highlighted(row.Name, data.SearchTerm))
			m.Close("p")
			m.Element("p", row.Description, helpers.Class("line-clamp-1 text-xs text-slate-500"))
			m.Close("div")
			m.Close("div")
			m.Close("td")
			m.Element("td", row.Stock, helpers.Class("px-4 py-3 text-right tabular-nums"))
			m.Element("td", row.Sold, helpers.Class("px-4 py-3 text-right tabular-nums"))
			m.Open("td", helpers.Class("px-4 py-3"))
			m.Render(partials.StatusBadge(row.StatusLabel, row.StatusTone))
			m.Close("td")
			m.Element("td", row.Added, helpers.Class("px-4 py-3 text-slate-500"))
			m.Open("td", helpers.Class("px-4 py-3 text-right"))
			m.Open("div", helpers.Class("inline-flex items-center gap-2"))
			if canEdit {
				m.Element("a", "Edit", helpers.Href(row.EditURL), helpers.A("data-edit", ""), helpers.Class("text-indigo-600 hover:text-indigo-500"))
			}
			if canDelete {
				m.Open("button",
					helpers.A("type", "button"),
					helpers.A("hx-delete", row.DeleteURL),
					helpers.A("hx-target", "#"+TableID),
					helpers.A("hx-swap", "outerHTML"),
					helpers.A("hx-confirm", "Delete "+row.Name+"?"),
					helpers.A("hx-indicator", "#global-indicator"),
					helpers.A("data-delete", ""),
					helpers.Class("text-rose-600 hover:text-rose-500"),
				)
				m.Text("Delete")
				m.Close("button")
			}
			m.Close("div")
			m.Close("td")
			m.Close("tr")
		}
		m.Close("tbody")
		m.Close("table")
		m.Render(partials.Pagination(data.Pagination))
		m.Close("div")
		m.Close("section")
	})
}

// Form renders the category editor page.
func Form(data FormData) templ.Component {
	return layouts.Base(layouts.PageMeta{Title: data.Title, Breadcrumbs: data.Breadcrumbs}, FormFragment(data))
}

// FormFragment renders only the editor form. The image travels in the same multipart submission.
func FormFragment(data FormData) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		ctx := m.Context()
		failing, msg := "", ""
		if data.Error != nil {
			failing, msg = data.Error.Field, data.Error.Message
		}

		m.Open("form",
			helpers.A("id", "category-form"),
			helpers.A("hx-"+data.Method, data.Action),
			helpers.A("hx-encoding", "multipart/form-data"),
			helpers.A("hx-target", "#category-form"),
			helpers.A("hx-swap", "outerHTML"),
			helpers.A("hx-disabled-elt", "find button[type=submit]"),
			helpers.A("hx-indicator", "#global-indicator"),
			helpers.A("data-category-form", ""),
			helpers.Class("space-y-6"),
		)
		m.Void("input", helpers.A("type", "hidden"), helpers.A("name", middleware.CSRFFormField), helpers.A("value", middleware.CSRFTokenFromContext(ctx)))

		m.Open("div", helpers.Class("flex items-center justify-between"))
		m.Element("h1", data.Title, helpers.Class("text-2xl font-semibold"))
		m.Open("div", helpers.Class("flex items-center gap-2"))
		m.Element("a", "Cancel", helpers.Href(data.CancelURL), helpers.A("data-cancel", ""), helpers.Class(helpers.ButtonClass(false)))
		m.Element("button", "Save", helpers.A("type", "submit"), helpers.Class(helpers.ButtonClass(true)))
		m.Close("div")
		m.Close("div")

		m.Open("div", helpers.Class("grid gap-6 lg:grid-cols-3"))
		m.Open("section", helpers.Class("space-y-4 rounded-lg border border-slate-200 bg-white p-6"))
		m.Element("h2", "Thumbnail", helpers.Class("text-base font-semibold"))
		if data.Image != "" {
			m.Void("img", helpers.Src(data.Image), helpers.A("alt", data.Form.Name), helpers.A("data-category-image", ""), helpers.Class("h-40 w-full rounded-md object-cover"))
		}
		m.Element("label", "Image", helpers.A("for", "image"), helpers.Class("block text-sm font-medium text-slate-700"))
		m.Void("input",
			helpers.A("type", "file"),
			helpers.A("id", "image"),
			helpers.A("name", "image"),
			helpers.A("accept", "image/*"),
			helpers.When(failing == "image", helpers.A("aria-invalid", "true")),
			helpers.Class("block w-full text-sm"),
		)
		if failing == "image" {
			m.Element("p", msg, helpers.A("data-field-error", "image"), helpers.Class("mt-1 text-xs text-rose-600"))
		}
		m.Close("section")

		m.Open("section", helpers.Class("space-y-4 rounded-lg border border-slate-200 bg-white p-6 lg:col-span-2"))
		m.Element("h2", "General Information", helpers.Class("text-base font-semibold"))
		m.Render(partials.TextField(partials.Field{Name: "name", Label: "Category Name", Value: data.Form.Name, Placeholder: "Type name here...", Required: true, Error: partials.FieldError("name", failing, msg)}))
		m.Render(partials.TextArea(partials.Field{Name: "description", Label: "Description", Value: data.Form.Description, Placeholder: "Type description here...", Required: true, Error: partials.FieldError("description", failing, msg)}))
		m.Render(partials.Select(partials.Field{Name: "status", Label: "Status", Options: data.Statuses}))
		m.Close("section")
		m.Close("div")
		m.Close("form")
	})
}
