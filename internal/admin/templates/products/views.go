package products

import (
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/rbac"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
	"finitefield.org/catalog-admin/internal/admin/templates/layouts"
	"finitefield.org/catalog-admin/internal/admin/templates/partials"
)

// Index renders the product list page.
func Index(data PageData) templ.Component {
	body := helpers.Component(func(m *helpers.Markup) {
		ctx := m.Context()
		m.Open("div", helpers.Class("mb-6 flex items-center justify-between"))
		m.Element("h1", data.Title, helpers.Class("text-2xl font-semibold"))
		m.Open("div", helpers.Class("flex items-center gap-2"))
		if helpers.HasCapability(ctx, string(rbac.CapCatalogExport)) {
			m.Element("a", "Export", helpers.Href(data.ExportURL), helpers.A("data-export", ""), helpers.Class(helpers.ButtonClass(false)))
		}
		if helpers.HasCapability(ctx, string(rbac.CapProductsEdit)) {
			m.Element("a", "Add Product", helpers.Href(data.AddURL), helpers.A("data-add", ""), helpers.Class(helpers.ButtonClass(true)))
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
		canEdit := helpers.HasCapability(ctx, string(rbac.CapProductsEdit))
		canDelete := helpers.HasCapability(ctx, string(rbac.CapProductsDelete))

		m.Open("section", helpers.A("id", TableID), helpers.A("data-list", "products"), helpers.Class("space-y-4"))
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
			renderRow(m, row, data.SearchTerm, canEdit, canDelete)
		}
		m.Close("tbody")
		m.Close("table")
		m.Render(partials.Pagination(data.Pagination))
		m.Close("div")
		m.Close("section")
	})
}

func renderRow(m *helpers.Markup, row Row, term string, canEdit, canDelete bool) {
	m.Open("tr", helpers.A("data-product-id", row.ID), helpers.Class("hover:bg-slate-50"))

	m.Open("td", helpers.Class("px-4 py-3"))
	m.Open("div", helpers.Class("flex items-center gap-3"))
	if row.Image != "" {
		m.Void("img", helpers.Src(row.Image), helpers.A("alt", ""), helpers.A("loading", "lazy"), helpers.Class("h-10 w-10 rounded-md object-cover"))
	} else {
		m.Element("div", "", helpers.Class("h-10 w-10 rounded-md bg-slate-100"), helpers.A("aria-hidden", "true"))
	}
	m.Open("span", helpers.Class("font-medium text-slate-900"))
	m.Render(partials.Highlighted(row.Name, term))
	m.Close("span")
	m.Close("div")
	m.Close("td")

	m.Open("td", helpers.Class("px-4 py-3 text-slate-600"))
	m.Render(partials.Highlighted(row.SKU, term))
	m.Close("td")
	m.Element("td", row.Category, helpers.Class("px-4 py-3 text-slate-600"))
	m.Element("td", row.Stock, helpers.Class("px-4 py-3 text-right tabular-nums"))
	m.Element("td", row.Price, helpers.Class("px-4 py-3 text-right tabular-nums"))
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

// Form renders the product editor page.
func Form(data FormData) templ.Component {
	return layouts.Base(layouts.PageMeta{Title: data.Title, Breadcrumbs: data.Breadcrumbs}, FormFragment(data))
}

// FormFragment renders only the editor form, swapped in place when validation fails.
func FormFragment(data FormData) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		ctx := m.Context()
		failing, msg := "", ""
		if data.Error != nil {
			failing, msg = data.Error.Field, data.Error.Message
		}
		f := data.Form

		m.Open("form",
			helpers.A("id", "product-form"),
			helpers.A("hx-"+data.Method, data.Action),
			helpers.A("hx-target", "#product-form"),
			helpers.A("hx-swap", "outerHTML"),
			helpers.A("hx-disabled-elt", "find button[type=submit]"),
			helpers.A("hx-indicator", "#global-indicator"),
			helpers.A("data-product-form", ""),
			helpers.Class("space-y-6"),
		)
		m.Void("input", helpers.A("type", "hidden"), helpers.A("name", middleware.CSRFFormField), helpers.A("value", middleware.CSRFTokenFromContext(ctx)))
		if data.Editing {
			m.Void("input", helpers.A("type", "hidden"), helpers.A("name", "lastModified"), helpers.A("value", f.LastModified))
		}

		m.Open("div", helpers.Class("flex items-center justify-between"))
		m.Element("h1", data.Title, helpers.Class("text-2xl font-semibold"))
		m.Open("div", helpers.Class("flex items-center gap-2"))
		m.Element("a", "Cancel", helpers.Href(data.CancelURL), helpers.A("data-cancel", ""), helpers.Class(helpers.ButtonClass(false)))
		m.Element("button", "Save", helpers.A("type", "submit"), helpers.Class(helpers.ButtonClass(true)))
		m.Close("div")
		m.Close("div")

		m.Open("div", helpers.Class("grid gap-6 lg:grid-cols-3"))
		m.Open("div", helpers.Class("space-y-6 lg:col-span-2"))

		card(m, "General Information", func() {
			m.Render(partials.TextField(partials.Field{Name: "productName", Label: "Product Name", Value: f.Name, Placeholder: "Type product name here...", Required: true, Error: partials.FieldError("productName", failing, msg)}))
			m.Render(partials.TextArea(partials.Field{Name: "description", Label: "Description", Value: f.Description, Placeholder: "Type product description here...", Rows: 6}))
		})

		card(m, "Media", func() {
			m.Render(MediaGrid(data.Media))
		})

		card(m, "Pricing", func() {
			m.Render(partials.TextField(partials.Field{Name: "price", Label: "Base Price", Value: f.Price, Type: "number", Step: "0.01", Placeholder: "Type base price here...", Required: true, Error: partials.FieldError("price", failing, msg)}))
			m.Open("div", helpers.Class("grid gap-4 sm:grid-cols-2"))
			m.Render(partials.Select(partials.Field{Name: "discountType", Label: "Discount Type", Placeholder: "Select a discount type", Options: data.Discounts}))
			m.Render(partials.TextField(partials.Field{Name: "discountValue", Label: "Discount Percentage (%)", Value: f.DiscountValue, Type: "number", Step: "0.01"}))
			m.Render(partials.Select(partials.Field{Name: "tax_class", Label: "Tax Class", Placeholder: "Select a tax class", Options: data.TaxClasses}))
			m.Render(partials.TextField(partials.Field{Name: "vatAmount", Label: "VAT Amount (%)", Value: f.VATAmount, Type: "number", Step: "0.01"}))
			m.Close("div")
		})

		card(m, "Inventory", func() {
			m.Open("div", helpers.Class("grid gap-4 sm:grid-cols-3"))
			m.Render(partials.TextField(partials.Field{Name: "sku", Label: "SKU", Value: f.SKU, Placeholder: "Type product SKU here...", Required: true, Error: partials.FieldError("sku", failing, msg)}))
			m.Render(partials.TextField(partials.Field{Name: "barcode", Label: "Barcode", Value: f.Barcode, Placeholder: "Product barcode..."}))
			m.Render(partials.TextField(partials.Field{Name: "quantity", Label: "Quantity", Value: f.Quantity, Type: "number", Placeholder: "Type product quantity here...", Required: true, Error: partials.FieldError("quantity", failing, msg)}))
			m.Close("div")
		})

		m.Close("div")
		m.Open("div", helpers.Class("space-y-6"))
		card(m, "Category", func() {
			m.Render(partials.Select(partials.Field{Name: "categoryID", Label: "Product Category", Placeholder: "Select Category", Options: data.Categories}))
		})
		card(m, "Status", func() {
			m.Render(partials.Select(partials.Field{Name: "status", Label: "Product Status", Options: data.Statuses}))
		})
		m.Close("div")
		m.Close("div")
		m.Close("form")
	})
}

func card(m *helpers.Markup, title string, fn func()) {
	m.Open("section", helpers.Class("space-y-4 rounded-lg border border-slate-200 bg-white p-6"))
	m.Element("h2", title, helpers.Class("text-base font-semibold"))
	fn()
	m.Close("section")
}

// MediaGrid renders the three image slots with per-image remove, remove-all and the picker.
// The hidden snapshot field travels with every media request and with the final submission.
func MediaGrid(data MediaData) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		ctx := m.Context()
		canUpload := helpers.HasCapability(ctx, string(rbac.CapMediaUpload))
		swap := []helpers.Attr{
			helpers.A("hx-target", "#product-media"),
			helpers.A("hx-swap", "outerHTML"),
			helpers.A("hx-include", "#product-media [name=media]"),
			helpers.A("hx-indicator", "#global-indicator"),
		}

		m.Open("div", helpers.A("id", "product-media"), helpers.A("data-media", ""), helpers.A("data-remaining", strconv.Itoa(data.Remaining)))
		m.Void("input", helpers.A("type", "hidden"), helpers.A("name", "media"), helpers.A("value", data.Snapshot))
		if data.Error != "" {
			m.Element("p", data.Error, helpers.A("data-field-error", "images"), helpers.A("role", "alert"), helpers.Class("mb-2 text-xs text-rose-600"))
		}

		m.Open("div", helpers.A("data-media-grid", ""))
		for _, tile := range data.Tiles {
			m.Open("figure", helpers.A("data-media-slot", tile.Slot), helpers.When(tile.Pending, helpers.A("data-pending", "")), helpers.Class("relative"))
			m.Void("img", helpers.Src(tile.URL), helpers.A("alt", tile.Name))
			if canUpload {
				m.Open("button", append([]helpers.Attr{
					helpers.A("type", "button"),
					helpers.A("hx-post", data.RemoveURL+"?index="+strconv.Itoa(tile.Index)),
					helpers.A("aria-label", "Remove image "+strconv.Itoa(tile.Index+1)),
					helpers.A("data-media-remove", strconv.Itoa(tile.Index)),
					helpers.Class("absolute right-2 top-2 rounded-full bg-white/90 px-2 text-sm shadow"),
				}, swap...)...)
				m.Text("×")
				m.Close("button")
			}
			m.Close("figure")
		}
		m.Close("div")

		if len(data.Tiles) == 0 {
			m.Element("p", "No images yet. Add up to 3 images.", helpers.Class("text-sm text-slate-500"), helpers.A("data-media-empty", ""))
		}
		if canUpload {
			m.Open("div", helpers.Class("mt-4 flex items-center gap-2"))
			m.Void("input", append([]helpers.Attr{
				helpers.A("type", "file"),
				helpers.A("id", "product-images"),
				helpers.A("name", "images"),
				helpers.A("accept", "image/*"),
				helpers.Flag("multiple"),
				helpers.When(data.Remaining <= 0, helpers.Flag("disabled")),
				helpers.A("hx-post", data.AddURL),
				helpers.A("hx-encoding", "multipart/form-data"),
				helpers.A("hx-trigger", "change"),
				helpers.Class("sr-only"),
			}, swap...)...)
			m.Open("button",
				helpers.A("type", "button"),
				helpers.A("data-media-pick", "#product-images"),
				helpers.When(data.Remaining <= 0, helpers.Flag("disabled")),
				helpers.Class(helpers.ButtonClass(false)),
			)
			m.Text("Add Image")
			m.Close("button")
			if len(data.Tiles) > 0 {
				m.Open("button", append([]helpers.Attr{
					helpers.A("type", "button"),
					helpers.A("hx-post", data.ClearURL),
					helpers.A("data-media-clear", ""),
					helpers.Class("text-sm text-rose-600 hover:text-rose-500"),
				}, swap...)...)
				m.Text("Remove all")
				m.Close("button")
			}
			m.Close("div")
		}
		m.Close("div")
	})
}
