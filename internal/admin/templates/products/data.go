package products

import (
	"strconv"
	"strings"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	"finitefield.org/catalog-admin/internal/admin/listing"
	"finitefield.org/catalog-admin/internal/admin/media"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
	"finitefield.org/catalog-admin/internal/admin/templates/partials"
)

// TableID is the element swapped by every list control.
const TableID = "products-table"

// Columns are the product table headers. The Action column is not sortable.
var Columns = []partials.Column{
	{Label: "Product", Field: "name"},
	{Label: "SKU", Field: "sku"},
	{Label: "Category", Field: "category"},
	{Label: "Stock", Field: "stock", Class: "text-right"},
	{Label: "Price", Field: "price", Class: "text-right"},
	{Label: "Status", Field: "status"},
	{Label: "Added", Field: "added"},
	{Label: "Action", Class: "text-right"},
}

// PageData is the payload of the product list page.
type PageData struct {
	Title       string
	Breadcrumbs []partials.Breadcrumb
	Flash       *partials.Toast
	AddURL      string
	ExportURL   string
	Search      partials.SearchBarData
	Table       TableData
}

// TableData is the swappable table fragment: tag filter, rows and pagination.
type TableData struct {
	Tags       []partials.TagLink
	Head       []partials.HeaderCell
	Rows       []Row
	SearchTerm string
	Error      string
	RetryURL   string
	Pagination partials.PaginationData
}

// Row is one rendered product.
type Row struct {
	ID          string
	Name        string
	SKU         string
	Category    string
	Stock       string
	Price       string
	StatusLabel string
	StatusTone  string
	Added       string
	Image       string
	EditURL     string
	DeleteURL   string
}

// Routes holds the URLs the product pages link to.
type Routes struct {
	Base     string
	Fragment string
}

// NewRoutes derives product URLs from the admin base path.
func NewRoutes(basePath string) Routes {
	base := joinBase(basePath, "/products")
	return Routes{Base: base, Fragment: base + "/table"}
}

// Edit returns the editor URL of id.
func (r Routes) Edit(id string) string { return r.Base + "/" + id + "/edit" }

// Item returns the resource URL of id.
func (r Routes) Item(id string) string { return r.Base + "/" + id }

// New returns the create form URL.
func (r Routes) New() string { return r.Base + "/new" }

// Export returns the CSV export URL.
func (r Routes) Export() string { return r.Base + "/export.csv" }

// TablePayload builds the table fragment from a loaded view. errMsg replaces the rows with the
// retry placeholder.
func TablePayload(routes Routes, st listing.State, items []catalog.Product, errMsg string) TableData {
	links := partials.NewListLinks(routes.Fragment, "#"+TableID, st)
	data := TableData{
		Tags:       partials.BuildTagLinks(links, st, catalog.ProductTags, catalog.IsAllTag),
		Head:       links.Headers(st, Columns),
		SearchTerm: st.SearchQuery,
		Pagination: partials.BuildPagination(links, st),
		Error:      errMsg,
	}
	if errMsg != "" {
		data.RetryURL = links.Retry()
		data.Pagination = partials.PaginationData{}
		return data
	}
	query := links.Query.Encode()
	for _, p := range items {
		id := p.ID.String()
		status := catalog.NormalizeStatus(p.Status)
		data.Rows = append(data.Rows, Row{
			ID:          id,
			Name:        p.Name,
			SKU:         p.SKU,
			Category:    p.Category,
			Stock:       strconv.Itoa(p.Stock),
			Price:       helpers.Price(p.Price),
			StatusLabel: status,
			StatusTone:  catalog.StatusTone(status),
			Added:       helpers.Date(p.AddedAt(), "02 Jan 2006"),
			Image:       p.Images.Primary(),
			EditURL:     routes.Edit(id),
			DeleteURL:   helpers.BuildURL(routes.Item(id), query),
		})
	}
	return data
}

// BuildPageData assembles the list page around its table.
func BuildPageData(basePath string, routes Routes, st listing.State, table TableData) PageData {
	links := partials.NewListLinks(routes.Fragment, "#"+TableID, st)
	return PageData{
		Title: "Product List",
		Breadcrumbs: []partials.Breadcrumb{
			{Label: "Dashboard", Href: joinBase(basePath, "/")},
			{Label: "Product List"},
		},
		AddURL:    routes.New(),
		ExportURL: helpers.BuildURL(routes.Export(), links.Query.Encode()),
		Search: partials.SearchBarData{
			Value:       st.SearchQuery,
			Placeholder: "Search product...",
			URL:         links.Search(),
			Target:      "#" + TableID,
		},
		Table: table,
	}
}

// FormData is the payload of the product editor.
type FormData struct {
	Title       string
	Breadcrumbs []partials.Breadcrumb
	Editing     bool
	Action      string
	Method      string
	CancelURL   string
	Form        catalog.ProductForm
	Error       *catalog.FieldError
	Categories  []partials.Option
	Statuses    []partials.Option
	Discounts   []partials.Option
	TaxClasses  []partials.Option
	Media       MediaData
}

// CategoryChoice is a category offered by the editor's dropdown.
type CategoryChoice struct {
	ID   string
	Name string
}

// BuildFormData prepares the editor. id is empty when creating.
func BuildFormData(basePath string, routes Routes, id string, form catalog.ProductForm, categories []CategoryChoice, mediaData MediaData, cancelURL string) FormData {
	editing := id != ""
	title := "Add Product"
	action := routes.Base
	method := "post"
	if editing {
		title = "Edit Product"
		action = routes.Item(id)
		method = "put"
	}
	if cancelURL == "" {
		cancelURL = routes.Base
	}
	status := form.Status
	if status == "" {
		status = catalog.StatusDraft
	}
	return FormData{
		Title: title,
		Breadcrumbs: []partials.Breadcrumb{
			{Label: "Dashboard", Href: joinBase(basePath, "/")},
			{Label: "Product List", Href: cancelURL},
			{Label: title},
		},
		Editing:    editing,
		Action:     action,
		Method:     method,
		CancelURL:  cancelURL,
		Form:       form,
		Categories: categoryOptions(categories, form.CategoryID),
		Statuses:   options(StatusOptions, status),
		Discounts:  options(DiscountTypeOptions, form.DiscountType),
		TaxClasses: options(TaxClassOptions, form.TaxClass),
		Media:      mediaData,
	}
}

// StatusOptions are the editor's status choices.
var StatusOptions = []partials.Option{
	{Value: catalog.StatusDraft, Label: "Draft"},
	{Value: catalog.StatusPublished, Label: "Published"},
	{Value: "Out of Stock", Label: "Out of Stock"},
	{Value: catalog.StatusLowStock, Label: "Low Stock"},
}

// DiscountTypeOptions are the editor's discount type choices.
var DiscountTypeOptions = []partials.Option{
	{Value: "percentage", Label: "Percentage"},
	{Value: "fixed", Label: "Fixed Amount"},
	{Value: "discount_type_86", Label: "Discount Type 86"},
}

// TaxClassOptions are the editor's tax class choices.
var TaxClassOptions = []partials.Option{
	{Value: "tax-free", Label: "Tax Free"},
	{Value: "vat", Label: "VAT"},
	{Value: "tax_class_86", Label: "Tax Class 86"},
}

func options(all []partials.Option, selected string) []partials.Option {
	out := make([]partials.Option, len(all))
	for i, opt := range all {
		opt.Selected = strings.EqualFold(opt.Value, selected)
		out[i] = opt
	}
	return out
}

func categoryOptions(categories []CategoryChoice, selected string) []partials.Option {
	out := make([]partials.Option, 0, len(categories))
	for _, c := range categories {
		out = append(out, partials.Option{Value: c.ID, Label: c.Name, Selected: c.ID == selected})
	}
	return out
}

// MediaData is the image slot grid plus the hidden state it round-trips.
type MediaData struct {
	Snapshot  string
	Tiles     []MediaTile
	Remaining int
	AddURL    string
	RemoveURL string
	ClearURL  string
	Error     string
}

// MediaTile is one visible image.
type MediaTile struct {
	Index   int
	Slot    string
	URL     string
	Name    string
	Pending bool
}

// slotNames label the grid positions: one large main image and two thumbnails.
var slotNames = []string{"main", "second", "third"}

// MediaPayload renders the manager's current tiles. snapshot is the signed manager state for the
// hidden field; previewURL maps a staged file to its preview.
func MediaPayload(basePath, snapshot string, m *media.Manager, previewURL func(media.File) string) MediaData {
	routes := NewRoutes(basePath)
	data := MediaData{
		Snapshot:  snapshot,
		Remaining: m.Remaining(),
		AddURL:    routes.Base + "/media",
		RemoveURL: routes.Base + "/media/remove",
		ClearURL:  routes.Base + "/media/clear",
	}
	for _, item := range m.Items() {
		tile := MediaTile{Index: item.DisplayIndex, Slot: slotNames[item.DisplayIndex%len(slotNames)]}
		if item.Kind == media.KindPending {
			tile.Pending = true
			tile.Name = item.File.Name
			if previewURL != nil {
				tile.URL = previewURL(item.File)
			}
		} else {
			tile.URL = item.URL
			tile.Name = string(item.Slot)
		}
		data.Tiles = append(data.Tiles, tile)
	}
	return data
}

func joinBase(base, suffix string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "/admin"
	}
	if base == "/" {
		return suffix
	}
	if suffix == "/" {
		return strings.TrimRight(base, "/")
	}
	return strings.TrimRight(base, "/") + suffix
}
