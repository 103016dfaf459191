package categories

import (
	"strconv"
	"strings"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	"finitefield.org/catalog-admin/internal/admin/listing"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
	"finitefield.org/catalog-admin/internal/admin/templates/partials"
)

// TableID is the element swapped by every list control.
const TableID = "categories-table"

// Columns are the category table headers.
var Columns = []partials.Column{
	{Label: "Category", Field: "name"},
	{Label: "Stock", Field: "stock", Class: "text-right"},
	{Label: "Sold", Field: "sold", Class: "text-right"},
	{Label: "Status", Field: "status"},
	{Label: "Added", Field: "createdAt"},
	{Label: "Action", Class: "text-right"},
}

// PageData is the payload of the category list page.
type PageData struct {
	Title       string
	Breadcrumbs []partials.Breadcrumb
	Flash       *partials.Toast
	AddURL      string
	ExportURL   string
	Search      partials.SearchBarData
	Table       TableData
}

// TableData is the swappable table fragment.
type TableData struct {
	Tags       []partials.TagLink
	Head       []partials.HeaderCell
	Rows       []Row
	SearchTerm string
	Error      string
	RetryURL   string
	Pagination partials.PaginationData
}

// Row is one rendered category.
type Row struct {
	ID          string
	Name        string
	Description string
	Stock       string
	Sold        string
	StatusLabel string
	StatusTone  string
	Added       string
	Image       string
	EditURL     string
	DeleteURL   string
}

// Routes holds the URLs the category pages link to.
type Routes struct {
	Base     string
	Fragment string
}

// NewRoutes derives category URLs from the admin base path.
func NewRoutes(basePath string) Routes {
	base := joinBase(basePath, "/categories")
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

// TablePayload builds the table fragment from a loaded view.
func TablePayload(routes Routes, st listing.State, items []catalog.Category, errMsg string) TableData {
	links := partials.NewListLinks(routes.Fragment, "#"+TableID, st)
	data := TableData{
		Tags:       partials.BuildTagLinks(links, st, catalog.CategoryTags, catalog.IsAllTag),
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
	for _, c := range items {
		id := c.ID.String()
		status := catalog.NormalizeStatus(c.Status)
		data.Rows = append(data.Rows, Row{
			ID:          id,
			Name:        c.Name,
			Description: c.Description,
			Stock:       strconv.Itoa(c.Stock),
			Sold:        strconv.Itoa(c.Sold),
			StatusLabel: status,
			StatusTone:  catalog.StatusTone(status),
			Added:       addedLabel(c),
			Image:       c.Thumbnail(),
			EditURL:     routes.Edit(id),
			DeleteURL:   helpers.BuildURL(routes.Item(id), query),
		})
	}
	return data
}

func addedLabel(c catalog.Category) string {
	if c.CreatedAt == 0 {
		return "-"
	}
	return helpers.Date(c.CreatedAt.Time(), "02 Jan 2006")
}

// BuildPageData assembles the list page around its table.
func BuildPageData(basePath string, routes Routes, st listing.State, table TableData) PageData {
	links := partials.NewListLinks(routes.Fragment, "#"+TableID, st)
	return PageData{
		Title: "Category List",
		Breadcrumbs: []partials.Breadcrumb{
			{Label: "Dashboard", Href: joinBase(basePath, "/")},
			{Label: "Category List"},
		},
		AddURL:    routes.New(),
		ExportURL: helpers.BuildURL(routes.Export(), links.Query.Encode()),
		Search: partials.SearchBarData{
			Value:       st.SearchQuery,
			Placeholder: "Search category...",
			URL:         links.Search(),
			Target:      "#" + TableID,
		},
		Table: table,
	}
}

// FormData is the payload of the category editor.
type FormData struct {
	Title       string
	Breadcrumbs []partials.Breadcrumb
	Editing     bool
	Action      string
	Method      string
	CancelURL   string
	Form        catalog.CategoryForm
	Image       string
	Error       *catalog.FieldError
	Statuses    []partials.Option
}

// StatusOptions are the category editor's status choices.
var StatusOptions = []partials.Option{
	{Value: catalog.StatusPublished, Label: "Published"},
	{Value: catalog.StatusDraft, Label: "Draft"},
}

// BuildFormData prepares the editor. id is empty when creating; image is the stored thumbnail.
func BuildFormData(basePath string, routes Routes, id string, form catalog.CategoryForm, image, cancelURL string) FormData {
	editing := id != ""
	title := "Add Category"
	action := routes.Base
	method := "post"
	if editing {
		title = "Edit Category"
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
	statuses := make([]partials.Option, len(StatusOptions))
	for i, opt := range StatusOptions {
		opt.Selected = strings.EqualFold(opt.Value, status)
		statuses[i] = opt
	}
	return FormData{
		Title: title,
		Breadcrumbs: []partials.Breadcrumb{
			{Label: "Dashboard", Href: joinBase(basePath, "/")},
			{Label: "Category List", Href: cancelURL},
			{Label: title},
		},
		Editing:   editing,
		Action:    action,
		Method:    method,
		CancelURL: cancelURL,
		Form:      form,
		Image:     image,
		Statuses:  statuses,
	}
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
