package partials

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/listing"
	"finitefield.org/catalog-admin/internal/admin/listing/urlstate"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
)

// Fragment request parameters understood by the list table handlers, on top of the list-state
// keys owned by urlstate.
const (
	ParamOp    = "op"
	ParamField = "field"
	ParamTag   = "tag"

	OpSearch = "search"
	OpFilter = "filter"
	OpSort   = "sort"
	OpRetry  = "retry"
)

// ControlParams lists the one-shot parameters that never belong in a canonical list URL.
var ControlParams = []string{ParamOp, ParamField, ParamTag}

// ListLinks builds the htmx URLs of a list's controls from its current state.
type ListLinks struct {
	FragmentPath string
	Target       string
	Query        url.Values
}

// NewListLinks captures st as the query every control starts from.
func NewListLinks(fragmentPath, target string, st listing.State) ListLinks {
	return ListLinks{FragmentPath: fragmentPath, Target: target, Query: urlstate.Encode(st.URLState())}
}

// Page returns the URL of page n under the active search, filter and sort.
func (l ListLinks) Page(n int) string {
	return l.build("", urlstate.Patch{Page: urlstate.Int(n)}, nil)
}

// Sort returns the URL that toggles sorting on field.
func (l ListLinks) Sort(field string) string {
	return l.build(OpSort, urlstate.Patch{}, url.Values{ParamField: {field}})
}

// Filter returns the URL that applies tag, clearing any search.
func (l ListLinks) Filter(tag string) string {
	none := map[string]string{}
	return l.build(OpFilter, urlstate.Patch{Search: urlstate.String(""), Filters: &none, Page: urlstate.Int(0)}, url.Values{ParamTag: {tag}})
}

// Search returns the URL the search box submits to; htmx appends the typed query.
func (l ListLinks) Search() string {
	none := map[string]string{}
	return l.build(OpSearch, urlstate.Patch{Search: urlstate.String(""), Filters: &none, Page: urlstate.Int(0)}, nil)
}

// Retry returns the URL that re-runs the failed load.
func (l ListLinks) Retry() string {
	return l.build(OpRetry, urlstate.Patch{}, nil)
}

// Refresh returns the URL that reloads the current view.
func (l ListLinks) Refresh() string {
	return l.build("", urlstate.Patch{}, nil)
}

func (l ListLinks) build(op string, patch urlstate.Patch, extra url.Values) string {
	values := urlstate.Update(l.Query, patch)
	if op != "" {
		values.Set(ParamOp, op)
	}
	for key, vals := range extra {
		values[key] = append([]string(nil), vals...)
	}
	return helpers.BuildURL(l.FragmentPath, values.Encode())
}

// Column describes a table column. An empty Field makes the column unsortable.
type Column struct {
	Label string
	Field string
	Class string
}

// HeaderCell is a rendered column header.
type HeaderCell struct {
	Column
	Active bool
	Order  listing.Order
	URL    string
	Target string
}

// Headers resolves sort state for each column.
func (l ListLinks) Headers(st listing.State, columns []Column) []HeaderCell {
	out := make([]HeaderCell, 0, len(columns))
	for _, col := range columns {
		cell := HeaderCell{Column: col, Target: l.Target}
		if col.Field != "" {
			cell.URL = l.Sort(col.Field)
			cell.Active = st.SortField == col.Field
			cell.Order = st.SortOrder
		}
		out = append(out, cell)
	}
	return out
}

// TableHead renders sortable column headers.
func TableHead(cells []HeaderCell) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		m.Open("thead", helpers.Class("bg-slate-50 text-left text-xs font-semibold uppercase tracking-wide text-slate-500"))
		m.Open("tr")
		for _, cell := range cells {
			sortAttr := "none"
			if cell.Active {
				sortAttr = "ascending"
				if cell.Order == listing.Desc {
					sortAttr = "descending"
				}
			}
			m.Open("th", helpers.A("scope", "col"), helpers.Class("px-4 py-3", cell.Class), helpers.When(cell.URL != "", helpers.A("aria-sort", sortAttr)))
			if cell.URL == "" {
				m.Text(cell.Label)
				m.Close("th")
				continue
			}
			m.Open("button",
				helpers.A("type", "button"),
				helpers.A("hx-get", cell.URL),
				helpers.A("hx-target", cell.Target),
				helpers.A("hx-swap", "outerHTML"),
				helpers.A("hx-indicator", "#global-indicator"),
				helpers.A("data-sort-field", cell.Field),
				helpers.Class("inline-flex items-center gap-1 uppercase hover:text-slate-900"),
			)
			m.Text(cell.Label)
			m.Element("span", sortArrow(cell), helpers.A("aria-hidden", "true"), helpers.Class("text-[10px]"))
			m.Close("button")
			m.Close("th")
		}
		m.Close("tr")
		m.Close("thead")
	})
}

func sortArrow(cell HeaderCell) string {
	switch {
	case !cell.Active:
		return "↕"
	case cell.Order == listing.Desc:
		return "▼"
	default:
		return "▲"
	}
}

// PageLink is one numbered pagination button.
type PageLink struct {
	Number int
	URL    string
	Active bool
}

// PaginationData describes the pagination bar under a list table.
type PaginationData struct {
	Summary string
	Target  string
	PrevURL string
	NextURL string
	Pages   []PageLink
	More    bool
}

// BuildPagination derives the pagination bar from list state.
func BuildPagination(l ListLinks, st listing.State) PaginationData {
	data := PaginationData{
		Summary: fmt.Sprintf("Showing %d-%d from %d", st.Start(), st.End(), st.TotalItems),
		Target:  l.Target,
	}
	if st.CanPrev() {
		data.PrevURL = l.Page(st.PrevPage())
	}
	if st.CanNext() {
		data.NextURL = l.Page(st.NextPage())
	}
	numbers := st.PageNumbers(listing.DefaultVisiblePages)
	for _, n := range numbers {
		data.Pages = append(data.Pages, PageLink{Number: n, URL: l.Page(n), Active: n == st.CurrentPage})
	}
	if len(numbers) > 0 && numbers[len(numbers)-1] < st.TotalPages {
		data.More = true
	}
	return data
}

// Pagination renders the pagination bar. Nothing renders for an empty list.
func Pagination(data PaginationData) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		if len(data.Pages) == 0 {
			return
		}
		m.Open("div", helpers.Class("flex items-center justify-between border-t border-slate-200 px-4 py-3 text-sm"), helpers.A("data-pagination", ""))
		m.Element("p", data.Summary, helpers.Class("text-slate-500"), helpers.A("data-pagination-summary", ""))
		m.Open("div", helpers.Class("flex items-center gap-1"))
		pageButton(m, "‹", data.PrevURL, data.Target, false, "Previous page")
		for _, p := range data.Pages {
			pageButton(m, strconv.Itoa(p.Number), p.URL, data.Target, p.Active, "Page "+strconv.Itoa(p.Number))
		}
		if data.More {
			m.Element("span", "...", helpers.Class("px-2 text-slate-400"))
		}
		pageButton(m, "›", data.NextURL, data.Target, false, "Next page")
		m.Close("div")
		m.Close("div")
	})
}

func pageButton(m *helpers.Markup, label, target, swapTarget string, active bool, aria string) {
	class := "min-w-8 rounded-md px-2 py-1 text-slate-600 hover:bg-slate-100 disabled:cursor-not-allowed disabled:opacity-40"
	if active {
		class = "min-w-8 rounded-md bg-indigo-600 px-2 py-1 font-semibold text-white"
	}
	m.Open("button",
		helpers.A("type", "button"),
		helpers.A("aria-label", aria),
		helpers.When(active, helpers.A("aria-current", "page")),
		helpers.When(target == "" || active, helpers.Flag("disabled")),
		helpers.When(target != "" && !active, helpers.A("hx-get", target)),
		helpers.When(target != "" && !active, helpers.A("hx-target", swapTarget)),
		helpers.When(target != "" && !active, helpers.A("hx-swap", "outerHTML")),
		helpers.A("hx-indicator", "#global-indicator"),
		helpers.Class(class),
	)
	m.Text(label)
	m.Close("button")
}

// TagLink is one filter tag button.
type TagLink struct {
	Label  string
	URL    string
	Active bool
}

// BuildTagLinks marks the active tag; with no filter the "all" tag is active.
func BuildTagLinks(l ListLinks, st listing.State, tags []string, isAll func(string) bool) []TagLink {
	out := make([]TagLink, 0, len(tags))
	for _, tag := range tags {
		active := st.FilterTag == tag || (st.FilterTag == "" && st.SearchQuery == "" && isAll(tag))
		out = append(out, TagLink{Label: tag, URL: l.Filter(tag), Active: active})
	}
	return out
}

// TagFilter renders the filter tag bar.
func TagFilter(tags []TagLink, target string) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		m.Open("div", helpers.Class("inline-flex rounded-lg border border-slate-200 bg-white p-1"), helpers.A("role", "tablist"), helpers.A("data-tag-filter", ""))
		for _, tag := range tags {
			class := "rounded-md px-3 py-1.5 text-sm text-slate-600 hover:text-slate-900"
			if tag.Active {
				class = "rounded-md bg-indigo-50 px-3 py-1.5 text-sm font-semibold text-indigo-700"
			}
			m.Open("button",
				helpers.A("type", "button"),
				helpers.A("role", "tab"),
				helpers.A("aria-selected", strconv.FormatBool(tag.Active)),
				helpers.A("hx-get", tag.URL),
				helpers.A("hx-target", target),
				helpers.A("hx-swap", "outerHTML"),
				helpers.A("hx-indicator", "#global-indicator"),
				helpers.A("data-tag", tag.Label),
				helpers.Class(class),
			)
			m.Text(tag.Label)
			m.Close("button")
		}
		m.Close("div")
	})
}

// SearchBarData configures the debounced search box.
type SearchBarData struct {
	Value       string
	Placeholder string
	URL         string
	Target      string
}

// SearchBar renders a search input that queries the table fragment 300ms after typing stops.
// hx-sync drops in-flight searches superseded by newer input.
func SearchBar(data SearchBarData) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		m.Open("label", helpers.Class("relative block w-72"), helpers.A("data-search-bar", ""))
		m.Element("span", "Search", helpers.Class("sr-only"))
		m.Void("input",
			helpers.A("type", "search"),
			helpers.A("name", urlstate.KeySearch),
			helpers.A("value", data.Value),
			helpers.A("placeholder", data.Placeholder),
			helpers.A("autocomplete", "off"),
			helpers.A("hx-get", data.URL),
			helpers.A("hx-trigger", "input changed delay:300ms, search"),
			helpers.A("hx-sync", "this:replace"),
			helpers.A("hx-target", data.Target),
			helpers.A("hx-swap", "outerHTML"),
			helpers.A("hx-indicator", "#global-indicator"),
			helpers.Class("w-full rounded-md border border-slate-300 px-3 py-2 text-sm focus:border-indigo-500 focus:outline-none"),
		)
		m.Close("label")
	})
}

// EmptyRowData describes the placeholder row of an empty or failed table.
type EmptyRowData struct {
	Message  string
	Error    string
	RetryURL string
	Target   string
	Colspan  int
}

// EmptyRow renders "No data available." with a Retry button when the load failed.
func EmptyRow(data EmptyRowData) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		message := data.Message
		if message == "" {
			message = "No data available."
		}
		m.Open("tr", helpers.A("data-empty-state", ""))
		m.Open("td", helpers.A("colspan", strconv.Itoa(max(data.Colspan, 1))), helpers.Class("px-4 py-12 text-center text-sm text-slate-500"))
		m.Element("p", message)
		if data.Error != "" {
			m.Element("p", data.Error, helpers.Class("mt-1 text-rose-600"), helpers.A("role", "alert"))
			m.Open("button",
				helpers.A("type", "button"),
				helpers.A("hx-get", data.RetryURL),
				helpers.A("hx-target", data.Target),
				helpers.A("hx-swap", "outerHTML"),
				helpers.A("hx-indicator", "#global-indicator"),
				helpers.A("data-retry", ""),
				helpers.Class(helpers.ButtonClass(false), "mt-4"),
			)
			m.Text("Retry")
			m.Close("button")
		}
		m.Close("td")
		m.Close("tr")
	})
}

// StatusBadge renders a status pill.
func StatusBadge(label, tone string) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		m.Element("span", label, helpers.Class(helpers.BadgeClass(tone)), helpers.A("data-status", label))
	})
}

// Highlighted renders text with the search term wrapped in mark elements.
func Highlighted(text, term string) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		for _, seg := range helpers.HighlightSegments(text, term) {
			if seg.Match {
				m.Element("mark", seg.Text, helpers.Class("rounded bg-amber-100 px-0.5"))
				continue
			}
			m.Text(seg.Text)
		}
	})
}
