package partials

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/catalog-admin/internal/admin/listing"
	"finitefield.org/catalog-admin/internal/admin/listing/urlstate"
)

func parseLink(t *testing.T, raw string) (string, url.Values) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Path, u.Query()
}

func TestListLinksKeepStateAndAddOps(t *testing.T) {
	t.Parallel()

	st := listing.State{CurrentPage: 3, ItemsPerPage: 6, SortField: "price", SortOrder: listing.Desc, SearchQuery: "ring"}
	links := NewListLinks("/admin/products/table", "#products-table", st)

	path, q := parseLink(t, links.Page(4))
	require.Equal(t, "/admin/products/table", path)
	require.Equal(t, "4", q.Get(urlstate.KeyPage))
	require.Equal(t, "ring", q.Get(urlstate.KeySearch))
	require.Equal(t, "price", q.Get(urlstate.KeySortBy))
	require.Empty(t, q.Get(ParamOp))

	_, q = parseLink(t, links.Sort("name"))
	require.Equal(t, OpSort, q.Get(ParamOp))
	require.Equal(t, "name", q.Get(ParamField))
	require.Equal(t, "3", q.Get(urlstate.KeyPage))

	_, q = parseLink(t, links.Filter("Draft"))
	require.Equal(t, OpFilter, q.Get(ParamOp))
	require.Equal(t, "Draft", q.Get(ParamTag))
	require.Empty(t, q.Get(urlstate.KeySearch), "filtering clears the search")
	require.Empty(t, q.Get(urlstate.KeyPage))

	_, q = parseLink(t, links.Search())
	require.Equal(t, OpSearch, q.Get(ParamOp))
	require.False(t, q.Has(urlstate.KeySearch), "search box supplies its own value")
	require.Equal(t, "desc", q.Get(urlstate.KeySortOrder))

	_, q = parseLink(t, links.Retry())
	require.Equal(t, OpRetry, q.Get(ParamOp))
}

func TestBuildPaginationWindow(t *testing.T) {
	t.Parallel()

	st := listing.State{CurrentPage: 1, ItemsPerPage: 6, TotalItems: 40, TotalPages: 7}
	data := BuildPagination(NewListLinks("/admin/products/table", "#t", st), st)

	require.Equal(t, "Showing 1-6 from 40", data.Summary)
	require.Empty(t, data.PrevURL)
	require.NotEmpty(t, data.NextURL)
	require.Len(t, data.Pages, 5)
	require.True(t, data.Pages[0].Active)
	require.True(t, data.More, "dots when pages continue past the window")

	var buf bytes.Buffer
	require.NoError(t, Pagination(data).Render(context.Background(), &buf))
	doc := parseHTML(t, buf.Bytes())
	require.Equal(t, "Showing 1-6 from 40", doc.Find("[data-pagination-summary]").Text())
	prev := doc.Find(`button[aria-label="Previous page"]`)
	_, disabled := prev.Attr("disabled")
	require.True(t, disabled)
	require.Equal(t, "page", doc.Find(`button[aria-label="Page 1"]`).AttrOr("aria-current", ""))
	require.Contains(t, doc.Find(`button[aria-label="Page 2"]`).AttrOr("hx-get", ""), "page=2")
}

func TestPaginationHiddenForEmptyList(t *testing.T) {
	t.Parallel()

	st := listing.State{CurrentPage: 1, ItemsPerPage: 6}
	var buf bytes.Buffer
	require.NoError(t, Pagination(BuildPagination(NewListLinks("/x", "#t", st), st)).Render(context.Background(), &buf))
	require.Empty(t, buf.String())
}

func TestTagLinksMarkActive(t *testing.T) {
	t.Parallel()

	tags := []string{"All Products", "Published", "Draft"}
	isAll := func(tag string) bool { return tag == "All Products" }

	st := listing.State{CurrentPage: 1, ItemsPerPage: 6}
	links := BuildTagLinks(NewListLinks("/x", "#t", st), st, tags, isAll)
	require.True(t, links[0].Active)
	require.False(t, links[1].Active)

	st.FilterTag = "Draft"
	links = BuildTagLinks(NewListLinks("/x", "#t", st), st, tags, isAll)
	require.False(t, links[0].Active)
	require.True(t, links[2].Active)

	st = listing.State{CurrentPage: 1, ItemsPerPage: 6, SearchQuery: "ring"}
	links = BuildTagLinks(NewListLinks("/x", "#t", st), st, tags, isAll)
	for _, l := range links {
		require.False(t, l.Active, "no tag is active while searching")
	}
}

func TestSearchBarDebounces(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, SearchBar(SearchBarData{Value: "ring", URL: "/admin/products/table?op=search", Target: "#t", Placeholder: "Search product..."}).Render(context.Background(), &buf))
	input := parseHTML(t, buf.Bytes()).Find("input[name=search]")

	require.Equal(t, "ring", input.AttrOr("value", ""))
	require.Contains(t, input.AttrOr("hx-trigger", ""), "delay:300ms")
	require.Equal(t, "this:replace", input.AttrOr("hx-sync", ""))
}

func TestEmptyRowShowsRetryOnError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EmptyRow(EmptyRowData{Colspan: 4}).Render(context.Background(), &buf))
	doc := parseHTML(t, buf.Bytes())
	require.Contains(t, doc.Text(), "No data available.")
	require.Equal(t, 0, doc.Find("[data-retry]").Length())

	buf.Reset()
	require.NoError(t, EmptyRow(EmptyRowData{Colspan: 4, Error: "Could not load products.", RetryURL: "/admin/products/table?op=retry", Target: "#t"}).Render(context.Background(), &buf))
	doc = parseHTML(t, buf.Bytes())
	require.Equal(t, "/admin/products/table?op=retry", doc.Find("[data-retry]").AttrOr("hx-get", ""))
}

func TestTableHeadMarksSortedColumn(t *testing.T) {
	t.Parallel()

	st := listing.State{CurrentPage: 1, ItemsPerPage: 6, SortField: "price", SortOrder: listing.Desc}
	links := NewListLinks("/admin/products/table", "#t", st)
	cells := links.Headers(st, []Column{{Label: "Product", Field: "name"}, {Label: "Price", Field: "price"}, {Label: "Action"}})

	var buf bytes.Buffer
	buf.WriteString("<table>")
	require.NoError(t, TableHead(cells).Render(context.Background(), &buf))
	buf.WriteString("</table>")
	doc := parseHTML(t, buf.Bytes())

	require.Equal(t, "descending", doc.Find("th").Eq(1).AttrOr("aria-sort", ""))
	require.Equal(t, "none", doc.Find("th").Eq(0).AttrOr("aria-sort", ""))
	_, sortable := doc.Find("th").Eq(2).Attr("aria-sort")
	require.False(t, sortable)
	require.Contains(t, doc.Find(`button[data-sort-field="name"]`).AttrOr("hx-get", ""), "op=sort")
}

func TestHighlightedMarksMatches(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Highlighted("Gold Ring <b>", "ring").Render(context.Background(), &buf))
	require.Equal(t, `Gold <mark class="rounded bg-amber-100 px-0.5">Ring</mark> &lt;b&gt;`, buf.String())
}
