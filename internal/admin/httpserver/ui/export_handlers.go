package ui

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	"finitefield.org/catalog-admin/internal/admin/listing"
	"finitefield.org/catalog-admin/internal/admin/listing/urlstate"
	"finitefield.org/catalog-admin/internal/admin/observability"
)

var productCSVHeader = []string{"id", "name", "sku", "category", "price", "stock", "status", "added", "lastModified"}

var categoryCSVHeader = []string{"id", "name", "description", "stock", "sold", "status", "createdAt"}

// ProductsExport streams the products under the list's current search, filter and sort as CSV.
func (h *Handlers) ProductsExport(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	items, err := exportItems(r, user.Token, productSource(h.products))
	if err != nil {
		observability.FromContext(r.Context()).Error("products: export failed", zap.Error(err))
		http.Error(w, "Failed to export products. Please try again.", http.StatusBadGateway)
		return
	}
	writeCSV(w, r, "products", productCSVHeader, len(items), func(i int) []string {
		p := items[i]
		return []string{
			p.ID.String(),
			p.Name,
			p.SKU,
			p.Category,
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			strconv.Itoa(p.Stock),
			catalog.NormalizeStatus(p.Status),
			p.Added,
			p.LastModified,
		}
	})
}

// CategoriesExport streams the categories under the list's current search, filter and sort as CSV.
func (h *Handlers) CategoriesExport(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	items, err := exportItems(r, user.Token, categorySource(h.categories))
	if err != nil {
		observability.FromContext(r.Context()).Error("categories: export failed", zap.Error(err))
		http.Error(w, "Failed to export categories. Please try again.", http.StatusBadGateway)
		return
	}
	writeCSV(w, r, "categories", categoryCSVHeader, len(items), func(i int) []string {
		c := items[i]
		created := ""
		if c.CreatedAt != 0 {
			created = c.CreatedAt.Time().UTC().Format(time.RFC3339)
		}
		return []string{
			c.ID.String(),
			c.Name,
			c.Description,
			strconv.Itoa(c.Stock),
			strconv.Itoa(c.Sold),
			catalog.NormalizeStatus(c.Status),
			created,
		}
	})
}

// exportItems loads every item of the list view described by the request query, ignoring
// pagination.
func exportItems[T any](r *http.Request, token string, src listSource[T]) ([]T, error) {
	ctx := r.Context()
	st := listing.FromURLState(urlstate.Decode(r.URL.Query()))
	items, err := exportLoad(ctx, token, src, st)
	if err != nil {
		return nil, err
	}
	if key, ok := src.fields[st.SortField]; ok {
		listing.SortItems(items, key, st.SortOrder)
	}
	return items, nil
}

func exportLoad[T any](ctx context.Context, token string, src listSource[T], st listing.State) ([]T, error) {
	switch {
	case st.SearchQuery != "":
		return src.search(ctx, token, st.SearchQuery)
	case !catalog.IsAllTag(st.FilterTag):
		all, err := src.all(ctx, token)
		if err != nil {
			return nil, err
		}
		matched := make([]T, 0, len(all))
		for _, item := range all {
			if src.tag(item, st.FilterTag) {
				matched = append(matched, item)
			}
		}
		return matched, nil
	default:
		return src.all(ctx, token)
	}
}

func writeCSV(w http.ResponseWriter, r *http.Request, name string, header []string, n int, row func(int) []string) {
	filename := name + "-" + time.Now().UTC().Format("20060102-150405") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		observability.FromContext(r.Context()).Warn("export: write failed", zap.Error(err))
		return
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			observability.FromContext(r.Context()).Warn("export: write failed", zap.Error(err))
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		observability.FromContext(r.Context()).Warn("export: flush failed", zap.Error(err))
	}
}
