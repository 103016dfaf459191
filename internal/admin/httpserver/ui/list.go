package ui

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	custommw "finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/listing"
	"finitefield.org/catalog-admin/internal/admin/listing/urlstate"
	"finitefield.org/catalog-admin/internal/admin/observability"
	"finitefield.org/catalog-admin/internal/admin/restapi"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
	"finitefield.org/catalog-admin/internal/admin/templates/partials"
)

const maxListPageSize = 100

const listLoadFailedMessage = "Failed to load data. Please try again."

// listSource binds a list page to its catalog service.
type listSource[T any] struct {
	name   string
	page   func(ctx context.Context, token string, q restapi.PageQuery) (restapi.PageResult[T], error)
	search func(ctx context.Context, token, query string) ([]T, error)
	all    func(ctx context.Context, token string) ([]T, error)
	fields map[string]func(T) any
	tag    func(T, string) bool
}

// listOutcome is the result of one list request.
type listOutcome[T any] struct {
	View listing.View[T]
	// Skipped reports a superseded or too-short request whose result must not be shown.
	Skipped bool
	// Err is the load failure. State then describes the view the user asked for.
	Err   error
	State listing.State
}

// Canonical returns the list-state query of the outcome, free of one-shot control params.
func (o listOutcome[T]) Canonical() url.Values {
	return urlstate.Encode(o.State.URLState())
}

func productSource(svc catalog.ProductService) listSource[catalog.Product] {
	return listSource[catalog.Product]{
		name:   "products",
		page:   svc.List,
		search: svc.Search,
		all:    svc.All,
		fields: catalog.ProductFields,
		tag:    catalog.ProductMatchesTag,
	}
}

func categorySource(svc catalog.CategoryService) listSource[catalog.Category] {
	return listSource[catalog.Category]{
		name:   "categories",
		page:   svc.List,
		search: svc.Search,
		all:    svc.All,
		fields: catalog.CategoryFields,
		tag:    catalog.CategoryMatchesTag,
	}
}

func newListController[T any](h *Handlers, r *http.Request, token string, src listSource[T], out *listOutcome[T]) *listing.Controller[T] {
	ctx := r.Context()
	return listing.NewController(listing.Config[T]{
		PageSize: h.pageSize,
		Page: func(ctx context.Context, q restapi.PageQuery) (restapi.PageResult[T], error) {
			return src.page(ctx, token, q)
		},
		Search: func(ctx context.Context, query string) ([]T, error) {
			return src.search(ctx, token, query)
		},
		All: func(ctx context.Context) ([]T, error) {
			return src.all(ctx, token)
		},
		Fields:    src.fields,
		Tag:       src.tag,
		IsAllTag:  catalog.IsAllTag,
		Sequencer: h.sequencers.For(sequencerKey(r, src.name)),
		Hooks: listing.Hooks{
			OnError: func(err error) {
				out.Err = err
				observability.FromContext(ctx).Warn("list: load failed", zap.String("list", src.name), zap.Error(err))
			},
			OnSuccess: func(st listing.State) {
				if sess := currentSession(r); sess != nil {
					sess.SetListQuery(src.name, urlstate.Encode(st.URLState()).Encode())
				}
			},
		},
	})
}

// runList hydrates a controller from the request URL and applies the one-shot operation the
// control that fired the request asked for.
func runList[T any](h *Handlers, r *http.Request, token string, src listSource[T]) listOutcome[T] {
	ctx := r.Context()
	values := r.URL.Query()

	var out listOutcome[T]
	ctrl := newListController(h, r, token, src, &out)

	hydrated := listing.FromURLState(urlstate.Decode(values))
	if hydrated.ItemsPerPage > maxListPageSize {
		hydrated.ItemsPerPage = maxListPageSize
	}
	ctrl.Hydrate(hydrated)
	intent := ctrl.State()

	var (
		view listing.View[T]
		ok   bool
	)
	switch values.Get(partials.ParamOp) {
	case partials.OpSearch:
		query := values.Get(urlstate.KeySearch)
		intent.SearchQuery, intent.FilterTag, intent.CurrentPage = strings.TrimSpace(query), "", 1
		view, ok = ctrl.SearchWithUI(ctx, query, 1)
	case partials.OpFilter:
		tag := strings.TrimSpace(values.Get(partials.ParamTag))
		intent.SearchQuery, intent.FilterTag, intent.CurrentPage = "", tag, 1
		if catalog.IsAllTag(tag) {
			intent.FilterTag = ""
		}
		view, ok = ctrl.FilterWithUI(ctx, tag, 1)
	case partials.OpSort:
		ctrl.ToggleSort(values.Get(partials.ParamField))
		intent = ctrl.State()
		view, ok = ctrl.RefreshWithUI(ctx)
	case partials.OpRetry:
		view, ok = ctrl.Retry(ctx)
	default:
		view, ok = ctrl.RefreshWithUI(ctx)
	}

	if ok && view.State.TotalPages > 0 && view.State.CurrentPage > view.State.TotalPages {
		// The page emptied under us, typically after a delete; show the last one instead.
		if last, err := ctrl.GoTo(ctx, view.State.TotalPages); err == nil {
			view = last
			if sess := currentSession(r); sess != nil {
				sess.SetListQuery(src.name, urlstate.Encode(last.State.URLState()).Encode())
			}
		}
	}

	out.View = view
	switch {
	case ok:
		out.State = view.State
	case out.Err != nil:
		out.State = intent
	default:
		out.Skipped = true
	}
	return out
}

// runListPage is runList for full-page renders, which always need rows: a skipped request
// falls back to the unfiltered first page.
func runListPage[T any](h *Handlers, r *http.Request, token string, src listSource[T]) listOutcome[T] {
	out := runList(h, r, token, src)
	if !out.Skipped {
		return out
	}
	fallback := listOutcome[T]{}
	ctrl := newListController(h, r, token, src, &fallback)
	view, ok := ctrl.LoadPageWithUI(r.Context(), 1)
	fallback.View = view
	if ok {
		fallback.State = view.State
	} else {
		fallback.State = ctrl.State()
		if fallback.Err == nil {
			fallback.Skipped = true
		}
	}
	return fallback
}

// finishListFragment writes the headers shared by every table fragment response. It reports
// false when the request was skipped and nothing should be rendered.
func finishListFragment[T any](w http.ResponseWriter, listPath string, out listOutcome[T]) bool {
	if out.Skipped {
		w.WriteHeader(http.StatusNoContent)
		return false
	}
	custommw.ReplaceURL(w, helpers.BuildURL(listPath, out.Canonical().Encode()))
	if out.Err != nil {
		custommw.TriggerToast(w, listLoadFailedMessage, custommw.ToneError)
	}
	return true
}

func sequencerKey(r *http.Request, list string) string {
	id := "anonymous"
	if sess := currentSession(r); sess != nil {
		id = sess.ID()
	}
	return id + ":" + list
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return listLoadFailedMessage
}
