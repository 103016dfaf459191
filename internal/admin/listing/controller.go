package listing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"finitefield.org/catalog-admin/internal/admin/restapi"
)

const (
	// DefaultPageSize matches the list pages' six-row tables.
	DefaultPageSize = 6
	// MinSearchLength is the shortest query that triggers a search.
	MinSearchLength = 2
	// DefaultVisiblePages bounds the numbered pagination buttons.
	DefaultVisiblePages = 5
)

var (
	// ErrStale is returned when a newer operation started before this one finished.
	// The result was discarded and no state changed.
	ErrStale = errors.New("listing: result superseded by a newer request")
	// ErrQueryTooShort reports a non-empty query below MinSearchLength; state is unchanged.
	ErrQueryTooShort = errors.New("listing: search query too short")
)

// Mode identifies which load path produced the current view.
type Mode string

const (
	ModeList   Mode = "list"
	ModeSearch Mode = "search"
	ModeFilter Mode = "filter"
)

// Hooks let the caller observe loading, failures and successful loads.
type Hooks struct {
	OnLoading func(loading bool)
	OnError   func(err error)
	OnSuccess func(state State)
}

// Config wires a Controller to its data source.
type Config[T any] struct {
	PageSize int
	// Page fetches one server-paginated page.
	Page func(ctx context.Context, q restapi.PageQuery) (restapi.PageResult[T], error)
	// Search returns every match for a query.
	Search func(ctx context.Context, query string) ([]T, error)
	// All returns the whole collection; tag filtering runs over it.
	All func(ctx context.Context) ([]T, error)
	// Fields maps sortable keys to item values.
	Fields map[string]func(T) any
	// Tag reports whether an item belongs under a filter tag.
	Tag func(item T, tag string) bool
	// IsAllTag reports tags that mean "no filter".
	IsAllTag func(tag string) bool
	Hooks    Hooks
	// Sequencer orders operations across controllers that share a view. Optional.
	Sequencer *Sequencer
}

// View is one rendered page of items plus the state that produced it.
type View[T any] struct {
	Items []T
	State State
}

// Controller holds pagination, sort, search and filter state for one list.
type Controller[T any] struct {
	cfg Config[T]
	seq *Sequencer

	mu     sync.Mutex
	state  State
	items  []T
	hooks  Hooks
	lastOp func(ctx context.Context) (View[T], error)
}

// NewController constructs a Controller starting at page 1.
func NewController[T any](cfg Config[T]) *Controller[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Page == nil {
		panic("listing: page fetcher is required")
	}
	if cfg.IsAllTag == nil {
		cfg.IsAllTag = func(tag string) bool { return strings.TrimSpace(tag) == "" }
	}
	seq := cfg.Sequencer
	if seq == nil {
		seq = NewSequencer()
	}
	return &Controller[T]{
		cfg:   cfg,
		seq:   seq,
		hooks: cfg.Hooks,
		state: State{CurrentPage: 1, ItemsPerPage: cfg.PageSize, SortOrder: Asc},
	}
}

// RegisterHooks replaces the UI hooks.
func (c *Controller[T]) RegisterHooks(h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = h
}

// State returns a copy of the current state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns the items of the current view.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Hydrate replaces sort, search and filter state, typically from the URL. Search wins over filter.
func (c *Controller[T]) Hydrate(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.ItemsPerPage <= 0 {
		s.ItemsPerPage = c.cfg.PageSize
	}
	if s.CurrentPage <= 0 {
		s.CurrentPage = 1
	}
	if _, ok := c.cfg.Fields[s.SortField]; !ok {
		s.SortField = ""
	}
	if s.SortOrder != Desc {
		s.SortOrder = Asc
	}
	s.SearchQuery = strings.TrimSpace(s.SearchQuery)
	if s.SearchQuery != "" {
		s.FilterTag = ""
	}
	if c.cfg.IsAllTag(s.FilterTag) {
		s.FilterTag = ""
	}
	c.state = s
}

// ToggleSort flips the direction for the current field or starts a new field ascending.
// It reports false for unknown fields.
func (c *Controller[T]) ToggleSort(field string) bool {
	field = strings.TrimSpace(field)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cfg.Fields[field]; !ok {
		return false
	}
	if c.state.SortField == field {
		c.state.SortOrder = c.state.SortOrder.Flip()
	} else {
		c.state.SortField = field
		c.state.SortOrder = Asc
	}
	c.state.CurrentPage = 1
	return true
}

// SetSorting sets an explicit field and direction.
func (c *Controller[T]) SetSorting(field string, order Order) bool {
	field = strings.TrimSpace(field)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cfg.Fields[field]; !ok {
		return false
	}
	c.state.SortField = field
	c.state.SortOrder = order
	c.state.CurrentPage = 1
	return true
}

// LoadPage fetches one server page and sorts it client-side when a sort field is set.
func (c *Controller[T]) LoadPage(ctx context.Context, page int) (View[T], error) {
	op := func(ctx context.Context) (View[T], error) { return c.LoadPage(ctx, page) }
	gen, next := c.begin(op, func(s *State) {
		s.SearchQuery = ""
		s.FilterTag = ""
		s.CurrentPage = clampPage(page)
	})

	res, err := c.cfg.Page(ctx, restapi.PageQuery{
		Page:   next.CurrentPage,
		Limit:  next.ItemsPerPage,
		SortBy: next.SortField,
		Order:  string(next.SortOrder),
	})
	if err != nil {
		return View[T]{}, c.fail(gen, err)
	}
	items := res.Items
	c.sort(items, next)
	next.TotalItems = res.TotalItems
	return c.commit(gen, next, items)
}

// SearchWithPagination fetches every match and slices out page. An empty query clears the
// search and reloads page 1; a too-short query leaves everything untouched.
func (c *Controller[T]) SearchWithPagination(ctx context.Context, query string, page int) (View[T], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.LoadPage(ctx, 1)
	}
	if utf8.RuneCountInString(query) < MinSearchLength {
		return View[T]{}, ErrQueryTooShort
	}
	if c.cfg.Search == nil {
		return View[T]{}, errors.New("listing: search is not configured")
	}

	op := func(ctx context.Context) (View[T], error) { return c.SearchWithPagination(ctx, query, page) }
	gen, next := c.begin(op, func(s *State) {
		s.SearchQuery = query
		s.FilterTag = ""
		s.CurrentPage = clampPage(page)
	})

	all, err := c.cfg.Search(ctx, query)
	if err != nil {
		return View[T]{}, c.fail(gen, err)
	}
	c.sort(all, next)
	next.TotalItems = len(all)
	return c.commit(gen, next, slicePage(all, next.CurrentPage, next.ItemsPerPage))
}

// FilterByTag narrows the whole collection to items under tag. An "all" tag clears the filter.
func (c *Controller[T]) FilterByTag(ctx context.Context, tag string, page int) (View[T], error) {
	tag = strings.TrimSpace(tag)
	if c.cfg.IsAllTag(tag) {
		return c.LoadPage(ctx, page)
	}
	if c.cfg.All == nil || c.cfg.Tag == nil {
		return View[T]{}, errors.New("listing: tag filtering is not configured")
	}

	op := func(ctx context.Context) (View[T], error) { return c.FilterByTag(ctx, tag, page) }
	gen, next := c.begin(op, func(s *State) {
		s.FilterTag = tag
		s.SearchQuery = ""
		s.CurrentPage = clampPage(page)
	})

	all, err := c.cfg.All(ctx)
	if err != nil {
		return View[T]{}, c.fail(gen, err)
	}
	matched := make([]T, 0, len(all))
	for _, item := range all {
		if c.cfg.Tag(item, tag) {
			matched = append(matched, item)
		}
	}
	c.sort(matched, next)
	next.TotalItems = len(matched)
	return c.commit(gen, next, slicePage(matched, next.CurrentPage, next.ItemsPerPage))
}

// GoTo reloads page through whichever path is active.
func (c *Controller[T]) GoTo(ctx context.Context, page int) (View[T], error) {
	st := c.State()
	switch st.Mode() {
	case ModeSearch:
		return c.SearchWithPagination(ctx, st.SearchQuery, page)
	case ModeFilter:
		return c.FilterByTag(ctx, st.FilterTag, page)
	default:
		return c.LoadPage(ctx, page)
	}
}

// Refresh re-runs the active path for the current page.
func (c *Controller[T]) Refresh(ctx context.Context) (View[T], error) {
	return c.GoTo(ctx, c.State().CurrentPage)
}

// Retry re-runs the last operation and reports through the hooks. A controller that has not run
// anything yet refreshes its hydrated view.
func (c *Controller[T]) Retry(ctx context.Context) (View[T], bool) {
	c.mu.Lock()
	op := c.lastOp
	c.mu.Unlock()
	if op == nil {
		op = c.Refresh
	}
	return c.withUI(ctx, op)
}

// LoadPageWithUI is LoadPage reporting through the hooks.
func (c *Controller[T]) LoadPageWithUI(ctx context.Context, page int) (View[T], bool) {
	return c.withUI(ctx, func(ctx context.Context) (View[T], error) { return c.LoadPage(ctx, page) })
}

// SearchWithUI is SearchWithPagination reporting through the hooks.
func (c *Controller[T]) SearchWithUI(ctx context.Context, query string, page int) (View[T], bool) {
	return c.withUI(ctx, func(ctx context.Context) (View[T], error) { return c.SearchWithPagination(ctx, query, page) })
}

// FilterWithUI is FilterByTag reporting through the hooks.
func (c *Controller[T]) FilterWithUI(ctx context.Context, tag string, page int) (View[T], bool) {
	return c.withUI(ctx, func(ctx context.Context) (View[T], error) { return c.FilterByTag(ctx, tag, page) })
}

// RefreshWithUI is Refresh reporting through the hooks.
func (c *Controller[T]) RefreshWithUI(ctx context.Context) (View[T], bool) {
	return c.withUI(ctx, c.Refresh)
}

func (c *Controller[T]) withUI(ctx context.Context, op func(context.Context) (View[T], error)) (View[T], bool) {
	c.mu.Lock()
	hooks := c.hooks
	c.mu.Unlock()

	if hooks.OnLoading != nil {
		hooks.OnLoading(true)
	}
	view, err := op(ctx)
	if hooks.OnLoading != nil {
		hooks.OnLoading(false)
	}
	switch {
	case errors.Is(err, ErrStale), errors.Is(err, ErrQueryTooShort):
		return View[T]{}, false
	case err != nil:
		if hooks.OnError != nil {
			hooks.OnError(err)
		}
		return View[T]{}, false
	}
	if hooks.OnSuccess != nil {
		hooks.OnSuccess(view.State)
	}
	return view, true
}

func (c *Controller[T]) begin(op func(context.Context) (View[T], error), mutate func(*State)) (uint64, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastOp = op
	next := c.state
	mutate(&next)
	return c.seq.Next(), next
}

func (c *Controller[T]) fail(gen uint64, err error) error {
	if !c.seq.IsLatest(gen) {
		return ErrStale
	}
	return err
}

func (c *Controller[T]) commit(gen uint64, next State, items []T) (View[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seq.IsLatest(gen) {
		return View[T]{}, ErrStale
	}
	next.TotalPages = totalPages(next.TotalItems, next.ItemsPerPage)
	c.state = next
	c.items = items
	out := make([]T, len(items))
	copy(out, items)
	return View[T]{Items: out, State: next}, nil
}

func (c *Controller[T]) sort(items []T, s State) {
	if s.SortField == "" {
		return
	}
	if key, ok := c.cfg.Fields[s.SortField]; ok {
		SortItems(items, key, s.SortOrder)
	}
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func totalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func slicePage[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) || start < 0 {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
