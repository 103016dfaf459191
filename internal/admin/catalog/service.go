package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"finitefield.org/catalog-admin/internal/admin/restapi"
)

var (
	// ErrNotFound is returned when a product or category does not exist.
	ErrNotFound = errors.New("catalog: entity not found")
	// ErrConcurrencyConflict indicates the product changed since the editor loaded it.
	ErrConcurrencyConflict = errors.New("catalog: product was modified by another user")
)

// Store is the persistence contract shared by every backend. restapi.Resource satisfies it directly.
type Store[T any] interface {
	All(ctx context.Context) ([]T, error)
	Page(ctx context.Context, query restapi.PageQuery) (restapi.PageResult[T], error)
	Search(ctx context.Context, query string) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, item T) (T, error)
	Delete(ctx context.Context, id string) error
}

// ProductService exposes product CRUD, pagination and search for the admin UI.
type ProductService interface {
	// All returns the whole product collection.
	All(ctx context.Context, token string) ([]Product, error)
	// List returns one server-paginated page.
	List(ctx context.Context, token string, query restapi.PageQuery) (restapi.PageResult[Product], error)
	// Search returns every product matching query.
	Search(ctx context.Context, token, query string) ([]Product, error)
	Get(ctx context.Context, token, id string) (Product, error)
	Create(ctx context.Context, token string, product Product) (Product, error)
	Update(ctx context.Context, token, id string, product Product) (Product, error)
	// UpdateIfUnchanged rejects the write with ErrConcurrencyConflict when the stored
	// lastModified no longer matches the one the editor loaded.
	UpdateIfUnchanged(ctx context.Context, token, id string, product Product, lastModified string) (Product, error)
	Delete(ctx context.Context, token, id string) error
	ByStatus(ctx context.Context, token, status string) ([]Product, error)
	Statuses(ctx context.Context, token string) ([]string, error)
}

// CategoryService exposes category CRUD, pagination and search for the admin UI.
type CategoryService interface {
	All(ctx context.Context, token string) ([]Category, error)
	List(ctx context.Context, token string, query restapi.PageQuery) (restapi.PageResult[Category], error)
	Search(ctx context.Context, token, query string) ([]Category, error)
	Get(ctx context.Context, token, id string) (Category, error)
	Create(ctx context.Context, token string, category Category) (Category, error)
	Update(ctx context.Context, token, id string, category Category) (Category, error)
	Delete(ctx context.Context, token, id string) error
}

// Option customises a catalog service.
type Option func(*serviceOptions)

type serviceOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for lastModified/added stamps.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) serviceOptions {
	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

type entityService[T any] struct {
	store Store[T]
	kind  string
}

func (s entityService[T]) All(ctx context.Context, token string) ([]T, error) {
	items, err := s.store.All(restapi.ContextWithToken(ctx, token))
	if err != nil {
		return nil, s.wrap("list", err)
	}
	return items, nil
}

func (s entityService[T]) List(ctx context.Context, token string, query restapi.PageQuery) (restapi.PageResult[T], error) {
	page, err := s.store.Page(restapi.ContextWithToken(ctx, token), query)
	if err != nil {
		return restapi.PageResult[T]{}, s.wrap("page", err)
	}
	return page, nil
}

func (s entityService[T]) Search(ctx context.Context, token, query string) ([]T, error) {
	items, err := s.store.Search(restapi.ContextWithToken(ctx, token), strings.TrimSpace(query))
	if err != nil {
		return nil, s.wrap("search", err)
	}
	return items, nil
}

func (s entityService[T]) Get(ctx context.Context, token, id string) (T, error) {
	item, err := s.store.Get(restapi.ContextWithToken(ctx, token), strings.TrimSpace(id))
	if err != nil {
		var zero T
		return zero, s.wrap("get "+id, err)
	}
	return item, nil
}

func (s entityService[T]) create(ctx context.Context, token string, item T) (T, error) {
	created, err := s.store.Create(restapi.ContextWithToken(ctx, token), item)
	if err != nil {
		var zero T
		return zero, s.wrap("create", err)
	}
	return created, nil
}

func (s entityService[T]) update(ctx context.Context, token, id string, item T) (T, error) {
	updated, err := s.store.Update(restapi.ContextWithToken(ctx, token), strings.TrimSpace(id), item)
	if err != nil {
		var zero T
		return zero, s.wrap("update "+id, err)
	}
	return updated, nil
}

func (s entityService[T]) Delete(ctx context.Context, token, id string) error {
	if err := s.store.Delete(restapi.ContextWithToken(ctx, token), strings.TrimSpace(id)); err != nil {
		return s.wrap("delete "+id, err)
	}
	return nil
}

func (s entityService[T]) wrap(op string, err error) error {
	if errors.Is(err, restapi.ErrNotFound) && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("catalog: %s %s: %w: %w", op, s.kind, ErrNotFound, err)
	}
	return fmt.Errorf("catalog: %s %s: %w", op, s.kind, err)
}

// Products implements ProductService over any Store.
type Products struct {
	entityService[Product]
	now func() time.Time
}

var _ ProductService = (*Products)(nil)

// NewProducts constructs a ProductService backed by store.
func NewProducts(store Store[Product], opts ...Option) *Products {
	if store == nil {
		panic("catalog: product store is required")
	}
	o := buildOptions(opts)
	return &Products{
		entityService: entityService[Product]{store: store, kind: "product"},
		now:           o.now,
	}
}

// Create stamps added/lastModified and persists a new product.
func (s *Products) Create(ctx context.Context, token string, product Product) (Product, error) {
	stamp := s.now().UTC().Format(StampLayout)
	if strings.TrimSpace(product.Added) == "" {
		product.Added = stamp
	}
	product.LastModified = stamp
	if strings.TrimSpace(product.Status) == "" {
		product.Status = StatusDraft
	}
	return s.create(ctx, token, product)
}

// Update replaces the product unconditionally.
func (s *Products) Update(ctx context.Context, token, id string, product Product) (Product, error) {
	product.ID = ID(strings.TrimSpace(id))
	product.LastModified = s.now().UTC().Format(StampLayout)
	updated, err := s.update(ctx, token, id, product)
	if err != nil {
		return Product{}, err
	}
	if updated.ID == "" {
		// 204 responses carry no body.
		return product, nil
	}
	return updated, nil
}

// UpdateIfUnchanged re-reads the product and only writes when lastModified still matches.
func (s *Products) UpdateIfUnchanged(ctx context.Context, token, id string, product Product, lastModified string) (Product, error) {
	current, err := s.Get(ctx, token, id)
	if err != nil {
		return Product{}, err
	}
	if current.ChangedSince(lastModified) {
		return Product{}, fmt.Errorf("catalog: update product %s: %w", id, ErrConcurrencyConflict)
	}
	if strings.TrimSpace(product.Added) == "" {
		product.Added = current.Added
	}
	return s.Update(ctx, token, id, product)
}

// ByStatus returns products whose status matches, treating an empty status as Draft.
func (s *Products) ByStatus(ctx context.Context, token, status string) ([]Product, error) {
	all, err := s.All(ctx, token)
	if err != nil {
		return nil, err
	}
	want := NormalizeStatus(status)
	out := make([]Product, 0, len(all))
	for _, p := range all {
		if NormalizeStatus(p.Status) == want {
			out = append(out, p)
		}
	}
	return out, nil
}

// Statuses lists the distinct product statuses in use, sorted.
func (s *Products) Statuses(ctx context.Context, token string) ([]string, error) {
	all, err := s.All(ctx, token)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, p := range all {
		st := NormalizeStatus(p.Status)
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
	}
	sort.Strings(out)
	return out, nil
}

// Categories implements CategoryService over any Store.
type Categories struct {
	entityService[Category]
	now func() time.Time
}

var _ CategoryService = (*Categories)(nil)

// NewCategories constructs a CategoryService backed by store.
func NewCategories(store Store[Category], opts ...Option) *Categories {
	if store == nil {
		panic("catalog: category store is required")
	}
	o := buildOptions(opts)
	return &Categories{
		entityService: entityService[Category]{store: store, kind: "category"},
		now:           o.now,
	}
}

// Create stamps createdAt and persists a new category.
func (s *Categories) Create(ctx context.Context, token string, category Category) (Category, error) {
	if category.CreatedAt == 0 {
		category.CreatedAt = Millis(s.now().UnixMilli())
	}
	if strings.TrimSpace(category.Status) == "" {
		category.Status = StatusPublished
	}
	return s.create(ctx, token, category)
}

// Update replaces the category.
func (s *Categories) Update(ctx context.Context, token, id string, category Category) (Category, error) {
	category.ID = ID(strings.TrimSpace(id))
	updated, err := s.update(ctx, token, id, category)
	if err != nil {
		return Category{}, err
	}
	if updated.ID == "" {
		return category, nil
	}
	return updated, nil
}
