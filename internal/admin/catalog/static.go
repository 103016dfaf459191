package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"finitefield.org/catalog-admin/internal/admin/listing"
	"finitefield.org/catalog-admin/internal/admin/restapi"
)

// StaticStore is an in-memory Store used for local development and tests.
type StaticStore[T any] struct {
	mu    sync.RWMutex
	items []T
	acc   Accessor[T]
	newID func() string
}

// NewStaticStore constructs an in-memory store seeded with items.
func NewStaticStore[T any](acc Accessor[T], seed []T) *StaticStore[T] {
	items := make([]T, 0, len(seed))
	items = append(items, seed...)
	return &StaticStore[T]{
		items: items,
		acc:   acc,
		newID: func() string { return ulid.Make().String() },
	}
}

// All returns a copy of every item.
func (s *StaticStore[T]) All(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Page sorts (when requested) and slices the collection.
func (s *StaticStore[T]) Page(ctx context.Context, q restapi.PageQuery) (restapi.PageResult[T], error) {
	all, err := s.All(ctx)
	if err != nil {
		return restapi.PageResult[T]{}, err
	}
	if key, ok := s.acc.Fields[strings.TrimSpace(q.SortBy)]; ok {
		listing.SortItems(all, key, listing.ParseOrder(q.Order))
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = len(all)
	}
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return restapi.PageResult[T]{Items: all[start:end], TotalItems: len(all)}, nil
}

// Search matches items case-insensitively on their descriptive fields.
func (s *StaticStore[T]) Search(ctx context.Context, query string) ([]T, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, item := range all {
		if s.acc.Matches(item, query) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Get returns the item with id.
func (s *StaticStore[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.items[idx], nil
	}
	return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Create assigns an id and appends the item.
func (s *StaticStore[T]) Create(ctx context.Context, item T) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(s.acc.ID(item)) == "" {
		item = s.acc.WithID(item, s.newID())
	}
	s.items = append(s.items, item)
	return item, nil
}

// Update replaces the item with id.
func (s *StaticStore[T]) Update(ctx context.Context, id string, item T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	item = s.acc.WithID(item, id)
	s.items[idx] = item
	return item, nil
}

// Delete removes the item with id.
func (s *StaticStore[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

func (s *StaticStore[T]) indexOf(id string) int {
	id = strings.TrimSpace(id)
	for i, item := range s.items {
		if s.acc.ID(item) == id {
			return i
		}
	}
	return -1
}

// NewStaticProducts returns a ProductService over seeded sample data.
func NewStaticProducts(opts ...Option) *Products {
	return NewProducts(NewStaticStore(ProductAccessor, SampleProducts()), opts...)
}

// NewStaticCategories returns a CategoryService over seeded sample data.
func NewStaticCategories(opts ...Option) *Categories {
	return NewCategories(NewStaticStore(CategoryAccessor, SampleCategories()), opts...)
}

// SampleCategories returns the seed categories used by the static backend.
func SampleCategories() []Category {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	return []Category{
		{ID: "1", Name: "Ring", Description: "Rings of every size and finish", Status: StatusPublished, Stock: 120, Sold: 340, CreatedAt: Millis(base.UnixMilli()), Image: "https://images.example.com/categories/ring.png"},
		{ID: "2", Name: "Necklace", Description: "Chains and pendants", Status: StatusPublished, Stock: 80, Sold: 210, CreatedAt: Millis(base.Add(2 * day).UnixMilli()), Image: "https://images.example.com/categories/necklace.png"},
		{ID: "3", Name: "Bracelet", Description: "Bangles and cuffs", Status: StatusDraft, Stock: 45, Sold: 90, CreatedAt: Millis(base.Add(5 * day).UnixMilli()), Image: "https://images.example.com/categories/bracelet.png"},
		{ID: "4", Name: "Earring", Description: "Studs and hoops", Status: StatusPublished, Stock: 150, Sold: 500, CreatedAt: Millis(base.Add(9 * day).UnixMilli()), Image: "https://images.example.com/categories/earring.png"},
		{ID: "5", Name: "Watch", Description: "Analog and smart watches", Status: "", Stock: 12, Sold: 33, CreatedAt: Millis(base.Add(14 * day).UnixMilli()), Avatar: "https://images.example.com/categories/watch.png"},
	}
}

// SampleProducts returns the seed products used by the static backend.
func SampleProducts() []Product {
	base := time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC)
	stamp := func(days int) string {
		return base.Add(time.Duration(days) * 24 * time.Hour).Format(StampLayout)
	}
	img := func(name string) string {
		return "https://images.example.com/products/" + name + ".png"
	}
	return []Product{
		{ID: "1", Name: "Solitaire Ring", SKU: "RNG-001", Category: "Ring", CategoryID: "1", Price: 1299, Status: StatusPublished, Stock: 14, Quantity: 14, Variants: "sizes 5-9", Added: stamp(0), LastModified: stamp(0), Images: ProductImages{FirstImg: img("ring-1"), SecondImg: img("ring-1b")}},
		{ID: "2", Name: "Halo Ring", SKU: "RNG-002", Category: "Ring", CategoryID: "1", Price: 899.5, Status: StatusLowStock, Stock: 2, Quantity: 2, Added: stamp(1), LastModified: stamp(1), Images: ProductImages{FirstImg: img("ring-2")}},
		{ID: "3", Name: "pearl necklace", SKU: "NCK-001", Category: "Necklace", CategoryID: "2", Price: 450, Status: StatusPublished, Stock: 30, Quantity: 30, Added: stamp(2), LastModified: stamp(2), Images: ProductImages{FirstImg: img("necklace-1")}},
		{ID: "4", Name: "Gold Chain", SKU: "NCK-002", Category: "Necklace", CategoryID: "2", Price: 320, Status: StatusDraft, Stock: 8, Quantity: 8, Added: stamp(3), LastModified: stamp(3), Images: ProductImages{FirstImg: img("necklace-2")}},
		{ID: "5", Name: "Tennis Bracelet", SKU: "BRC-001", Category: "Bracelet", CategoryID: "3", Price: 780, Status: StatusPublished, Stock: 11, Quantity: 11, Added: stamp(4), LastModified: stamp(4), Images: ProductImages{FirstImg: img("bracelet-1"), SecondImg: img("bracelet-1b"), ThirdImg: img("bracelet-1c")}},
		{ID: "6", Name: "Cuff Bracelet", SKU: "BRC-002", Category: "Bracelet", CategoryID: "3", Price: 210, Status: "", Stock: 0, Quantity: 0, Added: stamp(5), LastModified: stamp(5)},
		{ID: "7", Name: "Diamond Studs", SKU: "EAR-001", Category: "Earring", CategoryID: "4", Price: 640, Status: StatusPublished, Stock: 25, Quantity: 25, Added: stamp(6), LastModified: stamp(6), Images: ProductImages{FirstImg: img("earring-1")}},
		{ID: "8", Name: "Hoop Earrings", SKU: "EAR-002", Category: "Earring", CategoryID: "4", Price: 150, Status: StatusLowStock, Stock: 3, Quantity: 3, Added: stamp(7), LastModified: stamp(7), Images: ProductImages{FirstImg: img("earring-2")}},
		{ID: "9", Name: "Chronograph Watch", SKU: "WCH-001", Category: "Watch", CategoryID: "5", Price: 2150, Status: StatusPublished, Stock: 6, Quantity: 6, Added: stamp(8), LastModified: stamp(8), Images: ProductImages{FirstImg: img("watch-1")}},
		{ID: "10", Name: "Smart Watch", SKU: "WCH-002", Category: "Watch", CategoryID: "5", Price: 399, Status: StatusDraft, Stock: 19, Quantity: 19, Added: stamp(9), LastModified: stamp(9)},
		{ID: "11", Name: "Signet Ring", SKU: "RNG-003", Category: "Ring", CategoryID: "1", Price: 560, Status: StatusPublished, Stock: 9, Quantity: 9, Added: stamp(10), LastModified: stamp(10), Images: ProductImages{FirstImg: img("ring-3")}},
		{ID: "12", Name: "Locket Necklace", SKU: "NCK-003", Category: "Necklace", CategoryID: "2", Price: 275, Status: StatusPublished, Stock: 17, Quantity: 17, Added: stamp(11), LastModified: stamp(11), Images: ProductImages{FirstImg: img("necklace-3")}},
		{ID: "13", Name: "Charm Bracelet", SKU: "BRC-003", Category: "Bracelet", CategoryID: "3", Price: 185, Status: StatusLowStock, Stock: 1, Quantity: 1, Added: stamp(12), LastModified: stamp(12)},
		{ID: "14", Name: "Drop Earrings", SKU: "EAR-003", Category: "Earring", CategoryID: "4", Price: 230, Status: StatusPublished, Stock: 22, Quantity: 22, Added: stamp(13), LastModified: stamp(13), Images: ProductImages{FirstImg: img("earring-3")}},
	}
}
