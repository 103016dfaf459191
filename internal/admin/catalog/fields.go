package catalog

import "strings"

// ProductFields maps sortable column keys to their values.
var ProductFields = map[string]func(Product) any{
	"name":     func(p Product) any { return p.Name },
	"sku":      func(p Product) any { return p.SKU },
	"category": func(p Product) any { return p.Category },
	"price":    func(p Product) any { return p.Price },
	"stock":    func(p Product) any { return p.Stock },
	"status":   func(p Product) any { return NormalizeStatus(p.Status) },
	"added": func(p Product) any {
		if ts := p.AddedAt(); !ts.IsZero() {
			return ts
		}
		return nil
	},
}

// CategoryFields maps sortable column keys to their values.
var CategoryFields = map[string]func(Category) any{
	"name":   func(c Category) any { return c.Name },
	"stock":  func(c Category) any { return c.Stock },
	"sold":   func(c Category) any { return c.Sold },
	"status": func(c Category) any { return NormalizeStatus(c.Status) },
	"createdAt": func(c Category) any {
		if c.CreatedAt == 0 {
			return nil
		}
		return c.CreatedAt.Time()
	},
}

// ProductAccessor describes products to the generic stores.
var ProductAccessor = Accessor[Product]{
	ID:     func(p Product) string { return p.ID.String() },
	WithID: func(p Product, id string) Product { p.ID = ID(id); return p },
	Matches: func(p Product, query string) bool {
		return containsFold(query, p.Name, p.SKU, p.Category, p.Barcode)
	},
	Fields: ProductFields,
}

// CategoryAccessor describes categories to the generic stores.
var CategoryAccessor = Accessor[Category]{
	ID:     func(c Category) string { return c.ID.String() },
	WithID: func(c Category, id string) Category { c.ID = ID(id); return c },
	Matches: func(c Category, query string) bool {
		return containsFold(query, c.Name, c.Description)
	},
	Fields: CategoryFields,
}

// Accessor tells the in-memory and Firestore stores how to handle an entity type.
type Accessor[T any] struct {
	ID      func(T) string
	WithID  func(T, string) T
	Matches func(T, string) bool
	Fields  map[string]func(T) any
}

func containsFold(query string, values ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}
