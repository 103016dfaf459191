package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finitefield.org/catalog-admin/internal/admin/catalog"
)

// DefaultLowStockThreshold is the stock level at or below which a product raises an alert.
const DefaultLowStockThreshold = 5

const sparklineDays = 7

// CatalogService derives dashboard data from the product and category services.
type CatalogService struct {
	products   catalog.ProductService
	categories catalog.CategoryService
	basePath   string
	threshold  int
	now        func() time.Time
}

// CatalogOption customises a CatalogService.
type CatalogOption func(*CatalogService)

// WithLowStockThreshold overrides DefaultLowStockThreshold.
func WithLowStockThreshold(n int) CatalogOption {
	return func(s *CatalogService) {
		if n >= 0 {
			s.threshold = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CatalogOption {
	return func(s *CatalogService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCatalogService wires the dashboard to the catalog. basePath prefixes alert and activity links.
func NewCatalogService(products catalog.ProductService, categories catalog.CategoryService, basePath string, opts ...CatalogOption) *CatalogService {
	s := &CatalogService{
		products:   products,
		categories: categories,
		basePath:   strings.TrimRight(strings.TrimSpace(basePath), "/"),
		threshold:  DefaultLowStockThreshold,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Service = (*CatalogService)(nil)

// FetchKPIs loads products and categories concurrently and summarises them.
func (s *CatalogService) FetchKPIs(ctx context.Context, token string, since *time.Time) ([]KPI, error) {
	if s == nil || s.products == nil || s.categories == nil {
		return nil, ErrNotConfigured
	}

	var (
		products   []catalog.Product
		categories []catalog.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products.All(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.categories.All(gctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard: fetch kpis: %w", err)
	}

	now := s.now()
	from := now.AddDate(0, 0, -sparklineDays)
	if since != nil && !since.IsZero() {
		from = *since
	}

	var published, low, added int
	for _, p := range products {
		if catalog.NormalizeStatus(p.Status) == catalog.StatusPublished {
			published++
		}
		if s.isLow(p) {
			low++
		}
		if ts := p.AddedAt(); !ts.IsZero() && !ts.Before(from) {
			added++
		}
	}

	addedTrend := TrendFlat
	if added > 0 {
		addedTrend = TrendUp
	}
	lowTrend := TrendFlat
	if low > 0 {
		lowTrend = TrendDown
	}

	return []KPI{
		{
			ID:        "products",
			Label:     "Total Products",
			Value:     strconv.Itoa(len(products)),
			DeltaText: fmt.Sprintf("+%d since %s", added, from.Format("02 Jan")),
			Trend:     addedTrend,
			Sparkline: addedPerDay(products, now),
			UpdatedAt: now,
		},
		{
			ID:        "published",
			Label:     "Published",
			Value:     strconv.Itoa(published),
			DeltaText: percentOf(published, len(products)),
			Trend:     TrendFlat,
			UpdatedAt: now,
		},
		{
			ID:        "low-stock",
			Label:     "Low Stock",
			Value:     strconv.Itoa(low),
			DeltaText: fmt.Sprintf("at or below %d units", s.threshold),
			Trend:     lowTrend,
			UpdatedAt: now,
		},
		{
			ID:        "categories",
			Label:     "Categories",
			Value:     strconv.Itoa(len(categories)),
			DeltaText: fmt.Sprintf("%d published", countPublished(categories)),
			Trend:     TrendFlat,
			UpdatedAt: now,
		},
	}, nil
}

// FetchAlerts lists low-stock products, emptiest first.
func (s *CatalogService) FetchAlerts(ctx context.Context, token string, limit int) ([]Alert, error) {
	if s == nil || s.products == nil {
		return nil, ErrNotConfigured
	}
	products, err := s.products.All(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("dashboard: fetch alerts: %w", err)
	}

	var low []catalog.Product
	for _, p := range products {
		if s.isLow(p) {
			low = append(low, p)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })
	if limit > 0 && len(low) > limit {
		low = low[:limit]
	}

	alerts := make([]Alert, 0, len(low))
	for _, p := range low {
		severity := "warning"
		message := fmt.Sprintf("%s has %d units left.", p.Name, p.Stock)
		if p.Stock <= 0 {
			severity = "danger"
			message = p.Name + " is out of stock."
		}
		alerts = append(alerts, Alert{
			ID:        "low-stock-" + p.ID.String(),
			Severity:  severity,
			Title:     "Low stock: " + p.SKU,
			Message:   message,
			ActionURL: s.productURL(p.ID.String()),
			Action:    "Restock",
			CreatedAt: lastModified(p),
		})
	}
	return alerts, nil
}

// FetchActivity returns products ordered by their last modification, newest first.
func (s *CatalogService) FetchActivity(ctx context.Context, token string, limit int) ([]ActivityItem, error) {
	if s == nil || s.products == nil {
		return nil, ErrNotConfigured
	}
	products, err := s.products.All(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("dashboard: fetch activity: %w", err)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return lastModified(products[i]).After(lastModified(products[j]))
	})
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}

	items := make([]ActivityItem, 0, len(products))
	for _, p := range products {
		icon := "📦"
		verb := "updated"
		if p.LastModified == "" || p.LastModified == p.Added {
			icon = "✨"
			verb = "added"
		}
		items = append(items, ActivityItem{
			ID:        p.ID.String(),
			Icon:      icon,
			Title:     p.Name + " " + verb,
			Detail:    fmt.Sprintf("%s · %s", p.SKU, catalog.NormalizeStatus(p.Status)),
			Occurred:  lastModified(p),
			LinkURL:   s.productURL(p.ID.String()),
			LinkLabel: "Open",
		})
	}
	return items, nil
}

func (s *CatalogService) isLow(p catalog.Product) bool {
	return catalog.NormalizeStatus(p.Status) == catalog.StatusLowStock || p.Stock <= s.threshold
}

func (s *CatalogService) productURL(id string) string {
	base := s.basePath
	if base == "" {
		base = "/admin"
	}
	return base + "/products/" + id + "/edit"
}

func lastModified(p catalog.Product) time.Time {
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(p.LastModified)); err == nil {
		return ts
	}
	return p.AddedAt()
}

func addedPerDay(products []catalog.Product, now time.Time) []float64 {
	counts := make([]float64, sparklineDays)
	today := now.Truncate(24 * time.Hour)
	for _, p := range products {
		ts := p.AddedAt()
		if ts.IsZero() {
			continue
		}
		days := int(today.Sub(ts.Truncate(24*time.Hour)) / (24 * time.Hour))
		if days >= 0 && days < sparklineDays {
			counts[sparklineDays-1-days]++
		}
	}
	return counts
}

func percentOf(n, total int) string {
	if total == 0 {
		return "0% of catalog"
	}
	return fmt.Sprintf("%d%% of catalog", n*100/total)
}

func countPublished(categories []catalog.Category) int {
	n := 0
	for _, c := range categories {
		if catalog.NormalizeStatus(c.Status) == catalog.StatusPublished {
			n++
		}
	}
	return n
}
