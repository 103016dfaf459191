package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	"finitefield.org/catalog-admin/internal/admin/dashboard"
	"finitefield.org/catalog-admin/internal/admin/httpserver"
	"finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/media"
	appsession "finitefield.org/catalog-admin/internal/admin/session"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator used by the admin server.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BasePath = path
	}
}

// WithDashboardService wires a custom dashboard service implementation.
func WithDashboardService(service dashboard.Service) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Dashboard = service
	}
}

// WithProductService wires a custom product service implementation.
func WithProductService(service catalog.ProductService) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Products = service
	}
}

// WithCategoryService wires a custom category service implementation.
func WithCategoryService(service catalog.CategoryService) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Categories = service
	}
}

// WithUploader overrides the image uploader.
func WithUploader(uploader media.Uploader) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Uploader = uploader
	}
}

// NewServer constructs an httptest server running the admin HTTP stack with sensible defaults.
// Each server gets fresh copies of the sample catalog.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	sessions, err := appsession.NewManager(appsession.Config{
		CookieName: "admin_session",
		HashKey:    []byte("0123456789abcdef0123456789abcdef"),
		BlockKey:   []byte("abcdef0123456789"),
	})
	require.NoError(t, err)

	products := catalog.NewStaticProducts()
	categories := catalog.NewStaticCategories()
	cfg := httpserver.Config{
		Address:        ":0",
		BasePath:       "/admin",
		LoginPath:      "",
		Environment:    "test",
		CSRFCookieName: "csrf_token",
		CSRFHeaderName: "X-CSRF-Token",
		Authenticator:  middleware.DefaultAuthenticator(),
		SessionStore:   sessions,
		Products:       products,
		Categories:     categories,
		Uploader: media.UploaderFunc(func(_ context.Context, name, _ string, _ io.Reader) (string, error) {
			return "https://cdn.test/images/" + name, nil
		}),
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Dashboard == nil {
		cfg.Dashboard = dashboard.NewCatalogService(cfg.Products, cfg.Categories, cfg.BasePath)
	}

	srv := httpserver.New(cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}
