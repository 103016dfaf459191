package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	admindashboard "finitefield.org/catalog-admin/internal/admin/dashboard"
	custommw "finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/httpserver/ui"
	"finitefield.org/catalog-admin/internal/admin/listing"
	"finitefield.org/catalog-admin/internal/admin/media"
	"finitefield.org/catalog-admin/internal/admin/rbac"
	"finitefield.org/catalog-admin/public"
)

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address          string
	BasePath         string
	LoginPath        string
	Environment      string
	Authenticator    custommw.Authenticator
	CSRFCookieName   string
	CSRFCookiePath   string
	CSRFCookieSecure bool
	CSRFHeaderName   string

	Logger       *zap.Logger
	SessionStore custommw.SessionStore

	Products   catalog.ProductService
	Categories catalog.CategoryService
	Dashboard  admindashboard.Service
	Uploader   media.Uploader
	Staging    media.StagingStore
	// SnapshotKey signs the image grid state held by product editors. Empty uses a per-process key.
	SnapshotKey []byte

	PageSize       int
	MaxUploadBytes int64
	// UploadsPerSecond limits image uploads per client. Zero disables the limit.
	UploadsPerSecond float64
	UploadBurst      int
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionStore == nil {
		logger.Fatal("session store is required")
	}

	basePath := normalizeBasePath(cfg.BasePath)
	loginPath := resolveLoginPath(basePath, cfg.LoginPath)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(custommw.HTMX())
	router.Use(custommw.RequestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))
	router.Use(custommw.RequestInfoMiddleware(basePath))
	router.Use(custommw.Environment(cfg.Environment))

	staticContent, err := public.StaticFS()
	if err != nil {
		logger.Fatal("embed static", zap.Error(err))
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))

	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = custommw.DefaultAuthenticator()
	}

	csrfCfg := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		CookiePath: firstNonEmpty(cfg.CSRFCookiePath, basePath),
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
	}

	snapshots, err := media.NewSnapshotCodec(cfg.SnapshotKey, 0)
	if err != nil {
		logger.Fatal("snapshot codec", zap.Error(err))
	}
	handlers := ui.NewHandlers(ui.Dependencies{
		Products:       cfg.Products,
		Categories:     cfg.Categories,
		Dashboard:      cfg.Dashboard,
		Uploader:       cfg.Uploader,
		Staging:        cfg.Staging,
		Sequencers:     listing.NewSequencers(0),
		Snapshots:      snapshots,
		PageSize:       cfg.PageSize,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	mountAdminRoutes(router, basePath, routeOptions{
		Authenticator: authenticator,
		LoginPath:     loginPath,
		CSRF:          csrfCfg,
		Sessions:      cfg.SessionStore,
		Handlers:      handlers,
		Auth:          newAuthHandlers(authenticator, basePath, loginPath),
		UploadLimiter: custommw.NewRateLimiter(cfg.UploadsPerSecond, cfg.UploadBurst),
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type routeOptions struct {
	Authenticator custommw.Authenticator
	LoginPath     string
	CSRF          custommw.CSRFConfig
	Sessions      custommw.SessionStore
	Handlers      *ui.Handlers
	Auth          *authHandlers
	UploadLimiter *custommw.RateLimiter
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	h := opts.Handlers
	dashboard := http.HandlerFunc(h.Dashboard)

	if base != "/" {
		router.With(
			custommw.NoStore(),
			custommw.Session(opts.Sessions),
			custommw.Auth(opts.Authenticator, opts.LoginPath),
			custommw.CSRF(opts.CSRF),
			custommw.RequireCapability(rbac.CapDashboardView),
		).Get(base, dashboard)
	}

	router.Route(base, func(r chi.Router) {
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))

		r.Group(func(open chi.Router) {
			open.Use(custommw.CSRF(opts.CSRF))
			loginRoute := strings.TrimPrefix(strings.TrimPrefix(opts.LoginPath, base), "/")
			if loginRoute == "" || strings.HasPrefix(opts.LoginPath, "http") {
				loginRoute = "login"
			}
			open.Get("/"+loginRoute, opts.Auth.LoginForm)
			open.Post("/"+loginRoute, opts.Auth.LoginSubmit)
			open.Post("/logout", opts.Auth.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(custommw.Auth(opts.Authenticator, opts.LoginPath))
			r.Use(custommw.CSRF(opts.CSRF))

			r.With(custommw.RequireCapability(rbac.CapDashboardView)).Get("/", dashboard)
			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireCapability(rbac.CapDashboardView))
				RegisterFragment(r, "/fragments/kpi", h.DashboardKPIFragment)
				RegisterFragment(r, "/fragments/alerts", h.DashboardAlertsFragment)
			})

			r.Route("/products", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(custommw.RequireCapability(rbac.CapProductsView))
					r.Get("/", h.ProductsPage)
					RegisterFragment(r, "/table", h.ProductsTable)
				})
				r.With(custommw.RequireCapability(rbac.CapCatalogExport)).Get("/export.csv", h.ProductsExport)
				r.Group(func(r chi.Router) {
					r.Use(custommw.RequireCapability(rbac.CapProductsEdit))
					r.Get("/new", h.ProductNew)
					r.Post("/", h.ProductCreate)
					r.Get("/{productID}/edit", h.ProductEdit)
					r.Put("/{productID}", h.ProductUpdate)
					r.Post("/{productID}", h.ProductUpdate)
				})
				r.Group(func(r chi.Router) {
					r.Use(custommw.RequireHTMX())
					r.Use(custommw.RequireCapability(rbac.CapMediaUpload))
					r.With(custommw.RateLimit(opts.UploadLimiter)).Post("/media", h.ProductMediaAdd)
					r.Post("/media/remove", h.ProductMediaRemove)
					r.Post("/media/clear", h.ProductMediaClear)
				})
				r.With(custommw.RequireCapability(rbac.CapProductsDelete)).Delete("/{productID}", h.ProductDelete)
			})

			r.With(custommw.RequireCapability(rbac.CapMediaUpload)).Get("/media/staged/{stagingID}", h.StagedMedia)

			r.Route("/categories", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(custommw.RequireCapability(rbac.CapCategoriesView))
					r.Get("/", h.CategoriesPage)
					RegisterFragment(r, "/table", h.CategoriesTable)
				})
				r.With(custommw.RequireCapability(rbac.CapCatalogExport)).Get("/export.csv", h.CategoriesExport)
				r.Group(func(r chi.Router) {
					r.Use(custommw.RequireCapability(rbac.CapCategoriesEdit))
					r.Get("/new", h.CategoryNew)
					r.With(custommw.RateLimit(opts.UploadLimiter)).Post("/", h.CategoryCreate)
					r.Get("/{categoryID}/edit", h.CategoryEdit)
					r.With(custommw.RateLimit(opts.UploadLimiter)).Put("/{categoryID}", h.CategoryUpdate)
					r.With(custommw.RateLimit(opts.UploadLimiter)).Post("/{categoryID}", h.CategoryUpdate)
				})
				r.With(custommw.RequireCapability(rbac.CapCategoriesDelete)).Delete("/{categoryID}", h.CategoryDelete)
			})
		})
	})
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func resolveLoginPath(base string, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	if base == "/" {
		return "/login"
	}
	return base + "/login"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}
