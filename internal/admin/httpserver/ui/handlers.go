package ui

import (
	"net/http"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	admindashboard "finitefield.org/catalog-admin/internal/admin/dashboard"
	custommw "finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/listing"
	"finitefield.org/catalog-admin/internal/admin/media"
	"finitefield.org/catalog-admin/internal/admin/observability"
	appsession "finitefield.org/catalog-admin/internal/admin/session"
	dashboardtpl "finitefield.org/catalog-admin/internal/admin/templates/dashboard"
	"finitefield.org/catalog-admin/internal/admin/templates/partials"
)

const (
	// DefaultMaxUploadBytes bounds one multipart upload request.
	DefaultMaxUploadBytes = 10 << 20

	dashboardAlertLimit    = 5
	dashboardActivityLimit = 8
)

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	Products   catalog.ProductService
	Categories catalog.CategoryService
	Dashboard  admindashboard.Service
	// Uploader stores product and category images. Uploads fail when nil.
	Uploader media.Uploader
	// Staging holds pending product images between requests. Defaults to process memory.
	Staging media.StagingStore
	// Sequencers orders overlapping list requests of one session. Defaults to a fresh registry.
	Sequencers *listing.Sequencers
	// Snapshots signs the image grid state held by the editor. Defaults to a per-process key.
	Snapshots      *media.SnapshotCodec
	PageSize       int
	MaxUploadBytes int64
}

// Handlers exposes HTTP handlers for admin UI pages and fragments.
type Handlers struct {
	products       catalog.ProductService
	categories     catalog.CategoryService
	dashboard      admindashboard.Service
	uploader       media.Uploader
	staging        media.StagingStore
	sequencers     *listing.Sequencers
	snapshots      *media.SnapshotCodec
	pageSize       int
	maxUploadBytes int64
}

// NewHandlers wires the UI handler set. Missing catalog services fall back to the in-memory
// sample catalog.
func NewHandlers(deps Dependencies) *Handlers {
	products := deps.Products
	if products == nil {
		products = catalog.NewStaticProducts()
	}
	categories := deps.Categories
	if categories == nil {
		categories = catalog.NewStaticCategories()
	}
	dash := deps.Dashboard
	if dash == nil {
		dash = admindashboard.NewCatalogService(products, categories, "")
	}
	staging := deps.Staging
	if staging == nil {
		staging = media.NewMemoryStagingStore(media.DefaultStagingTTL)
	}
	sequencers := deps.Sequencers
	if sequencers == nil {
		sequencers = listing.NewSequencers(0)
	}
	snapshots := deps.Snapshots
	if snapshots == nil {
		codec, err := media.NewSnapshotCodec(nil, 0)
		if err != nil {
			panic(err)
		}
		snapshots = codec
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = listing.DefaultPageSize
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handlers{
		products:       products,
		categories:     categories,
		dashboard:      dash,
		uploader:       deps.Uploader,
		staging:        staging,
		sequencers:     sequencers,
		snapshots:      snapshots,
		pageSize:       pageSize,
		maxUploadBytes: maxUpload,
	}
}

// Dashboard renders the admin dashboard.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	logger := observability.FromContext(ctx)

	since := time.Now().AddDate(0, 0, -7)
	kpis, kpiErr := h.dashboard.FetchKPIs(ctx, user.Token, &since)
	if kpiErr != nil {
		logger.Warn("dashboard: fetch kpis failed", zap.Error(kpiErr))
	}
	alerts, alertErr := h.dashboard.FetchAlerts(ctx, user.Token, dashboardAlertLimit)
	if alertErr != nil {
		logger.Warn("dashboard: fetch alerts failed", zap.Error(alertErr))
	}
	activity, err := h.dashboard.FetchActivity(ctx, user.Token, dashboardActivityLimit)
	if err != nil {
		logger.Warn("dashboard: fetch activity failed", zap.Error(err))
	}

	data := dashboardtpl.BuildPageData(custommw.BasePathFromContext(ctx), kpis, alerts, activity)
	if kpiErr != nil {
		data.KPIFragment.Error = "Metrics are unavailable right now."
	}
	if alertErr != nil {
		data.AlertsFragment.Error = "Alerts are unavailable right now."
	}
	data.Flash = popFlash(r)
	render(w, r, http.StatusOK, dashboardtpl.Index(data))
}

// DashboardKPIFragment renders the polled KPI cards.
func (h *Handlers) DashboardKPIFragment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	since := time.Now().AddDate(0, 0, -7)
	kpis, err := h.dashboard.FetchKPIs(ctx, user.Token, &since)
	data := dashboardtpl.KPIFragmentPayload(kpis)
	if err != nil {
		observability.FromContext(ctx).Warn("dashboard: fetch kpis failed", zap.Error(err))
		data.Error = "Metrics are unavailable right now."
	}
	render(w, r, http.StatusOK, dashboardtpl.KPIFragment(data))
}

// DashboardAlertsFragment renders the polled alert list.
func (h *Handlers) DashboardAlertsFragment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	alerts, err := h.dashboard.FetchAlerts(ctx, user.Token, dashboardAlertLimit)
	data := dashboardtpl.AlertsFragmentPayload(alerts)
	if err != nil {
		observability.FromContext(ctx).Warn("dashboard: fetch alerts failed", zap.Error(err))
		data.Error = "Alerts are unavailable right now."
	}
	render(w, r, http.StatusOK, dashboardtpl.AlertsFragment(data))
}

func requireUser(w http.ResponseWriter, r *http.Request) (*custommw.User, bool) {
	user, ok := custommw.UserFromContext(r.Context())
	if !ok || user == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}
	return user, true
}

func render(w http.ResponseWriter, r *http.Request, status int, component templ.Component) {
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := component.Render(r.Context(), w); err != nil {
			observability.FromContext(r.Context()).Error("ui: render failed", zap.Error(err))
		}
		return
	}
	templ.Handler(component).ServeHTTP(w, r)
}

func currentSession(r *http.Request) *appsession.Session {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		return nil
	}
	return sess
}

// popFlash consumes the toast queued by the previous request.
func popFlash(r *http.Request) *partials.Toast {
	sess := currentSession(r)
	if sess == nil {
		return nil
	}
	flash, ok := sess.PopFlash()
	if !ok {
		return nil
	}
	return &partials.Toast{Message: flash.Message, Tone: flash.Tone}
}

// setFlash queues a toast for the page the client lands on next. Call before writing headers.
func setFlash(r *http.Request, message, tone string) {
	if sess := currentSession(r); sess != nil {
		sess.SetFlash(message, tone)
	}
}

// listReturnURL is the list page with the query the user last viewed it under.
func listReturnURL(r *http.Request, listPath, list string) string {
	if sess := currentSession(r); sess != nil {
		if raw := sess.ListQuery(list); raw != "" {
			return listPath + "?" + raw
		}
	}
	return listPath
}
