package ui

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	custommw "finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/media"
	appsession "finitefield.org/catalog-admin/internal/admin/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type harness struct {
	t          *testing.T
	router     http.Handler
	products   *catalog.Products
	categories *catalog.Categories
	staging    *media.MemoryStagingStore
	snapshots  *media.SnapshotCodec
	uploads    []string
}

const testUID = "tester"

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		t:          t,
		products:   catalog.NewStaticProducts(),
		categories: catalog.NewStaticCategories(),
		staging:    media.NewMemoryStagingStore(0),
	}
	codec, err := media.NewSnapshotCodec([]byte("abcdef0123456789abcdef0123456789"), 0)
	require.NoError(t, err)
	h.snapshots = codec
	handlers := NewHandlers(Dependencies{
		Products:   h.products,
		Categories: h.categories,
		Staging:    h.staging,
		Snapshots:  h.snapshots,
		Uploader: media.UploaderFunc(func(_ context.Context, name, _ string, _ io.Reader) (string, error) {
			h.uploads = append(h.uploads, name)
			return "https://cdn.test/images/" + name, nil
		}),
	})

	sessions, err := appsession.NewManager(appsession.Config{HashKey: []byte("0123456789abcdef0123456789abcdef")})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(custommw.HTMX())
	r.Use(custommw.RequestInfoMiddleware("/admin"))
	r.Use(custommw.Session(sessions))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user := &custommw.User{UID: testUID, Email: "tester@example.com", Token: "token", Roles: []string{"admin"}}
			next.ServeHTTP(w, req.WithContext(custommw.ContextWithUser(req.Context(), user)))
		})
	})
	r.Route("/admin", func(r chi.Router) {
		r.Get("/products/table", handlers.ProductsTable)
		r.Post("/products", handlers.ProductCreate)
		r.Get("/products/{productID}/edit", handlers.ProductEdit)
		r.Put("/products/{productID}", handlers.ProductUpdate)
		r.Post("/products/media", handlers.ProductMediaAdd)
		r.Post("/products/media/remove", handlers.ProductMediaRemove)
		r.Get("/media/staged/{stagingID}", handlers.StagedMedia)
		r.Put("/categories/{categoryID}", handlers.CategoryUpdate)
		r.Get("/categories/export.csv", handlers.CategoriesExport)
	})
	h.router = r
	return h
}

func (h *harness) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("HX-Request", "true")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) postForm(method, target string, form url.Values) *httptest.ResponseRecorder {
	return h.do(method, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	return doc
}

type upload struct {
	name string
	data []byte
}

func mediaRequest(t *testing.T, snapshot string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("media", snapshot))
	for _, f := range files {
		part, err := mw.CreateFormFile("images", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

// seal signs the manager state the way the editor page would for productID.
func (h *harness) seal(productID string, m *media.Manager) string {
	h.t.Helper()
	raw, err := h.snapshots.Seal(media.Sealed{Owner: testUID, ProductID: productID, Snapshot: m.Snapshot()})
	require.NoError(h.t, err)
	return raw
}

func (h *harness) emptyAddSnapshot() string {
	return h.seal("", media.NewManager(media.ModeAdd))
}

func (h *harness) openSnapshot(raw string) media.Snapshot {
	h.t.Helper()
	sealed, err := h.snapshots.Open(raw, testUID)
	require.NoError(h.t, err)
	return sealed.Snapshot
}

// editPage loads the product editor and returns its lastModified and media fields.
func (h *harness) editPage(id string) (string, string) {
	h.t.Helper()
	rec := h.do(http.MethodGet, "/admin/products/"+id+"/edit", nil, "")
	require.Equal(h.t, http.StatusOK, rec.Code)
	doc := parse(h.t, rec)
	return doc.Find(`input[name="lastModified"]`).AttrOr("value", ""), doc.Find(`input[name="media"]`).AttrOr("value", "")
}

func validProductForm(snapshot string) url.Values {
	return url.Values{
		"productName": {"Opal Ring"},
		"price":       {"420"},
		"sku":         {"RNG-009"},
		"quantity":    {"4"},
		"categoryID":  {"1"},
		"status":      {catalog.StatusPublished},
		"media":       {snapshot},
	}
}

func TestProductsTableSortToggleOrdersRows(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/admin/products/table?op=sort&field=price", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	replace := rec.Header().Get("HX-Replace-Url")
	require.Contains(t, replace, "sortBy=price")
	require.Contains(t, replace, "sortOrder=asc")

	doc := parse(t, rec)
	first, ok := doc.Find("tr[data-product-id]").First().Attr("data-product-id")
	require.True(t, ok)
	require.Equal(t, "8", first, "cheapest product first")

	rec = h.do(http.MethodGet, "/admin/products/table?op=sort&field=price&sortBy=price&sortOrder=asc", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("HX-Replace-Url"), "sortOrder=desc")
	first, _ = parse(t, rec).Find("tr[data-product-id]").First().Attr("data-product-id")
	require.Equal(t, "9", first, "most expensive product first")
}

func TestProductsTableFilterByTag(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/admin/products/table?op=filter&tag="+url.QueryEscape(catalog.StatusLowStock), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("HX-Replace-Url"), "filters=")

	doc := parse(t, rec)
	require.Equal(t, 3, doc.Find("tr[data-product-id]").Length())
	doc.Find("tr[data-product-id] [data-status]").Each(func(_ int, s *goquery.Selection) {
		require.Equal(t, catalog.StatusLowStock, s.AttrOr("data-status", ""))
	})
}

func TestProductsTableClampsPageToLast(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/admin/products/table?page=9", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("HX-Replace-Url"), "page=3")
	require.Equal(t, 2, parse(t, rec).Find("tr[data-product-id]").Length())
}

func TestProductCreateRejectsMissingName(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	form := validProductForm(h.emptyAddSnapshot())
	form.Del("productName")
	rec := h.postForm(http.MethodPost, "/admin/products", form)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Header().Get("HX-Trigger"), "Product Name is required")
	require.Equal(t, 1, parse(t, rec).Find(`[data-field-error="productName"]`).Length())
}

func TestProductCreateRequiresAnImage(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.postForm(http.MethodPost, "/admin/products", validProductForm(h.emptyAddSnapshot()))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, 1, parse(t, rec).Find(`[data-field-error="images"]`).Length())
	require.Empty(t, h.uploads)
}

func TestProductMediaAddThenCreateUploadsStagedFiles(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	body, ct := mediaRequest(t, h.emptyAddSnapshot(), upload{name: "opal.png", data: pngBytes})
	rec := h.do(http.MethodPost, "/admin/products/media", body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parse(t, rec)
	require.Equal(t, 1, doc.Find("figure[data-pending]").Length())
	preview := doc.Find("figure[data-pending] img").AttrOr("src", "")
	require.True(t, strings.HasPrefix(preview, "/admin/media/staged/"), preview)

	rec = h.do(http.MethodGet, preview, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	snapshot := doc.Find(`input[name="media"]`).AttrOr("value", "")
	snap := h.openSnapshot(snapshot)
	require.Len(t, snap.Pending, 1)

	rec = h.postForm(http.MethodPost, "/admin/products", validProductForm(snapshot))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "/admin/products", rec.Header().Get("HX-Redirect"))
	require.Equal(t, []string{"opal.png"}, h.uploads)

	found, err := h.products.Search(context.Background(), "token", "Opal")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "https://cdn.test/images/opal.png", found[0].Images.FirstImg)
	require.Equal(t, "Ring", found[0].Category)

	_, err = h.staging.Get(context.Background(), snap.Pending[0].StagingID)
	require.ErrorIs(t, err, media.ErrStagedFileMissing)
}

func TestProductMediaAddKeepsOnlyFreeSlots(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	files := []upload{
		{name: "a.png", data: pngBytes},
		{name: "b.png", data: pngBytes},
		{name: "c.png", data: pngBytes},
		{name: "d.png", data: pngBytes},
	}
	body, ct := mediaRequest(t, h.emptyAddSnapshot(), files...)
	rec := h.do(http.MethodPost, "/admin/products/media", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("HX-Trigger"), "Only added 3 images")
	require.Equal(t, 3, parse(t, rec).Find("figure[data-pending]").Length())
}

func TestProductMediaAddRejectsNonImages(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	body, ct := mediaRequest(t, h.emptyAddSnapshot(), upload{name: "notes.txt", data: []byte("just some text")})
	rec := h.do(http.MethodPost, "/admin/products/media", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("HX-Trigger"), msgMediaNotImage)
	doc := parse(t, rec)
	require.Equal(t, 0, doc.Find("figure").Length())
	require.Equal(t, 1, doc.Find("[data-media-empty]").Length())
}

func TestProductMediaAddRejectsTamperedSnapshot(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	body, ct := mediaRequest(t, "not-a-snapshot", upload{name: "a.png", data: pngBytes})
	rec := h.do(http.MethodPost, "/admin/products/media", body, ct)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "none", rec.Header().Get("HX-Reswap"))
}

func TestProductMediaRemoveReleasesStagedFile(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	body, ct := mediaRequest(t, h.emptyAddSnapshot(), upload{name: "a.png", data: pngBytes})
	rec := h.do(http.MethodPost, "/admin/products/media", body, ct)
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := parse(t, rec).Find(`input[name="media"]`).AttrOr("value", "")
	snap := h.openSnapshot(snapshot)
	require.Len(t, snap.Pending, 1)

	rec = h.postForm(http.MethodPost, "/admin/products/media/remove?index=0", url.Values{"media": {snapshot}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, parse(t, rec).Find("[data-media-empty]").Length())

	_, err := h.staging.Get(context.Background(), snap.Pending[0].StagingID)
	require.ErrorIs(t, err, media.ErrStagedFileMissing)
}

func TestProductUpdateDetectsConcurrentEditBeforeUploading(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, snapshot := h.editPage("1")
	body, ct := mediaRequest(t, snapshot, upload{name: "late.png", data: pngBytes})
	rec := h.do(http.MethodPost, "/admin/products/media", body, ct)
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot = parse(t, rec).Find(`input[name="media"]`).AttrOr("value", "")
	require.Len(t, h.openSnapshot(snapshot).Pending, 1)

	form := validProductForm(snapshot)
	form.Set("lastModified", "2000-01-01T00:00:00.000Z")
	rec = h.postForm(http.MethodPut, "/admin/products/1", form)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Header().Get("HX-Trigger"), catalog.MsgProductConflict)
	require.Empty(t, h.uploads)

	stored, err := h.products.Get(context.Background(), "token", "1")
	require.NoError(t, err)
	require.Equal(t, "Solitaire Ring", stored.Name)
}

func TestProductEditThenUpdateMergesOntoStoredProduct(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	before, err := h.products.Get(context.Background(), "token", "1")
	require.NoError(t, err)
	lastModified, snapshot := h.editPage("1")
	require.Equal(t, before.LastModified, lastModified)

	form := validProductForm(snapshot)
	form.Set("lastModified", lastModified)
	rec := h.postForm(http.MethodPut, "/admin/products/1", form)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, h.uploads)

	after, err := h.products.Get(context.Background(), "token", "1")
	require.NoError(t, err)
	require.Equal(t, "Opal Ring", after.Name)
	require.Equal(t, before.Images, after.Images)
	require.Equal(t, before.Variants, after.Variants)
	require.Equal(t, before.Added, after.Added)
	require.NotEqual(t, before.LastModified, after.LastModified)
}

func TestProductUpdateRejectsForgedMediaSnapshot(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	before, err := h.products.Get(context.Background(), "token", "1")
	require.NoError(t, err)
	lastModified, _ := h.editPage("1")

	forger, err := media.NewSnapshotCodec([]byte("fedcba9876543210fedcba9876543210"), 0)
	require.NoError(t, err)
	m := media.NewManager(media.ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "https://evil.example/x.png"})
	forged, err := forger.Seal(media.Sealed{Owner: testUID, ProductID: "1", Snapshot: m.Snapshot()})
	require.NoError(t, err)

	form := validProductForm(forged)
	form.Set("lastModified", lastModified)
	rec := h.postForm(http.MethodPut, "/admin/products/1", form)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "none", rec.Header().Get("HX-Reswap"))
	require.Contains(t, rec.Header().Get("HX-Trigger"), msgMediaStale)

	after, err := h.products.Get(context.Background(), "token", "1")
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestProductUpdateRejectsSnapshotFromAnotherProduct(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	before, err := h.products.Get(context.Background(), "token", "1")
	require.NoError(t, err)
	lastModified, _ := h.editPage("1")
	_, otherSnapshot := h.editPage("2")

	form := validProductForm(otherSnapshot)
	form.Set("lastModified", lastModified)
	rec := h.postForm(http.MethodPut, "/admin/products/1", form)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	after, err := h.products.Get(context.Background(), "token", "1")
	require.NoError(t, err)
	require.Equal(t, before.Images, after.Images)
	require.Equal(t, "Solitaire Ring", after.Name)
}

func TestProductUpdateResetsMediaThatDiffersFromStoredImages(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	before, err := h.products.Get(context.Background(), "token", "1")
	require.NoError(t, err)
	lastModified, _ := h.editPage("1")

	m := media.NewManager(media.ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "https://evil.example/x.png"})
	form := validProductForm(h.seal("1", m))
	form.Set("lastModified", lastModified)
	rec := h.postForm(http.MethodPut, "/admin/products/1", form)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Header().Get("HX-Trigger"), msgMediaChanged)

	doc := parse(t, rec)
	tiles := doc.Find("figure[data-media-slot] img")
	require.Equal(t, 2, tiles.Length())
	require.Equal(t, before.Images.FirstImg, tiles.Eq(0).AttrOr("src", ""))
	reset := h.openSnapshot(doc.Find(`input[name="media"]`).AttrOr("value", ""))
	require.Equal(t, before.Images, reset.Existing)

	after, err := h.products.Get(context.Background(), "token", "1")
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Empty(t, h.uploads)
}

func TestProductEditRedirectsWhenMissing(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/products/999/edit", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin/products", rec.Header().Get("Location"))
}

func TestCategoryUpdateWithoutChangesSkipsSave(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	before, err := h.categories.Get(context.Background(), "token", "1")
	require.NoError(t, err)

	form := url.Values{"name": {before.Name}, "description": {before.Description}, "status": {before.Status}}
	rec := h.postForm(http.MethodPut, "/admin/categories/1", form)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "/admin/categories", rec.Header().Get("HX-Redirect"))
	require.Empty(t, h.uploads)
}

func TestCategoriesExportHonoursSearch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/admin/categories/export.csv?search=ring", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Equal(t, strings.Join(categoryCSVHeader, ","), strings.TrimSpace(lines[0]))
	require.Len(t, lines, 3, "Ring and Earring match")
}
