package httpserver_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	"finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/testutil"
)

const csrfToken = "test-csrf-token"

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestDashboardRedirectsWithoutAuth(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(ts.URL + "/admin")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/login?next=%2Fadmin", resp.Header.Get("Location"))
}

func TestDashboardRendersForAuthenticatedUser(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	resp := do(t, auth, http.MethodGet, ts.URL+"/admin", nil, "", false)
	require.Equal(t, http.StatusOK, resp.status)

	doc := testutil.ParseHTML(t, resp.body)

	require.Equal(t, "Dashboard · Catalog Admin", doc.Find("title").First().Text())
	require.Equal(t, "Dashboard", doc.Find("h1").First().Text())
	require.Greater(t, doc.Find("[data-kpi]").Length(), 0, "dashboard should render metric cards")
	require.Equal(t, 1, doc.Find(`[data-menu-item="products"]`).Length())
}

func TestLoginPageIsPublic(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)

	resp, err := http.Get(ts.URL + "/admin/login")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, 1, doc.Find(`input[name="_csrf"]`).Length())
}

func TestProductsPageRendersFirstPage(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	resp := do(t, auth, http.MethodGet, ts.URL+"/admin/products", nil, "", false)
	require.Equal(t, http.StatusOK, resp.status)

	doc := testutil.ParseHTML(t, resp.body)
	require.Equal(t, "Product List · Catalog Admin", doc.Find("title").First().Text())
	require.Equal(t, 6, doc.Find("tr[data-product-id]").Length())
	require.Equal(t, 1, doc.Find("[data-pagination]").Length())
	require.Equal(t, 4, doc.Find("[data-tag-filter] [data-tag]").Length())
}

func TestProductsTableSearchMirrorsURL(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	resp := do(t, auth, http.MethodGet, ts.URL+"/admin/products/table?op=search&search=watch", nil, "", true)
	require.Equal(t, http.StatusOK, resp.status)

	replace := resp.header.Get("HX-Replace-Url")
	require.True(t, strings.HasPrefix(replace, "/admin/products?"), replace)
	require.Contains(t, replace, "search=watch")
	require.NotContains(t, replace, "op=")

	doc := testutil.ParseHTML(t, resp.body)
	rows := doc.Find("tr[data-product-id]")
	require.Equal(t, 2, rows.Length())
}

func TestProductsTableIgnoresShortQuery(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	resp := do(t, auth, http.MethodGet, ts.URL+"/admin/products/table?op=search&search=w", nil, "", true)
	require.Equal(t, http.StatusNoContent, resp.status)
	require.Empty(t, resp.header.Get("HX-Replace-Url"))
}

func TestProductsTableRequiresHTMX(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	resp := do(t, auth, http.MethodGet, ts.URL+"/admin/products/table", nil, "", false)
	require.Equal(t, http.StatusNotFound, resp.status)
}

func TestProductDeleteReturnsRefreshedTable(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	resp := do(t, auth, http.MethodDelete, ts.URL+"/admin/products/1", nil, "", true)
	require.Equal(t, http.StatusOK, resp.status)
	require.Contains(t, resp.header.Get("HX-Trigger"), catalog.MsgProductDeleted)

	doc := testutil.ParseHTML(t, resp.body)
	require.Equal(t, 0, doc.Find(`tr[data-product-id="1"]`).Length())
	require.Equal(t, 6, doc.Find("tr[data-product-id]").Length())
}

func TestProductDeleteRejectsMissingCSRF(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/admin/products/1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	req.Header.Set("HX-Request", "true")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestViewerCannotDeleteProducts(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "viewer-token", Roles: []string{"viewer"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	resp := do(t, auth, http.MethodDelete, ts.URL+"/admin/products/1", nil, "", true)
	require.Equal(t, http.StatusForbidden, resp.status)

	resp = do(t, auth, http.MethodGet, ts.URL+"/admin/products", nil, "", false)
	require.Equal(t, http.StatusOK, resp.status)
}

func TestProductsExportWritesCSV(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	query := url.Values{"filters": {`{"tag":"Draft"}`}}
	resp := do(t, auth, http.MethodGet, ts.URL+"/admin/products/export.csv?"+query.Encode(), nil, "", false)
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, "text/csv; charset=utf-8", resp.header.Get("Content-Type"))
	require.Contains(t, resp.header.Get("Content-Disposition"), `filename="products-`)

	records, err := csv.NewReader(bytes.NewReader(resp.body)).ReadAll()
	require.NoError(t, err)
	require.Equal(t, "id", records[0][0])
	require.Len(t, records, 4, "header plus the three draft products")
	for _, rec := range records[1:] {
		require.Equal(t, catalog.StatusDraft, rec[6])
	}
}

func TestCategoryCreateRequiresImage(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	form := url.Values{"name": {"Brooch"}, "description": {"Pins and brooches"}, "status": {catalog.StatusPublished}}
	resp := do(t, auth, http.MethodPost, ts.URL+"/admin/categories", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.status)
	require.Contains(t, resp.header.Get("HX-Trigger"), "Please select an image")

	doc := testutil.ParseHTML(t, resp.body)
	require.Equal(t, 1, doc.Find(`[data-field-error="image"]`).Length())
}

func TestCategoryCreateUploadsImageAndRedirects(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token"}
	categories := catalog.NewStaticCategories()
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth), testutil.WithCategoryService(categories))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Brooch"))
	require.NoError(t, mw.WriteField("description", "Pins and brooches"))
	require.NoError(t, mw.WriteField("status", catalog.StatusPublished))
	part, err := mw.CreateFormFile("image", "brooch.png")
	require.NoError(t, err)
	_, err = part.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp := do(t, auth, http.MethodPost, ts.URL+"/admin/categories", &body, mw.FormDataContentType(), true)
	require.Equal(t, http.StatusNoContent, resp.status)
	require.Equal(t, "/admin/categories", resp.header.Get("HX-Redirect"))

	found, err := categories.Search(context.Background(), auth.Token, "brooch")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "https://cdn.test/images/brooch.png", found[0].Image)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do sends an authenticated request carrying a valid CSRF pair.
func do(t *testing.T, auth *tokenAuthenticator, method, target string, body io.Reader, contentType string, htmx bool) response {
	t.Helper()

	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: csrfToken})
	req.Header.Set("X-CSRF-Token", csrfToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: data}
}

type tokenAuthenticator struct {
	Token string
	Roles []string
}

func (t *tokenAuthenticator) Authenticate(_ *http.Request, token string) (*middleware.User, error) {
	if token != t.Token {
		return nil, middleware.ErrUnauthorized
	}
	roles := t.Roles
	if len(roles) == 0 {
		roles = []string{"admin"}
	}
	return &middleware.User{
		UID:   "tester",
		Email: "tester@example.com",
		Token: token,
		Roles: roles,
	}, nil
}
