package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appsession "finitefield.org/catalog-admin/internal/admin/session"
)

type sessionTestClock struct {
	now time.Time
}

func (c *sessionTestClock) Now() time.Time {
	return c.now
}

func newSessionStoreForTest(t *testing.T, clock *sessionTestClock) *appsession.Manager {
	t.Helper()
	httpOnly := true
	store, err := appsession.NewManager(appsession.Config{
		CookieName:       "test_session",
		HashKey:          []byte("12345678901234567890123456789012"),
		BlockKey:         []byte("abcdefghijklmnopqrstuvwxyzABCDEF"),
		CookiePath:       "/admin",
		CookieHTTPOnly:   &httpOnly,
		IdleTimeout:      5 * time.Minute,
		Lifetime:         time.Hour,
		RememberLifetime: 24 * time.Hour,
		Now:              clock.Now,
	})
	require.NoError(t, err)
	return store
}

func TestSessionMiddlewareLifecycle(t *testing.T) {
	clock := &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)}
	store := newSessionStoreForTest(t, clock)

	var ids []string
	handler := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok, "session missing in context")
		ids = append(ids, sess.ID())
		w.WriteHeader(http.StatusOK)
	}))

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Len(t, ids, 1)
	require.NotEmpty(t, ids[0])
	cookie := findCookie(rec1.Result().Cookies(), "test_session")
	require.NotNil(t, cookie, "expected session cookie on first response")

	clock.now = clock.now.Add(2 * time.Minute)
	req2 := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req2.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), req2)
	require.Len(t, ids, 2)
	require.Equal(t, ids[0], ids[1], "expected same session id between active requests")

	clock.now = clock.now.Add(15 * time.Minute)
	req3 := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req3.AddCookie(cookie)
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)
	require.Len(t, ids, 3)
	require.NotEqual(t, ids[1], ids[2], "expected new session id after idle timeout")
	require.NotEmpty(t, rec3.Header().Get("Set-Cookie"))
}

func TestSessionMiddlewarePersistsFlashSetBeforeWrite(t *testing.T) {
	clock := &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)}
	store := newSessionStoreForTest(t, clock)

	save := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		sess.SetFlash(`Category "Rings" created`, ToneSuccess)
		http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
	}))
	rec := httptest.NewRecorder()
	save.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/categories", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	require.NotNil(t, cookie)

	var popped []appsession.Flash
	read := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		if flash, ok := sess.PopFlash(); ok {
			popped = append(popped, flash)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/categories", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	read.ServeHTTP(rec, req)
	require.Len(t, popped, 1)
	require.Equal(t, `Category "Rings" created`, popped[0].Message)
	require.Equal(t, ToneSuccess, popped[0].Tone)

	next := findCookie(rec.Result().Cookies(), "test_session")
	require.NotNil(t, next, "consumed flash rewrites the cookie")
	req = httptest.NewRequest(http.MethodGet, "/admin/categories", nil)
	req.AddCookie(next)
	read.ServeHTTP(httptest.NewRecorder(), req)
	require.Len(t, popped, 1, "flash is shown once")
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
