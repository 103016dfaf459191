package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHTTPUploaderPostsMultipart(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "catalog", r.FormValue("upload_preset"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "pixels", string(data))
		require.Equal(t, "ring.png", header.Filename)
		_ = json.NewEncoder(w).Encode(map[string]string{"secure_url": "https://cdn.example.com/ring.png"})
	}))
	t.Cleanup(ts.Close)

	u, err := NewHTTPUploader(ts.URL, "catalog", ts.Client())
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), "ring.png", "image/png", strings.NewReader("pixels"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/ring.png", url)
}

func TestHTTPUploaderReportsFailure(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(ts.Close)

	u, err := NewHTTPUploader(ts.URL, "", ts.Client())
	require.NoError(t, err)
	_, err = u.Upload(context.Background(), "ring.png", "image/png", strings.NewReader("x"))
	require.ErrorContains(t, err, "quota exceeded")
}

func TestUploadAllKeepsOrder(t *testing.T) {
	t.Parallel()

	staging := NewMemoryStagingStore(time.Minute)
	ctx := context.Background()
	var pending []File
	for _, name := range []string{"a", "b", "c"} {
		id, err := staging.Put(ctx, []byte(name))
		require.NoError(t, err)
		pending = append(pending, File{StagingID: id, Name: name + ".png"})
	}

	uploader := UploaderFunc(func(_ context.Context, name, _ string, body io.Reader) (string, error) {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		if name == "a.png" {
			time.Sleep(10 * time.Millisecond)
		}
		return "https://cdn/" + string(data), nil
	})

	urls, err := UploadAll(ctx, uploader, staging, pending)
	require.NoError(t, err)
	require.Equal(t, []string{"https://cdn/a", "https://cdn/b", "https://cdn/c"}, urls)
}

func TestUploadAllStopsOnFailure(t *testing.T) {
	t.Parallel()

	staging := NewMemoryStagingStore(time.Minute)
	ctx := context.Background()
	id, err := staging.Put(ctx, []byte("a"))
	require.NoError(t, err)

	var calls atomic.Int32
	boom := errors.New("boom")
	uploader := UploaderFunc(func(context.Context, string, string, io.Reader) (string, error) {
		calls.Add(1)
		return "", boom
	})

	_, err = UploadAll(ctx, uploader, staging, []File{{StagingID: id, Name: "a.png"}, {StagingID: "missing", Name: "b.png"}})
	require.Error(t, err)
}

func TestMemoryStagingStoreExpires(t *testing.T) {
	t.Parallel()

	store := NewMemoryStagingStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	id, err := store.Put(context.Background(), []byte("data"))
	require.NoError(t, err)
	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "data", string(got))

	now = now.Add(2 * time.Minute)
	_, err = store.Get(context.Background(), id)
	require.ErrorIs(t, err, ErrStagedFileMissing)

	require.NoError(t, store.Delete(context.Background(), id, "unknown"))
}

func TestObjectNameKeepsExtension(t *testing.T) {
	t.Parallel()

	name := ObjectName("products", `C:\photos\Ring.JPG`)
	require.True(t, strings.HasPrefix(name, "products/"))
	require.True(t, strings.HasSuffix(name, ".jpg"))
	require.NotEqual(t, name, ObjectName("products", "Ring.JPG"))
}
