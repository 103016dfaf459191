package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(WithLookup(envMap(nil)))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, "/admin", cfg.HTTP.BasePath)
	require.Equal(t, BackendStatic, cfg.Catalog.Backend)
	require.Equal(t, 6, cfg.Catalog.PageSize)
	require.Equal(t, UploaderNone, cfg.Media.Uploader)
	require.Equal(t, 30*time.Minute, cfg.Media.StagingTTL)
	require.Equal(t, "products", cfg.Firestore.ProductsCollection)
	require.InDelta(t, 2.0, cfg.RateLimit.UploadsPerSecond, 0.001)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := Load(WithLookup(envMap(map[string]string{
		"ADMIN_CATALOG_BACKEND":        "HTTP",
		"ADMIN_CATALOG_PRODUCTS_URL":   "https://api.example.com/product",
		"ADMIN_CATALOG_CATEGORIES_URL": "https://api.example.com/cate",
		"ADMIN_CATALOG_PAGE_SIZE":      "12",
		"ADMIN_MEDIA_STAGING_TTL":      "5m",
		"ADMIN_FIREBASE_PROJECT_ID":    "demo-project",
	})))
	require.NoError(t, err)
	require.Equal(t, BackendHTTP, cfg.Catalog.Backend)
	require.Equal(t, 12, cfg.Catalog.PageSize)
	require.Equal(t, 5*time.Minute, cfg.Media.StagingTTL)
	require.Equal(t, "demo-project", cfg.Firestore.ProjectID, "firestore project falls back to firebase project")
}

func TestLoadFileThenEnvironment(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "admin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  base_path: /console
media:
  uploader: gcs
  bucket: catalog-images
`), 0o600))

	cfg, err := Load(WithFile(path), WithLookup(envMap(map[string]string{
		"ADMIN_HTTP_BASE_PATH": "/ops",
	})))
	require.NoError(t, err)
	require.Equal(t, "/ops", cfg.HTTP.BasePath)
	require.Equal(t, UploaderGCS, cfg.Media.Uploader)
	require.Equal(t, "catalog-images", cfg.Media.Bucket)
}

func TestLoadRejectsInconsistentSettings(t *testing.T) {
	t.Parallel()

	_, err := Load(WithLookup(envMap(map[string]string{
		"ADMIN_CATALOG_BACKEND":  "http",
		"ADMIN_MEDIA_UPLOADER":   "gcs",
		"ADMIN_SESSION_HASH_KEY": "short",
	})))
	require.Error(t, err)
	require.ErrorContains(t, err, "catalog.products_url is required")
	require.ErrorContains(t, err, "media.bucket is required")
	require.ErrorContains(t, err, "session.hash_key")

	_, err = Load(WithLookup(envMap(map[string]string{"ADMIN_CATALOG_BACKEND": "sqlite"})))
	require.ErrorContains(t, err, `unknown catalog.backend "sqlite"`)

	_, err = Load(WithFile(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
}
