package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. ADMIN_HTTP_ADDRESS.
const EnvPrefix = "ADMIN"

// Catalog backends.
const (
	BackendStatic    = "static"
	BackendHTTP      = "http"
	BackendFirestore = "firestore"
)

// Image uploaders.
const (
	UploaderNone = "none"
	UploaderGCS  = "gcs"
	UploaderHTTP = "http"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	Catalog     CatalogConfig   `mapstructure:"catalog"`
	Firebase    FirebaseConfig  `mapstructure:"firebase"`
	Firestore   FirestoreConfig `mapstructure:"firestore"`
	Media       MediaConfig     `mapstructure:"media"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Session     SessionConfig   `mapstructure:"session"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// HTTPConfig configures the listener and route prefix.
type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	BasePath        string        `mapstructure:"base_path"`
	LoginPath       string        `mapstructure:"login_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CatalogConfig selects and configures the product/category backend.
type CatalogConfig struct {
	Backend        string        `mapstructure:"backend"`
	ProductsURL    string        `mapstructure:"products_url"`
	CategoriesURL  string        `mapstructure:"categories_url"`
	PageSize       int           `mapstructure:"page_size"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// FirebaseConfig enables Firebase ID token verification when ProjectID is set.
type FirebaseConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

// FirestoreConfig configures the Firestore catalog backend.
type FirestoreConfig struct {
	ProjectID            string `mapstructure:"project_id"`
	ProductsCollection   string `mapstructure:"products_collection"`
	CategoriesCollection string `mapstructure:"categories_collection"`
}

// MediaConfig configures image hosting and the staging of pending uploads.
type MediaConfig struct {
	Uploader       string        `mapstructure:"uploader"`
	Bucket         string        `mapstructure:"bucket"`
	Prefix         string        `mapstructure:"prefix"`
	PublicURL      string        `mapstructure:"public_url"`
	UploadEndpoint string        `mapstructure:"upload_endpoint"`
	UploadPreset   string        `mapstructure:"upload_preset"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	StagingTTL     time.Duration `mapstructure:"staging_ttl"`
}

// RedisConfig enables the Redis staging store when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	CookieName  string        `mapstructure:"cookie_name"`
	HashKey     string        `mapstructure:"hash_key"`
	BlockKey    string        `mapstructure:"block_key"`
	Secure      bool          `mapstructure:"secure"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// RateLimitConfig bounds image uploads per client.
type RateLimitConfig struct {
	UploadsPerSecond float64 `mapstructure:"uploads_per_second"`
	UploadBurst      int     `mapstructure:"upload_burst"`
}

var defaults = map[string]any{
	"environment":                     "Development",
	"log_level":                       "info",
	"http.address":                    ":8080",
	"http.base_path":                  "/admin",
	"http.login_path":                 "",
	"http.shutdown_timeout":           10 * time.Second,
	"catalog.backend":                 BackendStatic,
	"catalog.products_url":            "",
	"catalog.categories_url":          "",
	"catalog.page_size":               6,
	"catalog.request_timeout":         10 * time.Second,
	"firebase.project_id":             "",
	"firestore.project_id":            "",
	"firestore.products_collection":   "products",
	"firestore.categories_collection": "categories",
	"media.uploader":                  UploaderNone,
	"media.bucket":                    "",
	"media.prefix":                    "catalog",
	"media.public_url":                "",
	"media.upload_endpoint":           "",
	"media.upload_preset":             "",
	"media.max_upload_bytes":          int64(10 << 20),
	"media.staging_ttl":               30 * time.Minute,
	"redis.addr":                      "",
	"redis.password":                  "",
	"redis.db":                        0,
	"redis.prefix":                    "catalog-admin:staging:",
	"session.cookie_name":             "catalog_admin_session",
	"session.hash_key":                "",
	"session.block_key":               "",
	"session.secure":                  false,
	"session.idle_timeout":            30 * time.Minute,
	"rate_limit.uploads_per_second":   2.0,
	"rate_limit.upload_burst":         6,
}

// Option customises Load.
type Option func(*loadOptions)

type loadOptions struct {
	file   string
	lookup func(string) (string, bool)
}

// WithFile reads settings from a YAML/JSON/TOML file before applying the environment.
func WithFile(path string) Option {
	return func(o *loadOptions) { o.file = strings.TrimSpace(path) }
}

// WithLookup replaces the environment lookup. Tests use it to avoid touching process state.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) { o.lookup = lookup }
}

// Load resolves configuration from defaults, an optional file, and ADMIN_* environment
// variables, in increasing precedence.
func Load(opts ...Option) (Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if o.file != "" {
		v.SetConfigFile(o.file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", o.file, err)
		}
	}

	replacer := strings.NewReplacer(".", "_")
	if o.lookup != nil {
		for key := range defaults {
			env := EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))
			if val, ok := o.lookup(env); ok {
				v.Set(key, val)
			}
		}
	} else {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(replacer)
		v.AutomaticEnv()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalise() {
	c.Catalog.Backend = strings.ToLower(strings.TrimSpace(c.Catalog.Backend))
	c.Media.Uploader = strings.ToLower(strings.TrimSpace(c.Media.Uploader))
	if c.Media.Uploader == "" {
		c.Media.Uploader = UploaderNone
	}
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = 6
	}
	if c.Firestore.ProjectID == "" {
		c.Firestore.ProjectID = c.Firebase.ProjectID
	}
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Catalog.Backend {
	case BackendStatic:
	case BackendHTTP:
		if err := requireURL("catalog.products_url", c.Catalog.ProductsURL); err != nil {
			errs = append(errs, err)
		}
		if err := requireURL("catalog.categories_url", c.Catalog.CategoriesURL); err != nil {
			errs = append(errs, err)
		}
	case BackendFirestore:
		if strings.TrimSpace(c.Firestore.ProjectID) == "" {
			errs = append(errs, errors.New("config: firestore.project_id is required for the firestore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown catalog.backend %q", c.Catalog.Backend))
	}

	switch c.Media.Uploader {
	case UploaderNone:
	case UploaderGCS:
		if strings.TrimSpace(c.Media.Bucket) == "" {
			errs = append(errs, errors.New("config: media.bucket is required for the gcs uploader"))
		}
	case UploaderHTTP:
		if err := requireURL("media.upload_endpoint", c.Media.UploadEndpoint); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown media.uploader %q", c.Media.Uploader))
	}

	if key := c.Session.HashKey; key != "" && len(key) < 32 {
		errs = append(errs, errors.New("config: session.hash_key must be at least 32 bytes"))
	}
	switch len(c.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		errs = append(errs, errors.New("config: session.block_key must be 16, 24 or 32 bytes"))
	}
	if c.RateLimit.UploadsPerSecond < 0 || c.RateLimit.UploadBurst < 0 {
		errs = append(errs, errors.New("config: rate limits must not be negative"))
	}
	return errors.Join(errs...)
}

func requireURL(name, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("config: %s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: %s must be an absolute URL", name)
	}
	return nil
}
