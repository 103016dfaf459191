package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	"finitefield.org/catalog-admin/internal/admin/config"
	"finitefield.org/catalog-admin/internal/admin/httpserver"
	"finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/media"
	"finitefield.org/catalog-admin/internal/admin/observability"
	"finitefield.org/catalog-admin/internal/admin/restapi"
	appsession "finitefield.org/catalog-admin/internal/admin/session"
)

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(config.WithFile(*configFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, !strings.EqualFold(cfg.Environment, "production"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("admin server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	rootCtx := context.Background()
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close dependency", zap.Error(err))
			}
		}
	}()

	products, categories, closer, err := buildCatalog(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	uploader, closer, err := buildUploader(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	staging, closer, err := buildStaging(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	sessions, err := buildSessions(cfg, logger)
	if err != nil {
		return err
	}

	srvCfg := httpserver.Config{
		Address:          cfg.HTTP.Address,
		BasePath:         cfg.HTTP.BasePath,
		LoginPath:        cfg.HTTP.LoginPath,
		Environment:      cfg.Environment,
		Authenticator:    buildAuthenticator(rootCtx, cfg, logger),
		CSRFCookieSecure: cfg.Session.Secure,
		Logger:           logger,
		SessionStore:     sessions,
		Products:         products,
		Categories:       categories,
		Uploader:         uploader,
		Staging:          staging,
		SnapshotKey:      []byte(cfg.Session.HashKey),
		PageSize:         cfg.Catalog.PageSize,
		MaxUploadBytes:   cfg.Media.MaxUploadBytes,
		UploadsPerSecond: cfg.RateLimit.UploadsPerSecond,
		UploadBurst:      cfg.RateLimit.UploadBurst,
	}

	srv := httpserver.New(srvCfg)

	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("admin server listening",
		zap.String("address", srvCfg.Address),
		zap.String("base_path", srvCfg.BasePath),
		zap.String("catalog_backend", cfg.Catalog.Backend),
		zap.String("uploader", cfg.Media.Uploader),
	)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("admin server stopped")
	return nil
}

func buildCatalog(ctx context.Context, cfg config.Config, logger *zap.Logger) (catalog.ProductService, catalog.CategoryService, io.Closer, error) {
	switch cfg.Catalog.Backend {
	case config.BackendHTTP:
		client := &http.Client{Timeout: cfg.Catalog.RequestTimeout}
		productStore, err := restapi.New[catalog.Product](cfg.Catalog.ProductsURL, client)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("products endpoint: %w", err)
		}
		categoryStore, err := restapi.New[catalog.Category](cfg.Catalog.CategoriesURL, client)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("categories endpoint: %w", err)
		}
		logger.Info("catalog backend: rest", zap.String("products", productStore.BaseURL()), zap.String("categories", categoryStore.BaseURL()))
		return catalog.NewProducts(productStore), catalog.NewCategories(categoryStore), nil, nil
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		logger.Info("catalog backend: firestore", zap.String("project", cfg.Firestore.ProjectID))
		return catalog.NewFirestoreProducts(client, cfg.Firestore.ProductsCollection),
			catalog.NewFirestoreCategories(client, cfg.Firestore.CategoriesCollection),
			client, nil
	default:
		logger.Info("catalog backend: static sample data")
		return catalog.NewStaticProducts(), catalog.NewStaticCategories(), nil, nil
	}
}

func buildUploader(ctx context.Context, cfg config.Config, logger *zap.Logger) (media.Uploader, io.Closer, error) {
	switch cfg.Media.Uploader {
	case config.UploaderGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("storage client: %w", err)
		}
		uploader, err := media.NewGCSUploader(client, cfg.Media.Bucket, cfg.Media.Prefix, cfg.Media.PublicURL)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return uploader, client, nil
	case config.UploaderHTTP:
		uploader, err := media.NewHTTPUploader(cfg.Media.UploadEndpoint, cfg.Media.UploadPreset, &http.Client{Timeout: 30 * time.Second})
		if err != nil {
			return nil, nil, err
		}
		return uploader, nil, nil
	default:
		logger.Warn("no image uploader configured; image uploads will fail")
		return nil, nil, nil
	}
}

func buildStaging(ctx context.Context, cfg config.Config, logger *zap.Logger) (media.StagingStore, io.Closer, error) {
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return media.NewMemoryStagingStore(cfg.Media.StagingTTL), nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	store, err := media.NewRedisStagingStore(rdb, cfg.Redis.Prefix, cfg.Media.StagingTTL)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	logger.Info("upload staging: redis", zap.String("addr", cfg.Redis.Addr))
	return store, rdb, nil
}

func buildSessions(cfg config.Config, logger *zap.Logger) (*appsession.Manager, error) {
	hashKey := []byte(cfg.Session.HashKey)
	blockKey := []byte(cfg.Session.BlockKey)
	if len(hashKey) == 0 {
		logger.Warn("session hash key not set; generating an ephemeral key")
		hashKey = securecookie.GenerateRandomKey(32)
		if len(blockKey) == 0 {
			blockKey = securecookie.GenerateRandomKey(32)
		}
	}
	return appsession.NewManager(appsession.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookiePath:   "/",
		CookieSecure: cfg.Session.Secure,
		IdleTimeout:  cfg.Session.IdleTimeout,
	})
}

func buildAuthenticator(ctx context.Context, cfg config.Config, logger *zap.Logger) middleware.Authenticator {
	projectID := cfg.Firebase.ProjectID
	if projectID == "" {
		logger.Warn("firebase project not set; using passthrough authenticator")
		return nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: projectID,
	})
	if err != nil {
		logger.Error("failed to initialise Firebase app", zap.Error(err))
		return nil
	}

	client, err := app.Auth(ctx)
	if err != nil {
		logger.Error("failed to initialise Firebase auth client", zap.Error(err))
		return nil
	}

	logger.Info("Firebase authenticator enabled", zap.String("project", projectID))
	return middleware.NewFirebaseAuthenticator(client)
}
