package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/geo-classifier/internal/application"
	"github.com/bryanwahyu/geo-classifier/internal/application/analysis"
	"github.com/bryanwahyu/geo-classifier/internal/config"
	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
	"github.com/bryanwahyu/geo-classifier/internal/infra/ai"
	mysqlp "github.com/bryanwahyu/geo-classifier/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/geo-classifier/internal/infra/db/postgres"
	"github.com/bryanwahyu/geo-classifier/internal/infra/document"
	"github.com/bryanwahyu/geo-classifier/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/geo-classifier/internal/infra/storage"
	"github.com/bryanwahyu/geo-classifier/internal/logger"
	"github.com/bryanwahyu/geo-classifier/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode logs err and flushes the logger; os.Exit skips deferred calls.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	inference, err := ai.NewInference(cfg)
	if err != nil {
		return err
	}

	// history database (opsional)
	repo, db, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect error: %w", cfg.Database.Driver, err)
	}
	if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	svc := &analysis.Service{
		Inference: inference,
		Provider:  cfg.Inference.Provider,
		Extractor: document.NewExtractor(),
		Repo:      repo,
		Clock:     application.SystemClock{},
		Log:       log,
		Timeout:   cfg.Inference.Timeout,
	}

	// arsip dokumen di MinIO (opsional)
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init error: %w", err)
		}
		svc.Documents = store
		checkers["storage"] = store
	}

	metrics := middleware.NewMetrics()
	svc.Metrics = metrics

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate)
	defer limiter.Stop()

	handler := httpserver.NewRouter(httpserver.Options{
		Service:        svc,
		Metrics:        metrics,
		Checkers:       checkers,
		APIKeys:        cfg.Server.APIKeys,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimiter:    limiter,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Log:            log,
	})

	// WriteTimeout covers the inference call plus the response.
	writeTimeout := 2 * time.Minute
	if cfg.Inference.Timeout > 0 {
		writeTimeout = cfg.Inference.Timeout + 15*time.Second
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", addr),
			zap.String("provider", cfg.Inference.Provider),
			zap.String("database", cfg.Database.Driver),
			zap.Bool("minio", cfg.Minio.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config) (geo.Repository, *sql.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return mysqlp.NewAnalysisRepository(db), db, nil
	case config.DriverPostgres:
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		if err := pgp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return pgp.NewAnalysisRepository(db), db, nil
	default:
		return nil, nil, nil
	}
}
