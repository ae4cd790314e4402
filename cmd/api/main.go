package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/automaton-filecheck/internal/application"
	appanalyst "github.com/bryanwahyu/automaton-filecheck/internal/application/analyst"
	appfilecheck "github.com/bryanwahyu/automaton-filecheck/internal/application/filecheck"
	"github.com/bryanwahyu/automaton-filecheck/internal/config"
	domanalyst "github.com/bryanwahyu/automaton-filecheck/internal/domain/analyst"
	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
	openaiclient "github.com/bryanwahyu/automaton-filecheck/internal/infra/ai/openai"
	"github.com/bryanwahyu/automaton-filecheck/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/automaton-filecheck/internal/infra/db/mysql"
	"github.com/bryanwahyu/automaton-filecheck/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-filecheck/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-filecheck/internal/infra/intelix"
	"github.com/bryanwahyu/automaton-filecheck/internal/infra/storage"
	"github.com/bryanwahyu/automaton-filecheck/internal/logging"
	"github.com/bryanwahyu/automaton-filecheck/internal/middleware"
	"github.com/bryanwahyu/automaton-filecheck/internal/observability"
)

type objectStore interface {
	domain.ObjectStore
	middleware.Pinger
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load error", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log.Level)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("filecheck daemon stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := context.Background()

	tracing, err := observability.New(ctx, observability.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		Environment:  cfg.Tracing.Environment,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		Insecure:     cfg.Tracing.Insecure,
		SampleRate:   cfg.Tracing.SampleRate,
		BatchTimeout: cfg.Tracing.BatchTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("tracing init: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			log.Warn("tracing shutdown error", "err", err)
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}

	checkers := map[string]middleware.HealthChecker{
		"storage": &middleware.StorageHealthChecker{Store: store, Bucket: cfg.Storage.OutputBucket},
	}

	var (
		classRepo   domain.Repository
		analystRepo domanalyst.Repository
	)
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	switch {
	case db == nil:
		classRepo = memory.NewClassificationRepository(1000)
		analystRepo = memory.NewAnalystRepository()
	case cfg.Database.Driver == "postgres":
		defer db.Close()
		classRepo = postgres.NewClassificationRepository(db)
		analystRepo = postgres.NewAnalystRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		defer db.Close()
		classRepo = mysqlp.NewClassificationRepository(db)
		analystRepo = mysqlp.NewAnalystRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	httpClient := &http.Client{Timeout: cfg.Intelix.HTTPTimeout}
	session := intelix.NewSession(cfg.Intelix.Credentials, cfg.Intelix.AuthURL, httpClient)
	analyzer := intelix.NewClient(session, httpClient, intelix.Config{
		LookupURL:    cfg.Intelix.LookupURL,
		StaticURL:    cfg.Intelix.StaticURL,
		DynamicURL:   cfg.Intelix.DynamicURL,
		PollInterval: cfg.Intelix.PollInterval,
		MaxPolls:     cfg.Intelix.MaxPolls,
	}, intelix.WithLogger(log))

	svc := &appfilecheck.Service{
		Engine: &appfilecheck.Engine{
			Analyzer: analyzer,
			Logger:   log,
			Tracer:   tracing.Tracer(appfilecheck.TracerName),
		},
		Router:  &appfilecheck.VerdictRouter{Store: store, OutputBucket: cfg.Storage.OutputBucket},
		Store:   store,
		Repo:    classRepo,
		Clock:   application.SystemClock{},
		Logger:  log,
		TempDir: cfg.Storage.TempDir,
	}

	var explainer httpserver.Analyst
	if cfg.OpenAI.APIKey != "" {
		ai := openaiclient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		if cfg.OpenAI.BaseURL != "" {
			ai = openaiclient.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		}
		explainer = &appanalyst.Service{
			Client:          ai,
			Repo:            analystRepo,
			Classifications: classRepo,
			Clock:           application.SystemClock{},
		}
	}

	api := httpserver.NewRouter(svc, explainer, httpserver.Options{
		APIKeys:        cfg.Server.APIKeys,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   cfg.Server.RateLimit.RPS,
		RateLimitBurst: cfg.Server.RateLimit.Burst,
		HealthCheckers: checkers,
		Logger:         log,
	})

	mux := chi.NewRouter()
	mux.Mount("/", api)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr, "storage", cfg.Storage.Driver, "database", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("shutdown error", "err", err)
	}
	if err := api.Wait(ctx2); err != nil {
		log.Warn("classifications still running at exit", "err", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (objectStore, error) {
	s := cfg.Storage
	if s.Driver == "s3" {
		return storage.NewS3(ctx, storage.S3StoreConfig{
			Region:    s.Region,
			Endpoint:  s.Endpoint,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
		})
	}
	return storage.NewMinio(ctx, s.Endpoint, s.Region, s.AccessKey, s.SecretKey, s.UseSSL, s.OutputBucket)
}

// openDatabase returns nil when no driver is configured.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, nil
	}
}
