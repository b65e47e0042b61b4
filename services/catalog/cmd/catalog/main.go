package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/sweet_shop/pkg/authclient"
	pkgdb "github.com/Skotchmaster/sweet_shop/pkg/db"
	"github.com/Skotchmaster/sweet_shop/pkg/events"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	loggingmw "github.com/Skotchmaster/sweet_shop/pkg/middleware/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/middleware/metrics"
	"github.com/Skotchmaster/sweet_shop/pkg/storage"

	catalogcfg "github.com/Skotchmaster/sweet_shop/services/catalog/internal/config"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/httpserver"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/paginator"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/realtime"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/repo"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/search"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/service"
)

func main() {
	if err := godotenv.Load("services/catalog/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := catalogcfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	gormRepo := &repo.GormRepo{DB: db}
	browser := paginator.NewBrowser(gormRepo, cfg.PageSize)
	go browser.Sweep(runCtx, 5*time.Minute, 30*time.Minute)

	svc := &service.CatalogService{
		Repo:   gormRepo,
		Events: events.Discard{},
		Local:  browser,
	}

	if client, err := search.NewClient(cfg.Elastic); err == nil {
		index := &search.Index{ES: client, Name: cfg.Elastic.Index}
		ensureCtx, cancel := context.WithTimeout(runCtx, 10*time.Second)
		if err := index.Ensure(ensureCtx); err != nil {
			logger.Warn("search_index_ensure_failed", "error", err)
		}
		cancel()
		svc.Search = index
	} else if !errors.Is(err, search.ErrDisabled) {
		log.Fatalf("elasticsearch: %v", err)
	}

	if cfg.S3.Bucket != "" {
		bucket, err := storage.NewS3(runCtx, cfg.S3)
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		svc.Images = bucket
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.ServiceName, 1024, logger)
		producer.Start()
		svc.Events = producer
	}

	if !strings.HasPrefix(cfg.DatabaseURL, "sqlite://") {
		svc.Changes = &realtime.Notifier{DB: db}
		listener := realtime.NewListener(cfg.DatabaseURL, logger)
		go func() {
			if err := listener.Run(runCtx, browser); err != nil {
				logger.Error("catalog_listener_stopped", "error", err)
			}
		}()
	}

	m := metrics.New(cfg.ServiceName)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(m.Middleware())
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CatalogHandler: &httpserver.CatalogHTTP{Svc: svc},
		BrowseHandler:  &httpserver.BrowseHTTP{Svc: svc, Browser: browser},
		JWTSecret:      cfg.JWTAccessSecret,
		AuthClient:     authclient.NewClient(cfg.AuthHTTPURL),
		Metrics:        m,
		Ready: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("catalog_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	stopRun()

	if producer != nil {
		producer.Close()
	}
	_ = pkgdb.Close(db)

	logger.Info("catalog_stopped")
}
