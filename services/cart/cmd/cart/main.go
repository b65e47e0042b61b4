package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
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

	cartcfg "github.com/Skotchmaster/sweet_shop/services/cart/internal/config"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/httpserver"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/mirror"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/repo"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/service"
)

func main() {
	if err := godotenv.Load("services/cart/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := cartcfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	var counts mirror.CountMirror = mirror.NewMemory()
	var redisMirror *mirror.Redis
	if cfg.RedisAddr != "" {
		redisMirror = mirror.NewRedis(cfg.RedisAddr)
		counts = redisMirror
	}

	var publisher events.Publisher = events.Discard{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.ServiceName, 1024, logger)
		producer.Start()
		publisher = producer
	}

	m := metrics.New(cfg.ServiceName)

	cartService := &service.CartService{
		Repo:    &repo.GormRepo{DB: db},
		Mirror:  counts,
		Events:  publisher,
		Denials: m.Counter("cart", "denials_total", "Cart changes denied by inventory rules.", "reason"),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(m.Middleware())
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CartHandler: &httpserver.CartHTTP{Svc: cartService},
		JWTSecret:   cfg.JWTAccessSecret,
		AuthClient:  authclient.NewClient(cfg.AuthHTTPURL),
		Metrics:     m,
		Ready: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.Ping(); err != nil {
				return err
			}
			if redisMirror == nil {
				return nil
			}
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return redisMirror.Ping(pingCtx)
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
		logger.Info("cart_listening", "addr", srv.Addr)
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

	if producer != nil {
		producer.Close()
	}
	if redisMirror != nil {
		_ = redisMirror.Close()
	}
	_ = pkgdb.Close(db)

	logger.Info("cart_stopped")
}
