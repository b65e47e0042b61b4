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
	"github.com/Skotchmaster/sweet_shop/pkg/mail"
	loggingmw "github.com/Skotchmaster/sweet_shop/pkg/middleware/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/middleware/metrics"

	notifycfg "github.com/Skotchmaster/sweet_shop/services/notify/internal/config"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/httpserver"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/hub"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/repo"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/service"
)

func main() {
	if err := godotenv.Load("services/notify/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := notifycfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	var publisher events.Publisher = events.Discard{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.ServiceName, 256, logger)
		producer.Start()
		publisher = producer
	}

	m := metrics.New(cfg.ServiceName)
	wsHub := hub.New(func(r *http.Request) bool { return cfg.CheckOrigin(r.Header.Get("Origin")) }, logger)

	notifyService := &service.NotifyService{
		Repo:     &repo.GormRepo{DB: db},
		Language: cfg.Language,
		Mail:     mail.NewSMTP(cfg.Mail),
		Push:     wsHub,
		Events:   publisher,
		Outcomes: m.Counter("notify", "notifications_total", "Notification deliveries by outcome.", "outcome"),
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	if len(cfg.KafkaBrokers) > 0 {
		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, events.TopicOrder, logger)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(logging.IntoContext(runCtx, logger), notifyService.HandleOrderEvent); err != nil {
				logger.Error("order_consumer_stopped", "error", err)
			}
		}()
	} else {
		close(consumerDone)
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty, order notifications are off")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(m.Middleware())
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		NotifyHandler: &httpserver.NotifyHTTP{Svc: notifyService, Hub: wsHub},
		JWTSecret:     cfg.JWTAccessSecret,
		AuthClient:    authclient.NewClient(cfg.AuthHTTPURL),
		Metrics:       m,
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
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("notify_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	wsHub.Close()
	_ = srv.Shutdown(shutdownCtx)

	stopRun()
	<-consumerDone

	if producer != nil {
		producer.Close()
	}
	_ = pkgdb.Close(db)

	logger.Info("notify_stopped")
}
