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

	"github.com/Skotchmaster/sweet_shop/gateway/internal/config"
	"github.com/Skotchmaster/sweet_shop/gateway/internal/httpserver"
	"github.com/Skotchmaster/sweet_shop/gateway/internal/middleware"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/middleware/csrf"
	"github.com/Skotchmaster/sweet_shop/pkg/middleware/metrics"
)

func main() {
	if err := godotenv.Load("gateway/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", "gateway")
	slog.SetDefault(logger)

	m := metrics.New("gateway")

	e := echo.New()
	e.HideBanner = true
	for _, mw := range middleware.Common(logger) {
		e.Use(mw)
	}
	e.Use(m.Middleware())

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.SecureCookie
	csrfCfg.SkipPaths = []string{"/health/live", "/health/ready", "/metrics", "/api/v1/auth/login", "/api/v1/auth/register", "/api/v1/auth/refresh"}
	csrfCfg.SkipPrefixes = []string{"/api/v1/notifications/ws"}
	e.Use(csrf.Middleware(csrfCfg))

	e.GET("/metrics", m.Handler())
	if err := httpserver.Register(e, &httpserver.Deps{
		AuthURL:    cfg.AuthURL,
		CatalogURL: cfg.CatalogURL,
		CartURL:    cfg.CartURL,
		OrderURL:   cfg.OrderURL,
		NotifyURL:  cfg.NotifyURL,
		JWTSecret:  cfg.JWTSecret,
	}); err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("gateway_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	logger.Info("gateway_stopped")
}
