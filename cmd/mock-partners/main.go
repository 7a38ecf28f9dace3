package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"

	"github.com/Apurer/procurement-engine/internal/mockpartners"
	platformobservability "github.com/Apurer/procurement-engine/internal/platform/observability"
)

type config struct {
	Port         string  `env:"PORT" envDefault:"8090"`
	LogLevel     string  `env:"LOG_LEVEL" envDefault:"info"`
	DeclineAbove float64 `env:"MOCK_BANK_DECLINE_ABOVE" envDefault:"0"`
	FailEvery    int     `env:"MOCK_FAIL_EVERY" envDefault:"0"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}
	level, err := platformobservability.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger := platformobservability.NewLogger(os.Stdout, "json", level)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	mockpartners.NewServer(
		mockpartners.WithLogger(logger),
		mockpartners.WithDeclineAbove(cfg.DeclineAbove),
		mockpartners.WithFailEvery(cfg.FailEvery),
	).Register(router)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("mock partners listening", slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("mock partners exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
