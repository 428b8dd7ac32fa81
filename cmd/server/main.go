// Package main - HTTP-сервер доступа к NanoVNA: сканирование в Touchstone,
// снимок экрана в PNG, метрики Prometheus и публикация сканов в NATS.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/momentics/govna-shell/internal/logging"
	"github.com/momentics/govna-shell/pkg/govna"
)

func main() {
	logger := logging.ConfigureRuntime("govna-server")
	cfg := Load()

	sessionCfg, err := cfg.SessionConfig()
	if err != nil {
		logger.Fatal().Err(err).Str("profile", cfg.DeviceProfile).Msg("ошибка профиля устройства")
	}
	sessionCfg.Logger = &logger
	if err := govna.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal().Err(err).Msg("ошибка регистрации метрик")
	}

	pool := govna.NewVNAPool(sessionCfg)
	defer pool.CloseAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.NATSURL != "" && cfg.AcquirePort != "" && cfg.AcquireInterval > 0 {
		natsConn, err := nats.Connect(cfg.NATSURL, nats.Name("govna-server"))
		if err != nil {
			logger.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("ошибка подключения к NATS")
		}
		defer natsConn.Close()
		logger.Info().Str("url", cfg.NATSURL).Msg("подключено к NATS")

		acq := &Acquirer{
			pool:     pool,
			pub:      natsConn,
			port:     cfg.AcquirePort,
			subject:  subjectFor(cfg.Subject, cfg.AcquirePort),
			interval: cfg.AcquireInterval,
			sweep:    defaultSweep,
			log:      logger,
		}
		go acq.Run(ctx)
	}

	mux := http.NewServeMux()
	(&api{pool: pool, log: logger}).routes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("profile", sessionCfg.Device.Name).Msg("сервер запущен")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("ошибка HTTP сервера")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("сервер останавливается...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ошибка при корректном завершении сервера")
		return
	}
	logger.Info().Msg("сервер успешно остановлен")
}
