package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/sentinel-call-go/example/search/internal/config"
	"github.com/kroma-labs/sentinel-call-go/httpcall"
	"github.com/kroma-labs/sentinel-call-go/httpclient"
	"github.com/kroma-labs/sentinel-call-go/storage"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", config.ServiceName).Logger()
	ctx := logger.WithContext(context.Background())

	// 1. Load options: optional YAML file, then SEARCH_* environment overrides
	opts := storage.DefaultOptions()
	if path := os.Getenv("SEARCH_CONFIG"); path != "" {
		loaded, err := storage.LoadOptions(path)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load storage config")
		}
		opts = loaded
	}
	if err := opts.ApplyEnv(os.LookupEnv); err != nil {
		logger.Fatal().Err(err).Msg("invalid environment")
	}
	opts.ServiceName = config.ServiceName
	opts.MaxInFlight = config.MaxInFlight
	opts.Registerer = prometheus.DefaultRegisterer

	// 2. Start Prometheus metrics server
	metricsServer := &http.Server{Addr: config.MetricsPort, Handler: promhttp.Handler()}
	go func() {
		logger.Info().Str("addr", config.MetricsPort).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	// 3. Build the storage client and wait for the cluster
	client, err := storage.New(opts,
		httpclient.WithLogger(logger),
		httpclient.WithBreaker(httpclient.DefaultBreakerConfig()),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create storage client")
	}
	if err := client.WaitReady(ctx); err != nil {
		logger.Fatal().Err(err).Msg("storage unavailable")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(config.ProbeInterval) * time.Second)
	defer ticker.Stop()

	version := httpcall.NewCall(client.Factory(), httpcall.Get("/"), httpcall.Field("version.number"), "get-version")

	for {
		select {
		case <-ticker.C:
			if res := client.Check(ctx); !res.OK {
				logger.Warn().Err(res.Err).Str("status", res.Status).Msg("health check failed")
			}

			// The template stays idle; each tick enqueues a fresh clone.
			err := version.Clone().Enqueue(ctx, httpcall.NewCallback(
				func(v string) { logger.Info().Str("version", v).Msg("probe completed") },
				func(err error) { logger.Error().Err(err).Msg("version probe failed") },
			))
			if err != nil {
				logger.Error().Err(err).Msg("failed to enqueue probe")
			}

		case <-sigChan:
			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("metrics server shutdown error")
			}
			return
		}
	}
}
