package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/8adimka/Go_Weather_Agent/internal/agent"
	"github.com/8adimka/Go_Weather_Agent/internal/api"
	"github.com/8adimka/Go_Weather_Agent/internal/config"
	"github.com/8adimka/Go_Weather_Agent/internal/health"
	"github.com/8adimka/Go_Weather_Agent/internal/httpx"
	"github.com/8adimka/Go_Weather_Agent/internal/logging"
	"github.com/8adimka/Go_Weather_Agent/internal/metrics"
	"github.com/8adimka/Go_Weather_Agent/internal/otel"
	"github.com/8adimka/Go_Weather_Agent/internal/redisx"
	"github.com/8adimka/Go_Weather_Agent/internal/session"
	"github.com/8adimka/Go_Weather_Agent/internal/tokens"
	"github.com/8adimka/Go_Weather_Agent/internal/tools/factory"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serviceName = "go-weather-agent"
	version     = "1.0.0"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout))

	shutdownOTel, err := otel.InitOpenTelemetry(ctx, serviceName, version)
	if err != nil {
		return fmt.Errorf("init OpenTelemetry: %w", err)
	}
	defer shutdownOTel(context.Background())

	appMetrics, err := metrics.NewMetrics(otel.Meter())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	httpClient, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:  cfg.UpstreamTimeout,
		ProxyURL: cfg.ProxyURL,
	})
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	toolRegistry, err := factory.NewFactory(cfg, httpClient, appMetrics, clock).CreateAllTools()
	if err != nil {
		return err
	}

	// Conversation history is optional; without Redis every chat turn stands alone.
	var (
		history agent.History
		pinger  health.Pinger
	)
	if cfg.RedisAddr != "" {
		redisClient, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		cache := redisx.NewCache(redisClient, cfg.SessionTTL)
		history = session.NewStore(cache, cfg.SessionMaxMessages)
		pinger = cache
	}

	catalog := agent.NewCatalog()
	if cfg.OpenAIApiKey != "" {
		client := openai.NewClient(option.WithAPIKey(cfg.OpenAIApiKey))
		catalog.Register(agent.New(agent.WeatherAgent(cfg.OpenAIModel), &client.Chat.Completions, toolRegistry, agent.Options{
			History:           history,
			Counter:           tokens.NewTokenCounter(),
			Metrics:           appMetrics,
			MaxToolIterations: cfg.MaxToolIterations,
			MaxContextTokens:  cfg.MaxContextTokens,
		}))
	}

	handler := mux.NewRouter()
	handler.Use(
		httpx.OTelMiddleware(serviceName),
		httpx.Logger(),
		httpx.Recovery(),
		appMetrics.HTTPMetricsMiddleware(),
		httpx.ProtectedRoutes(cfg.ServerAPIKey, []string{"/", "/health", "/ready", "/metrics"}),
	)

	healthChecker := health.NewHealthChecker(version, pinger)
	handler.HandleFunc("/health", healthChecker.HealthHandler).Methods(http.MethodGet)
	handler.HandleFunc("/ready", healthChecker.ReadyHandler).Methods(http.MethodGet)
	handler.Handle("/metrics", promhttp.Handler())

	handler.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "Weather agent is running. See /v1/tools and /v1/agents.")
	})

	api.NewServer(toolRegistry, catalog).Register(handler)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting the server...", "addr", cfg.HTTPAddr, "tools", toolRegistry.Count())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
	return nil
}
