package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/saaga0h/jeeves-gamma/internal/backend"
	"github.com/saaga0h/jeeves-gamma/internal/gamma"
	"github.com/saaga0h/jeeves-gamma/internal/scheduler"
	"github.com/saaga0h/jeeves-gamma/internal/solar"
	"github.com/saaga0h/jeeves-gamma/internal/status"
	"github.com/saaga0h/jeeves-gamma/pkg/config"
	"github.com/saaga0h/jeeves-gamma/pkg/health"
	"github.com/saaga0h/jeeves-gamma/pkg/mqtt"
	"github.com/saaga0h/jeeves-gamma/pkg/postgres"
	"github.com/saaga0h/jeeves-gamma/pkg/redis"
)

// exitNoDisplay tells the systemd unit that no X display was available
const exitNoDisplay = 11

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load configuration with hierarchy: defaults → file → env → flags
	cfg := config.NewConfig()
	if err := cfg.Load(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	if cfg.ShowVersion {
		fmt.Printf("%s %s\n", cfg.ServiceName, config.Version)
		return 0
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	if cfg.PrintConfig {
		if err := cfg.WriteFile(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if cfg.PrintSolarConfig {
		return printSolarConfig(cfg)
	}

	mode := scheduler.ModeContinuous
	switch {
	case cfg.Once:
		mode = scheduler.ModeOnce
	case cfg.Simulate:
		mode = scheduler.ModeSimulate
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(logOutput(mode), &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	kind, err := backend.ParseKind(cfg.Backend)
	if err != nil {
		logger.Error("Invalid backend", "error", err)
		return 1
	}
	if kind.NeedsDisplay() && os.Getenv("DISPLAY") == "" {
		logger.Error("No X display available", "backend", kind)
		return exitNoDisplay
	}

	logger.Info("Starting J.E.E.V.E.S. Gamma Agent",
		"version", config.Version,
		"service_name", cfg.ServiceName,
		"backend", kind,
		"mode", mode.String(),
		"interval", cfg.Interval(),
		"anchor_source", cfg.AnchorSource,
		"log_level", cfg.LogLevel)

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
			cancel()
		case <-ctx.Done():
		}
	}()

	table, closeSource, err := loadAnchors(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to load anchor table", "error", err)
		return 1
	}
	closeSource()

	palette, err := cfg.Palette()
	if err != nil {
		logger.Error("Invalid tty palette", "error", err)
		return 1
	}
	sink, err := backend.New(kind, backend.Options{
		HelperDir: cfg.HelperDir(),
		Palette:   palette,
	})
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		return 1
	}

	// Initialize MQTT client when a broker is configured
	var publisher status.Publisher
	if cfg.MQTTBroker != "" {
		mqttClient := mqtt.NewClient(cfg, logger)
		connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := mqttClient.Connect(connectCtx); err != nil {
			logger.Warn("MQTT not connected yet, publishing when it comes up", "error", err)
		}
		connectCancel()
		defer mqttClient.Disconnect()
		publisher = mqttClient
	}

	reporter := status.NewReporter(sink.Name(), cfg.Location, publisher, logger)

	if cfg.HealthPort > 0 && mode == scheduler.ModeContinuous {
		httpServer := startHealthServer(cfg.HealthPort, health.NewChecker(reporter, logger), logger)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error shutting down health server", "error", err)
			}
		}()
	}

	sched := scheduler.New(table, sink, logger,
		scheduler.WithInterval(cfg.Interval()),
		scheduler.WithSimulation(cfg.SimulationSteps, cfg.SimulationPause()),
		scheduler.WithProgress(os.Stdout),
		scheduler.WithObserver(reporter))

	if err := sched.Run(ctx, mode); err != nil {
		logger.Error("Scheduler failed", "error", err)
		return 1
	}

	logger.Info("Gamma agent shutdown complete")
	return 0
}

// loadAnchors builds the configured primary source, with the fallback file
// or the built-in table behind it. The returned func releases the source's
// connections once the table is loaded.
func loadAnchors(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gamma.Table, func(), error) {
	var fallback gamma.Source = gamma.BuiltinSource{}
	if cfg.FallbackFile != "" {
		fallback = gamma.FileSource{Path: cfg.FallbackFile}
	}

	closer := func() {}
	var primary gamma.Source

	switch cfg.AnchorSource {
	case config.SourceRedis:
		redisClient := redis.NewClient(cfg, logger)
		if err := redisClient.Ping(ctx); err != nil {
			logger.Warn("Redis unavailable", "error", err)
		}
		closer = func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Error closing Redis connection", "error", err)
			}
		}
		primary = gamma.RedisSource{Client: redisClient, Key: redis.AnchorTableKey(cfg.AnchorProfile)}

	case config.SourcePostgres:
		pgClient := postgres.NewClient(cfg, logger)
		if err := pgClient.Connect(ctx); err != nil {
			logger.Warn("Postgres unavailable", "error", err)
		} else if hc, err := pgClient.HealthCheck(ctx); err == nil {
			logger.Info("Postgres anchor profile", "profile", hc.Profile, "anchors", hc.AnchorCount)
		}
		closer = func() {
			if err := pgClient.Disconnect(); err != nil {
				logger.Error("Error closing Postgres connection", "error", err)
			}
		}
		primary = gamma.PostgresSource{Client: pgClient, Profile: cfg.AnchorProfile}

	default:
		primary = gamma.FileSource{Path: cfg.AnchorFilePath()}
	}

	table, err := gamma.Load(ctx, primary, fallback, logger)
	if err != nil {
		closer()
		return nil, func() {}, err
	}
	return table, closer, nil
}

func printSolarConfig(cfg *config.Config) int {
	now := time.Now()
	opts := solar.Options{
		Latitude:    cfg.Latitude,
		Longitude:   cfg.Longitude,
		DayKelvin:   cfg.DayKelvin,
		NightKelvin: cfg.NightKelvin,
		Twilight:    time.Duration(cfg.TwilightMins) * time.Minute,
	}

	if err := solar.Write(os.Stdout, now, opts, solar.Generate(now, opts)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func startHealthServer(port int, checker *health.Checker, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/status", checker.DetailedHandlerFunc())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()

	return server
}

// logOutput keeps log lines off stdout while the simulated clock is being
// redrawn there
func logOutput(mode scheduler.Mode) io.Writer {
	if mode == scheduler.ModeSimulate {
		return os.Stderr
	}
	return os.Stdout
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
