package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ccviewer/navigator/internal/config"
	"github.com/ccviewer/navigator/internal/dispatcher"
	"github.com/ccviewer/navigator/internal/fetch"
	"github.com/ccviewer/navigator/internal/influx"
	"github.com/ccviewer/navigator/internal/location"
	"github.com/ccviewer/navigator/internal/logging"
	"github.com/ccviewer/navigator/internal/navigation"
	intOtel "github.com/ccviewer/navigator/internal/otel"
	"github.com/ccviewer/navigator/internal/profile"
	"github.com/ccviewer/navigator/internal/server"
	"github.com/ccviewer/navigator/internal/storage"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	ProgramName string = "navigator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "navigator: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(ProgramName, flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.ConfigFileName)
	envFile := fs.String("env", ".env", "dotenv file loaded before the config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sessionStart := time.Now()
	session := logging.NewSession(uuid.NewString())

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Config{Level: "info", Context: session.Attrs})
	logger := slogManager.Logger()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load env file", "path", *envFile, "error", err)
	}
	if err := config.Load(*configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config")
	}

	// Logging proper: file, graylog and otel outputs.
	logFile, err := logging.OpenLogFile(config.GetString("logsDir"), ProgramName, sessionStart)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logCfg := logging.Config{
		Level:   config.GetString("logLevel"),
		File:    io.MultiWriter(os.Stdout, logFile),
		Context: session.Attrs,
	}

	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address, ProgramName)
		if err != nil {
			logger.Warn("Graylog output disabled", "address", gl.Address, "error", err)
		} else {
			defer w.Close()
			logCfg.Graylog = w
		}
	}

	registry := prometheus.NewRegistry()
	otelProvider, err := intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), session.ID(), logFile, registry))
	if err != nil {
		logger.Warn("OpenTelemetry disabled", "error", err)
		if otelProvider, err = intOtel.New(intOtel.Config{ServiceName: ProgramName, Registerer: registry}); err != nil {
			otelProvider, _ = intOtel.New(intOtel.Config{})
		}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = slogManager.Flush(shutdownCtx)
		_ = otelProvider.Shutdown(shutdownCtx)
	}()
	logCfg.Provider = otelProvider.LoggerProvider()

	slogManager.Setup(logCfg)
	logger = slogManager.Logger()
	slog.SetDefault(logger)
	logger.Info("Starting navigator", "version", Version, "buildDate", BuildDate, "session", session.ID())

	// Table cache and fetch stack.
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg)
	if err != nil {
		return err
	}
	if backend != nil {
		if err := backend.Init(); err != nil {
			logger.Error("Failed to initialize storage backend, fetching uncached", "error", err)
			backend = nil
		} else {
			defer backend.Close()
			logger.Info("Storage backend initialized", "type", storageCfg.Type)

			if n, err := storage.Expire(ctx, backend, storageCfg.MaxAge); err != nil {
				logger.Warn("Failed to expire cached tables", "error", err)
			} else if n > 0 {
				logger.Info("Expired cached tables", "count", n, "maxAge", storageCfg.MaxAge)
			}
		}
	}
	fetcher := fetch.NewStack(config.GetFetchConfig(), backend, logger)

	profileCfg := config.GetProfileConfig()
	prof, err := profile.Load(ctx, profileCfg.Path, fetcher)
	if err != nil {
		return err
	}
	logger.Info("Loaded profile", "source", profileCfg.Path, "layers", len(prof.Layers))

	// Navigation.
	traceLevel := zerolog.InfoLevel.String()
	if config.GetString("logLevel") == "debug" {
		traceLevel = zerolog.DebugLevel.String()
	}
	events, err := dispatcher.New(logging.NewEventTraceLogger(logFile, traceLevel))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	defer events.Close()

	loc := location.NewMemory(profileCfg.InitialFragment)
	nav, err := navigation.New(prof, loc, fetcher,
		navigation.WithLogger(logger),
		navigation.WithDispatcher(events),
	)
	if err != nil {
		return err
	}
	defer nav.Close()
	session.Add(nav.LogAttrs)

	if profileCfg.InitialLayer != "" {
		nav.SetLayer(profileCfg.InitialLayer)
	}

	if ic := config.GetInfluxConfig(); ic.Enabled {
		traceLogger := zerolog.New(logFile).With().Timestamp().Str("component", "influx").Logger()
		im := influx.NewManager(ic, traceLogger)
		if err := im.Connect(ctx); err != nil {
			logger.Warn("Navigation telemetry disabled", "error", err)
		} else {
			defer im.Close()
			untrack := im.Track(nav)
			defer untrack()
		}
	}

	srv := server.New(nav, loc, logger, server.WithRegistry(registry))
	defer srv.Close()

	err = srv.ListenAndServe(ctx, config.GetServerConfig().Addr)
	logger.Info("Navigator stopped")
	return err
}
