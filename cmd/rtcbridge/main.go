package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nix-port/rtcbridge/pkg/config"
	"github.com/nix-port/rtcbridge/pkg/metrics"
	"github.com/nix-port/rtcbridge/pkg/profiling"
	"github.com/nix-port/rtcbridge/pkg/telemetry"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse command line flags.
	var (
		configFilePath = flag.String("config", "config.yaml", "configuration file path")
		cpuProfile     = flag.String("cpuProfile", "", "write CPU profile to `file`")
		memProfile     = flag.String("memProfile", "", "write memory profile to `file`")
		duration       = flag.Duration("duration", 0, "stop the loopback session after this long (0 runs until interrupted)")
	)
	flag.Parse()

	// Initialize logging subsystem (formatting, global logging framework etc).
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	logger := logrus.NewEntry(logrus.StandardLogger())

	// Load the config file from the environment variable or path.
	config, err := config.LoadConfig(*configFilePath)
	if err != nil {
		logger.WithError(err).Fatal("could not load config")
		return
	}
	logrus.SetLevel(config.Level())

	profiler := profiling.NewProfiler(*cpuProfile, *memProfile, logger)
	if err := profiler.Start(); err != nil {
		logger.WithError(err).Fatal("could not start profiling")
	}
	defer profiler.Stop()

	// Handle signal interruptions.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	tracerProvider, err := telemetry.SetupTelemetry(config.Telemetry)
	if err != nil {
		logger.WithError(err).Fatal("could not set up telemetry")
	}
	if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("failed to flush traces")
			}
		}()
	}

	if config.Metrics.Address != "" {
		server := serveMetrics(config.Metrics.Address, logger)
		defer server.Close()
	}

	if err := runLoopback(ctx, config, logger); err != nil {
		logger.WithError(err).Error("loopback session failed")
	}
}

func serveMetrics(address string, logger *logrus.Entry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.WithField("address", address).Info("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server failed")
		}
	}()

	return server
}
