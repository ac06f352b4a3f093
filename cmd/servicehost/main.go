// Package main is the entry point for the ServiceHost application.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"servicehost/internal/config"
	"servicehost/internal/heartbeat"
	"servicehost/internal/logger"
	"servicehost/internal/publisher"
	"servicehost/internal/service"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// newPublisher is replaced in tests.
var newPublisher = publisher.NewPublisher

const (
	startupErrorLogDir = "log/ServiceHost"
	statusPublishWait  = 5 * time.Second
)

func main() {
	var (
		configPath  = flag.String("config", "conf/ServiceHost/ServiceHost.json", "Path to main configuration file")
		loggingPath = flag.String("logging", "conf/ServiceHost/Logging.json", "Path to logging configuration file")
		nameFlag    = flag.String("name", "", "Service name (overrides ServiceName in the configuration)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ServiceHost %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	reportName := config.DefaultServiceName
	if *nameFlag != "" {
		reportName = *nameFlag
	}

	// The service manager starts processes in the system directory. An
	// absolute config path <base>/conf/ServiceHost/ServiceHost.json moves the
	// working directory to <base> so relative log paths resolve there.
	if filepath.IsAbs(*configPath) {
		basePath := filepath.Dir(filepath.Dir(filepath.Dir(*configPath)))
		if err := os.Chdir(basePath); err != nil {
			err = fmt.Errorf("failed to chdir to %s: %w", basePath, err)
			service.ReportStartupError(reportName, err)
			fmt.Fprintf(os.Stderr, "Failed to change directory to %s: %v\n", basePath, err)
			os.Exit(1)
		}
	}

	inService := service.IsService()
	logger.SetServiceMode(inService)

	cfg, lc, err := config.LoadSplit(*configPath, *loggingPath)
	if err != nil {
		reportStartupFailure(reportName, "Failed to load configuration", err)
		os.Exit(1)
	}
	if *nameFlag != "" {
		cfg.ServiceName = *nameFlag
	}

	if inService {
		logger.SetEventSource(cfg.ServiceName)
	}
	if err := logger.Init(*lc); err != nil {
		reportStartupFailure(cfg.ServiceName, "Failed to initialize logger", err)
		os.Exit(1)
	}

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("service", cfg.ServiceName).
		Str("config", *configPath).
		Str("logging", *loggingPath).
		Msg("Starting ServiceHost")

	os.Exit(run(cfg, lc, *loggingPath))
}

// reportStartupFailure records an error that prevents the service from
// starting. The service manager never sees a status for this process, so the
// event log and the startup error file are the only traces.
func reportStartupFailure(serviceName, msg string, err error) {
	service.ReportStartupError(serviceName, err)
	service.WriteStartupErrorFile(startupErrorLogDir, serviceName, err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
}

func run(cfg *config.Config, lc *logger.Config, loggingPath string) int {
	log := logger.WithComponent("main")

	// Logging.json Console is the master switch for console echo.
	cfg.File.Console = lc.Console

	pub, err := newPublisher(cfg)
	if err != nil {
		reportStartupFailure(cfg.ServiceName, "Failed to create publisher", err)
		return 1
	}
	defer func() {
		log.Info().Msg("Closing publisher")
		if err := pub.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing publisher")
		}
	}()

	hostname := config.GetHostname(cfg)
	source := publisher.NewSource(cfg.ServiceName, hostname)

	var sampler heartbeat.Sampler
	if ps, err := heartbeat.NewProcessSampler(cfg.ServiceName, cfg.Heartbeat.ProcessStats); err != nil {
		log.Warn().Err(err).Msg("Process sampler unavailable, heartbeats will carry no snapshot")
	} else {
		sampler = ps
	}
	worker := heartbeat.New(source, pub, sampler, cfg.Heartbeat.Interval)

	ctrl, err := service.New(cfg.ServiceName, service.DefaultManager(), worker)
	if err != nil {
		reportStartupFailure(cfg.ServiceName, "Failed to create service controller", err)
		return 1
	}
	defer ctrl.Close()

	worker.SetStateSource(ctrl.State)
	ctrl.OnStatus(func(st service.Status) {
		ctx, cancel := context.WithTimeout(context.Background(), statusPublishWait)
		defer cancel()
		if err := pub.Publish(ctx, source.Status(st)); err != nil {
			log.Error().Err(err).Str("state", st.State.String()).Msg("Failed to publish status event")
		}
	})

	cleanupWatcher := setupLoggingWatcher(loggingPath, pub)
	defer cleanupWatcher()

	log.Info().
		Str("service", cfg.ServiceName).
		Str("hostname", hostname).
		Dur("heartbeat_interval", cfg.Heartbeat.Interval).
		Msg("Service host initialized")

	if err := ctrl.Run(); err != nil {
		service.ReportRunError(cfg.ServiceName, err)
		log.Error().Err(err).Msg("Service exited with error")
		return 1
	}

	log.Info().Msg("ServiceHost stopped")
	return 0
}

// setupLoggingWatcher hot-reloads Logging.json. Returns a cleanup function
// that stops the watcher.
func setupLoggingWatcher(loggingPath string, pub publisher.Publisher) func() {
	log := logger.WithComponent("main")
	var mu sync.Mutex

	watcher, err := config.NewLoggingWatcher(loggingPath, func(newLC *logger.Config) {
		mu.Lock()
		defer mu.Unlock()

		log.Info().Msg("Applying logging configuration changes")

		if err := logger.Init(*newLC); err != nil {
			log.Error().Err(err).Msg("Failed to update logging configuration")
			return
		}

		if fp, ok := pub.(*publisher.FilePublisher); ok {
			fp.SetConsole(newLC.Console)
			log.Info().Bool("console", newLC.Console).Msg("FilePublisher console updated")
		}

		log.Info().Msg("Logging configuration updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create logging watcher, hot reload disabled")
		return func() {}
	}
	if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start logging watcher")
		watcher.Stop()
		return func() {}
	}

	return func() {
		log.Info().Msg("Stopping logging watcher")
		if err := watcher.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping logging watcher")
		}
	}
}
