package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/OCAP2/portalview/internal/config"
	"github.com/OCAP2/portalview/internal/logging"
	intOtel "github.com/OCAP2/portalview/internal/otel"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "portalview"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFile *os.File

	SessionStartTime time.Time = time.Now()
)

func main() {
	configDir := os.Getenv("PORTALVIEW_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}

	if err := setup(configDir); err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}
	defer shutdown()

	if err := runCLI(context.Background(), os.Args[1:], os.Stdout); err != nil {
		Logger.Error("Command failed", "error", err)
		shutdown()
		os.Exit(1)
	}
}

// setup loads config and brings up logging and OTel.
func setup(configDir string) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}

	var out io.Writer
	if config.GetBool("logToFile") {
		f, err := logging.OpenLogFile(config.GetString("logsDir"), AppName, SessionStartTime)
		if err != nil {
			return err
		}
		LogFile = f
		out = f
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		writer := out
		if writer == nil {
			writer = os.Stderr
		}
		var err error
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			BatchTimeout:   otelCfg.BatchTimeout,
			MetricInterval: otelCfg.MetricInterval,
			LogWriter:      writer,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(out, config.GetString("logLevel"), otelLogProvider)
	for component, level := range config.GetLogLevels() {
		SlogManager.SetComponentLevel(component, level)
	}
	Logger = SlogManager.Logger()
	Logger.Info("Starting up", "version", CurrentVersion, "buildDate", BuildDate)
	return nil
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "log flush failed: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "otel shutdown failed: %v\n", err)
		}
		OTelProvider = nil
	}
	if LogFile != nil {
		LogFile.Close()
		LogFile = nil
	}
}
