package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"voicebridge/core"
	"voicebridge/factories"
	"voicebridge/metrics"
	"voicebridge/transports/httpapi"
	"voicebridge/transports/websocket"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var settingsPath, addr string
	flag.StringVar(&settingsPath, "settings", "", "settings file (.json, .yaml or .yml); overrides SETTINGS_PATH")
	flag.StringVar(&addr, "addr", "", "listen address; overrides server.addr")
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings := loadSettingsFromEnv(settingsPath)
	if addr != "" {
		settings.Server.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		settings.Logging.Level = level
	}
	core.SetLogger(settings.Logging.NewLogger())
	logger := core.GetLogger().With(map[string]any{"component": "main"})

	settings.InjectAPIKeys(factories.APIKeysFromEnv())
	orchestrator, err := factories.BuildOrchestrator(settings, core.GetLogger())
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build orchestrator")
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	orchestrator.WithRecorder(m)

	var wsHandler http.Handler
	if settings.Server.EnableWebSocket {
		wsHandler = websocket.NewHandler(websocket.Config{
			MaxCaptureBytes: settings.Server.MaxCaptureBytes,
			WriteTimeout:    settings.Server.WriteTimeout.Std(),
			IdleTimeout:     websocket.DefaultConfig().IdleTimeout,
		}, orchestrator, orchestrator.Store(), core.GetLogger())
	}

	server := httpapi.NewServer(httpapi.Config{
		Addr:            settings.Server.Addr,
		MaxCaptureBytes: settings.Server.MaxCaptureBytes,
		ReadTimeout:     settings.Server.ReadTimeout.Std(),
		WriteTimeout:    settings.Server.WriteTimeout.Std(),
	}, orchestrator, orchestrator.Store(), m, wsHandler, core.GetLogger())
	if err := server.Start(); err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to start server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.With(map[string]any{"error": err}).Warn("graceful shutdown incomplete")
	}
}

// loadSettingsFromEnv loads SettingsConfig from the -settings flag,
// SETTINGS_JSON_B64, SETTINGS_PATH or ./settings.json. A named source that
// fails to load is fatal; a broken ./settings.json falls back to defaults.
func loadSettingsFromEnv(path string) factories.SettingsConfig {
	loaded, err := factories.LoadSettings(path, os.Getenv)
	if err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Fatal("failed to load settings")
	}
	if loaded.Skipped != nil {
		core.GetLogger().With(map[string]any{"path": factories.DefaultSettingsPath, "error": loaded.Skipped}).Warn("failed to load settings, using defaults")
	}
	core.GetLogger().With(map[string]any{"source": loaded.Source}).Info("loaded settings")
	return loaded.Settings
}
