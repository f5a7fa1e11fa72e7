package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"interview/pkg/config"
	"interview/pkg/eventlog"
	"interview/pkg/interview"
	"interview/pkg/logx"
	"interview/pkg/metrics"
	"interview/pkg/persistence"
	"interview/pkg/webui"
)

// Version information - set by goreleaser via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		projectDir  = flag.String("projectdir", ".", "Project directory")
		addr        = flag.String("addr", "", "Web UI listen address (overrides config)")
		provider    = flag.String("provider", "", "LLM provider: anthropic, openai, ollama, google (overrides config)")
		model       = flag.String("model", "", "Provider model name (overrides config)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("interviewd %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}

	logx.SetDebug(*debug)

	fmt.Println("⏳ Starting up...")
	os.Exit(run(*projectDir, *addr, *provider, *model))
}

// run contains the main application logic and returns an exit code.
// This allows defers to execute before os.Exit is called.
func run(projectDir, addr, provider, model string) int {
	logger := logx.NewLogger("interviewd")

	if err := config.LoadConfig(projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if err := mergeCommandLineParams(addr, provider, model); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to apply command line overrides: %v\n", err)
		return 1
	}
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get config: %v\n", err)
		return 1
	}

	// Load credentials before any provider client is built.
	if err := handleSecrets(projectDir, cfg.Provider.Name); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to handle secrets: %v\n", err)
		return 1
	}

	deps, err := buildDependencies(projectDir, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to wire engine: %v\n", err)
		return 1
	}
	defer deps.close(logger)

	server := webui.NewServer(newControllerFactory(&cfg, deps), deps.store)
	if deps.events != nil {
		server.SetEventSink(deps.eventSink(logger))
	}
	if cfg.WebUI.PrometheusURL != "" {
		queries, err := metrics.NewQueryService(cfg.WebUI.PrometheusURL)
		if err != nil {
			logger.Warn("Metrics query service disabled: %v", err)
		} else {
			server.SetQueryService(queries)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.WebUI.Addr)
	}()

	logger.Info("🎤 Interview engine ready (provider: %s)", cfg.Provider.Name)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed: %v", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed: %v", err)
			return 1
		}
	}
	return 0
}

// mergeCommandLineParams folds flag overrides into the loaded config.
func mergeCommandLineParams(addr, provider, model string) error {
	if addr == "" && provider == "" && model == "" {
		return nil
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	if addr != "" {
		cfg.WebUI.Addr = addr
	}
	if provider != "" {
		cfg.Provider.Name = provider
	}
	if model != "" {
		cfg.Provider.Model = model
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config after overrides: %w", err)
	}
	return config.SaveConfig(&cfg)
}

// engineDeps holds the long-lived infrastructure shared by all sessions.
type engineDeps struct {
	store  *persistence.Store
	events *eventlog.Writer
}

func buildDependencies(projectDir string, cfg *config.Config) (*engineDeps, error) {
	deps := &engineDeps{}

	store, err := persistence.Open(resolvePath(projectDir, cfg.Storage.DBPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}
	deps.store = store

	events, err := eventlog.NewWriter(resolvePath(projectDir, cfg.Storage.EventLogDir))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	deps.events = events

	return deps, nil
}

// eventSink returns the callback that mirrors engine events into the JSONL
// log. Write failures are logged and never surfaced to sessions.
func (d *engineDeps) eventSink(logger *logx.Logger) func(event interview.Event) {
	return func(event interview.Event) {
		if err := d.events.WriteEvent(event); err != nil {
			logger.Warn("Event log write failed: %v", err)
		}
	}
}

func (d *engineDeps) close(logger *logx.Logger) {
	if d.events != nil {
		if err := d.events.Close(); err != nil {
			logger.Warn("Event log close failed: %v", err)
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			logger.Warn("Result store close failed: %v", err)
		}
	}
}
