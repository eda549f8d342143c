package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/api"
	"github.com/marmos91/dittohttp/pkg/config"
	"github.com/marmos91/dittohttp/pkg/server"
)

const usage = `DittoHTTP - minimal HTTP/1.1 server

Usage:
  dittohttp [flags]             Start the server
  dittohttp init [--force]      Write a default config file

Flags:
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		runInit(os.Args[2:])
		return
	}

	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/dittohttp/config.yaml)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := run(*configPath, sigChan); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// run serves until a signal arrives on stop or the server exits. Deferred
// cleanup (metrics server, store) runs on every return path.
func run(configPath string, stop <-chan os.Signal) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	fmt.Println("DittoHTTP - minimal HTTP/1.1 server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		if err := metricsResult.Server.Listen(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	store, err := config.CreateStore(ctx, &cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to create %s store: %w", cfg.Store.Type, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store: %v", err)
		}
	}()
	logger.Info("Store: %s", cfg.Store.Type)

	srv := server.New()
	if err := api.Register(srv, store); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	adapters, err := config.CreateAdapters(cfg, metricsResult.HTTPMetrics)
	if err != nil {
		return fmt.Errorf("failed to create adapters: %w", err)
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
	}

	logServerConfig(cfg)

	h, err := srv.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	for _, addr := range h.Addrs() {
		logger.Info("Listening on %s", addr)
	}
	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-stop:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stopCancel()

		if err := srv.Stop(stopCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info("Server stopped gracefully")

	case <-h.Done():
		if err := h.Err(); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("Server stopped")
	}
	return nil
}

func logServerConfig(cfg *config.Config) {
	h := cfg.Adapters.HTTP
	logger.Info("Server configuration:")
	logger.Info("  Port: %d", h.Port)
	logger.Info("  Max connections: %d", h.MaxConnections)
	logger.Info("  First byte timeout: %v", h.FirstByteTimeout)
	logger.Info("  Read timeout: %v", h.ReadTimeout)
	logger.Info("  Write timeout: %v", h.WriteTimeout)
	logger.Info("  Shutdown timeout: %v", h.ShutdownTimeout)
	logger.Info("  Max request size: %d", h.MaxRequestSize)
	logger.Info("  Decode failure policy: %s", h.DecodeFailurePolicy)
	if h.RateLimit.RequestsPerSecond > 0 {
		logger.Info("  Rate limit: %d/s (burst %d)", h.RateLimit.RequestsPerSecond, h.RateLimit.Burst)
	}
	if cfg.Server.Metrics.Enabled {
		logger.Info("  Metrics: enabled on port %d", cfg.Server.Metrics.Port)
	}
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	path := fs.String("config", "", "Write to this path instead of the default location")
	_ = fs.Parse(args)

	if *path != "" {
		if err := config.InitConfigToPath(*path, *force); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Config written to %s\n", *path)
		return
	}

	written, err := config.InitConfig(*force)
	if err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	fmt.Printf("Config written to %s\n", written)
}
