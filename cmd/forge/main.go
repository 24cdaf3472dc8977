// Command forge runs the coding-agent orchestrator server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/appforge/forge/pkg/api"
	"github.com/appforge/forge/pkg/config"
	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/proc"
	"github.com/appforge/forge/pkg/version"
	"github.com/appforge/forge/pkg/workspace"
)

// shutdownTimeout bounds the drain of in-flight pipelines on SIGTERM.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "forge.yaml", "path to the YAML configuration file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	slog.Info("Starting forge", "version", version.Full())

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("LLM API key not set: export %s", cfg.LLM.APIKeyEnv)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
		APIKey:        apiKey,
		Model:         cfg.LLM.Model,
		ThinkingModel: cfg.LLM.ThinkingModel,
		ImageModel:    cfg.LLM.ImageModel,
	})
	if err != nil {
		return err
	}
	defer provider.Close()

	if err := os.MkdirAll(cfg.Workspace.Root, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace root: %w", err)
	}
	store := workspace.NewStore(cfg.Workspace.Root, cfg.Workspace.TemplateDir)
	devServers := proc.NewDevServerManager(cfg.DevServer.BasePort)

	server := api.NewServer(cfg, store, provider, devServers)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received, draining")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}
