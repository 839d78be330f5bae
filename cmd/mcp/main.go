package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/denial-appeal-assistant/internal/adapters/mcp"
	"github.com/kirillkom/denial-appeal-assistant/internal/bootstrap"
	"github.com/kirillkom/denial-appeal-assistant/internal/config"
	"github.com/kirillkom/denial-appeal-assistant/internal/observability/logging"
)

const (
	serviceName = "denial-mcp"
	version     = "1.0.0"
)

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logger := logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := mcpadapter.NewServer("denial-appeal-assistant", version, mcpadapter.NewTools(app.Analysis, logger))
	logger.Info("mcp_stdio_started")
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
