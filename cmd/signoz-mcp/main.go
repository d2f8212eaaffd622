// Command signoz-mcp bridges MCP clients to a SigNoz deployment, over stdio
// or HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/observekit/signoz-mcp-server/internal/config"
	"github.com/observekit/signoz-mcp-server/internal/logging"
	"github.com/observekit/signoz-mcp-server/internal/server"
	"github.com/observekit/signoz-mcp-server/internal/signoz"
	"github.com/observekit/signoz-mcp-server/internal/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "signoz-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to YAML config file (optional; env vars override)")
		transport  = flag.String("transport", "", "transport override: stdio or http")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *transport != "" {
		cfg.Server.Transport = *transport
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := signoz.New(signoz.Options{
		Host:               cfg.Signoz.Host,
		APIKey:             cfg.Signoz.APIKey,
		InsecureSkipVerify: !cfg.Signoz.TLSVerify(),
		Timeout:            cfg.Signoz.Timeout(),
	}, logger)
	if err != nil {
		return err
	}

	handler, err := tools.NewHandler(client, logger)
	if err != nil {
		return err
	}
	srv := server.New(handler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		zap.String("transport", cfg.Server.Transport),
		zap.String("signoz_host", client.Host()))

	switch cfg.Server.Transport {
	case "http":
		return server.NewHTTP(srv, cfg.Server.Port, logger).Run(ctx)
	default:
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}
}
