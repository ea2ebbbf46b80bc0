package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"linkcal/internal/adapters/filesystem"
	mcpadapter "linkcal/internal/adapters/mcp"
	"linkcal/internal/adapters/vault"
	"linkcal/internal/application/analysis"
	"linkcal/internal/application/configsync"
	"linkcal/internal/config"
	"linkcal/internal/logging"
)

func main() {
	vaultFlag := flag.String("vault", config.VaultPath(), "path to the vault")
	levelFlag := flag.String("log-level", "", "log level (debug, info, warn, error, silent)")
	flag.Parse()

	root := filesystem.ExpandHome(*vaultFlag)
	cfg, err := config.Load(root)
	if err != nil {
		log.Fatalf("linkcal-mcp: %v", err)
	}

	level := cfg.LogLevel
	if *levelFlag != "" {
		level = *levelFlag
	}
	// stdout carries the protocol
	logger := logging.New(os.Stderr, logging.LevelFromString(level))

	host, err := vault.Open(root, logger)
	if err != nil {
		log.Fatalf("linkcal-mcp: %v", err)
	}
	defer host.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := host.Watch(ctx); err != nil {
		logger.Warn("file watching disabled", "error", err)
	}

	svc := analysis.NewService(host, host, analysis.Options{
		DailyFolder:    cfg.DailyFolder,
		FirstDayOfWeek: cfg.Weekday(),
		DefaultPeriod:  cfg.DefaultPeriod,
	})
	engine := configsync.NewEngine(host, svc, configsync.Options{
		DebounceDelay: cfg.DebounceDelay(),
		GraceDelay:    cfg.GraceDelay(),
		Logger:        logger,
		Notifier:      logging.NewNotifier(os.Stderr, logger),
	})
	defer engine.Close()

	mcpServer := server.NewMCPServer(
		"linkcal-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterReadTools(mcpServer, svc, host)
	mcpadapter.RegisterWriteTools(mcpServer, engine, host)
	mcpadapter.RegisterGraphTools(mcpServer, host)

	logger.Info("serving", "vault", host.VaultPath())
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
