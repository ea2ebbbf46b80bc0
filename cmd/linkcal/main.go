package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"linkcal/internal/adapters/editor"
	"linkcal/internal/adapters/filesystem"
	"linkcal/internal/adapters/obsidian"
	"linkcal/internal/adapters/tui"
	"linkcal/internal/adapters/vault"
	"linkcal/internal/application/analysis"
	"linkcal/internal/application/commands"
	"linkcal/internal/application/configsync"
	"linkcal/internal/config"
	"linkcal/internal/domain"
	"linkcal/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	vaultFlag := flag.String("vault", config.VaultPath(), "path to the vault")
	logFile := flag.String("log-file", "", "write logs to this file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: linkcal [flags] <note-or-canvas> [block-id]\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		return fmt.Errorf("expected a note or canvas and an optional block id")
	}
	carrier := flag.Arg(0)

	root := filesystem.ExpandHome(*vaultFlag)
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs only go to a file
	logger := logging.Discard()
	if *logFile != "" {
		l, f, err := logging.NewFile(*logFile, logging.LevelFromString(cfg.LogLevel))
		if err != nil {
			return err
		}
		defer f.Close()
		logger = l
	}

	host, err := vault.Open(root, logger)
	if err != nil {
		return err
	}
	defer host.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block, err := pickHeatmap(ctx, host, carrier, flag.Arg(1))
	if err != nil {
		return err
	}

	events := tui.NewEvents()
	svc := analysis.NewService(host, host, analysis.Options{
		DailyFolder:    cfg.DailyFolder,
		FirstDayOfWeek: cfg.Weekday(),
		DefaultPeriod:  cfg.DefaultPeriod,
	})
	engine := configsync.NewEngine(host, svc, configsync.Options{
		DebounceDelay: cfg.DebounceDelay(),
		GraceDelay:    cfg.GraceDelay(),
		Logger:        logger,
		Notifier:      events,
	})
	defer engine.Close()

	inst, heat, err := tui.MountHeatmap(ctx, engine, svc, carrier, block.ID, events)
	if err != nil {
		return err
	}
	defer inst.Close()

	if err := host.Watch(ctx); err != nil {
		logger.Warn("file watching disabled", "error", err)
	}

	line := block.Line
	if block.NodeID != "" {
		line = 0
	}
	app := tui.NewApp(inst, events, tui.Options{
		VaultPath:      host.VaultPath(),
		Line:           line,
		Year:           heat.Year,
		FirstDayOfWeek: cfg.Weekday(),
		Editor:         editor.NewOpener(),
		Obsidian:       obsidian.NewOpener(host.VaultPath()),
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// pickHeatmap returns the heatmap block with the given id, or the first
// decodable heatmap in the carrier when id is empty
func pickHeatmap(ctx context.Context, host *vault.Host, carrier, id string) (*commands.BlockInfo, error) {
	res, err := commands.NewListBlocksCommand(host, carrier).Execute(ctx)
	if err != nil {
		return nil, err
	}
	for i := range res.Blocks {
		b := &res.Blocks[i]
		if b.Kind != domain.KindHeatmap {
			continue
		}
		if (id == "" && b.Err == nil) || b.ID == id {
			if b.Err != nil {
				return nil, fmt.Errorf("block %s: %w", b.ID, b.Err)
			}
			return b, nil
		}
	}
	if id != "" {
		return nil, fmt.Errorf("no heatmap block %s in %s", id, carrier)
	}
	return nil, fmt.Errorf("no heatmap block in %s", carrier)
}
