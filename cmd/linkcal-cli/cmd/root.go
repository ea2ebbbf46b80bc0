package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"linkcal/internal/adapters/filesystem"
	"linkcal/internal/adapters/vault"
	"linkcal/internal/application/analysis"
	"linkcal/internal/application/configsync"
	"linkcal/internal/config"
	"linkcal/internal/logging"
)

var (
	vaultPath string
	logLevel  string

	host    *vault.Host
	cfg     *config.Config
	logger  *slog.Logger
	service *analysis.Service
	engine  *configsync.Engine
)

var rootCmd = &cobra.Command{
	Use:   "linkcal-cli",
	Short: "Calendar analytics over the backlinks of vault notes",
	Long: `linkcal-cli counts how often daily notes link to a note and buckets the
counts by calendar day.

It also lists, edits and creates the configuration blocks that drive the
heatmap, calendar and counter views.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return setup()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		teardown()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&vaultPath, "vault", "v", config.VaultPath(), "path to the vault")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, silent)")
}

func setup() error {
	root := filesystem.ExpandHome(vaultPath)

	var err error
	cfg, err = config.Load(root)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger = logging.New(os.Stderr, logging.LevelFromString(level))

	host, err = vault.Open(root, logger)
	if err != nil {
		return err
	}

	service = analysis.NewService(host, host, analysis.Options{
		DailyFolder:    cfg.DailyFolder,
		FirstDayOfWeek: cfg.Weekday(),
		DefaultPeriod:  cfg.DefaultPeriod,
	})
	engine = configsync.NewEngine(host, service, configsync.Options{
		DebounceDelay: cfg.DebounceDelay(),
		GraceDelay:    cfg.GraceDelay(),
		Logger:        logger,
		Notifier:      logging.NewNotifier(os.Stderr, logger),
	})
	return nil
}

func teardown() error {
	if engine != nil {
		engine.Close()
		engine = nil
	}
	if host != nil {
		err := host.Close()
		host = nil
		return err
	}
	return nil
}
