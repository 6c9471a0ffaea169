package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/beonanotherplanet/tiskofy/internal/config"
	"github.com/beonanotherplanet/tiskofy/internal/logging"
)

var version = "dev"

type cliOptions struct {
	configPath string
	logLevel   string
	installDir string
	jsonOutput bool

	cfg    *config.FileConfig
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		logger: zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "tiskofy",
		Short:         "Download the audio track of YouTube and SoundCloud links",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.installDir, "install-dir", "", "directory yt-dlp and ffmpeg are installed into")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")

	root.AddCommand(
		newGetCmd(&opts),
		newToolsCmd(&opts),
		newHistoryCmd(&opts),
	)

	return root
}

// load reads the config file and environment, applies flags that were set
// explicitly and builds the logger.
func (o *cliOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	applyRootFlagBindings(cmd.Flags(), cfg)
	o.cfg = cfg

	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		return err
	}
	o.logger = logger
	return nil
}

func applyRootFlagBindings(flags *pflag.FlagSet, cfg *config.FileConfig) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel, _ = flags.GetString("log-level")
		case "install-dir":
			cfg.InstallDir, _ = flags.GetString("install-dir")
		}
	})
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
