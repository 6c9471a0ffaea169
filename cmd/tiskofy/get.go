package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beonanotherplanet/tiskofy/internal/config"
	"github.com/beonanotherplanet/tiskofy/internal/download"
	"github.com/beonanotherplanet/tiskofy/internal/history"
	"github.com/beonanotherplanet/tiskofy/internal/model"
	"github.com/beonanotherplanet/tiskofy/internal/platform"
)

// exit code used when the run was interrupted
const exitInterrupted = 130

type getOptions struct {
	dir         string
	format      string
	parallel    int
	metricsAddr string
	noHistory   bool
}

func newGetCmd(opts *cliOptions) *cobra.Command {
	getOpts := getOptions{}

	cmd := &cobra.Command{
		Use:   "get <url>...",
		Short: "Download the audio of one or more links, playlists included",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, opts, &getOpts, args)
		},
	}

	cmd.Flags().StringVarP(&getOpts.dir, "dir", "d", "", "output directory (defaults to downloadDir from config)")
	cmd.Flags().StringVarP(&getOpts.format, "format", "f", "", "audio format: mp3, m4a, opus, flac or wav")
	cmd.Flags().IntVarP(&getOpts.parallel, "parallel", "p", 0, "max parallel downloads")
	cmd.Flags().StringVar(&getOpts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while downloading")
	cmd.Flags().BoolVar(&getOpts.noHistory, "no-history", false, "do not record finished downloads")

	return cmd
}

func (g *getOptions) resolve(cfg *config.FileConfig) error {
	if g.dir == "" {
		g.dir = cfg.DownloadDir
	}
	if g.format == "" {
		g.format = cfg.AudioFormat.String()
	}
	format := config.AudioFormat(strings.ToLower(g.format))
	if !format.Valid() {
		return fmt.Errorf("unsupported audio format %q", g.format)
	}
	g.format = format.String()
	if g.parallel == 0 {
		g.parallel = cfg.MaxParallel
	}
	g.parallel = config.ClampParallel(g.parallel)
	return nil
}

func runGet(cmd *cobra.Command, opts *cliOptions, getOpts *getOptions, urls []string) error {
	if err := getOpts.resolve(opts.cfg); err != nil {
		return err
	}
	if err := platform.CreateDirectoryIfNotExists(getOpts.dir); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ctx, cancel := signalAwareContext(cmd.Context())
	defer cancel()

	logger := opts.logger
	tc := newToolchain(opts)

	if getOpts.metricsAddr != "" {
		stop, err := serveMetrics(getOpts.metricsAddr, tc.registry, logger)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		defer stop()
	}

	var recorder download.Recorder
	if !getOpts.noHistory {
		store, err := history.Open(opts.cfg.HistoryPath)
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
		} else {
			defer store.Close()
			recorder = store
		}
	}

	svc := download.NewService(download.Options{
		Tools:       tc.resolver,
		Runner:      tc.runner,
		Playlists:   platform.NewPlaylistService(tc.runner, tc.resolver.Extractor, logger),
		Recorder:    recorder,
		Logger:      logger,
		DownloadDir: getOpts.dir,
		AudioFormat: getOpts.format,
		MaxParallel: getOpts.parallel,
	})

	printer := &taskPrinter{out: cmd.OutOrStdout(), json: opts.jsonOutput}
	svc.SetUpdateCallback(func(task *model.DownloadTask) {
		if task.Status.IsFinished() {
			printer.print(task)
		}
	})

	rejected := 0
	for _, url := range urls {
		if err := enqueue(ctx, svc, url, getOpts.dir); err != nil {
			rejected++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", url, err)
		}
	}

	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()

	interrupted := false
	select {
	case <-done:
	case <-ctx.Done():
		interrupted = true
		logger.Info("interrupted, stopping downloads")
	}
	svc.Close()

	if interrupted {
		return exitSilent(exitInterrupted)
	}
	if rejected > 0 || countFailed(svc.GetAllTasks()) > 0 {
		return exitSilent(1)
	}
	return nil
}

func enqueue(ctx context.Context, svc download.Downloader, url, dir string) error {
	url = strings.TrimSpace(url)
	if !platform.IsPlaylistURL(url) {
		_, err := svc.AddTask(url, dir)
		return err
	}
	tasks, err := svc.AddPlaylist(ctx, url, dir)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return errors.New("playlist has no downloadable entries")
	}
	return nil
}

func countFailed(tasks []*model.DownloadTask) int {
	n := 0
	for _, task := range tasks {
		if task.Status != model.TaskStatusCompleted {
			n++
		}
	}
	return n
}

// taskPrinter serializes finished-task lines from concurrent callbacks
type taskPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	json bool
}

func (p *taskPrinter) print(task *model.DownloadTask) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		_ = writeJSON(p.out, taskView(task))
		return
	}
	fmt.Fprintln(p.out, taskLine(task))
}
