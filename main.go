package main

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"github.com/beonanotherplanet/tiskofy/internal/binaries"
	"github.com/beonanotherplanet/tiskofy/internal/config"
	"github.com/beonanotherplanet/tiskofy/internal/download"
	"github.com/beonanotherplanet/tiskofy/internal/history"
	"github.com/beonanotherplanet/tiskofy/internal/logging"
	"github.com/beonanotherplanet/tiskofy/internal/platform"
	"github.com/beonanotherplanet/tiskofy/internal/process"
	"github.com/beonanotherplanet/tiskofy/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.beonanotherplanet.tiskofy"
	AppName = "Tiskofy"
)

func main() {
	logger, err := logging.New(os.Getenv(config.EnvPrefix+"_LOGLEVEL"), version == "dev")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting", zap.String("version", version))

	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewMonoTheme())

	myWindow := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	myWindow.Resize(fyne.NewSize(ui.WindowWidth, ui.WindowHeight))

	settings := config.NewSettings(myApp)
	downloadsDir := settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(downloadsDir); err != nil {
		logger.Warn("failed to ensure downloads dir", zap.String("dir", downloadsDir), zap.Error(err))
	}

	resolver := binaries.New(binaries.Options{Logger: logger})
	runner := process.NewExecRunner(logger)

	var recorder download.Recorder
	store, err := history.Open(config.DefaultHistoryPath())
	if err != nil {
		logger.Warn("history disabled", zap.Error(err))
	} else {
		defer store.Close()
		recorder = store
	}

	downloadSvc := download.NewService(download.Options{
		Tools:       resolver,
		Runner:      runner,
		Playlists:   platform.NewPlaylistService(runner, resolver.Extractor, logger),
		Recorder:    recorder,
		Logger:      logger,
		DownloadDir: downloadsDir,
		AudioFormat: settings.GetAudioFormat().String(),
		MaxParallel: settings.GetMaxParallelDownloads(),
	})
	defer downloadSvc.Close()

	ui.NewRootUI(myWindow, myApp, downloadSvc, logger)

	myWindow.ShowAndRun()
}
