package download

import (
	"context"

	"github.com/beonanotherplanet/tiskofy/internal/model"
)

// Downloader defines the interface for the download service.
type Downloader interface {
	SetUpdateCallback(func(*model.DownloadTask))
	AddTask(url, outputDir string) (*model.DownloadTask, error)
	AddPlaylist(ctx context.Context, url, outputDir string) ([]*model.DownloadTask, error)
	GetTask(id string) (*model.DownloadTask, bool)
	GetAllTasks() []*model.DownloadTask
	StopTask(id string) error
	RemoveTask(id string) error

	// SetAudioFormat configures the --audio-format passed to yt-dlp
	SetAudioFormat(format string)

	// SetMaxParallelDownloads sets the maximum number of parallel downloads
	SetMaxParallelDownloads(max int)
}

// ToolResolver hands out paths to the external tools, acquiring them on first
// use. *binaries.Resolver satisfies it.
type ToolResolver interface {
	Extractor(ctx context.Context) (string, error)
	Transcoder(ctx context.Context) (string, bool, error)
}

// Recorder receives every task once it reaches a terminal status.
type Recorder interface {
	Record(task *model.DownloadTask) error
}
