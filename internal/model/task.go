package model

import (
	"path/filepath"
	"strings"
	"time"
)

// DownloadTask is one URL being turned into an audio file
type DownloadTask struct {
	ID          string
	URL         string
	Source      Source
	Title       string // title reported by yt-dlp, empty until probed
	OutputDir   string // directory chosen by the user
	OutputPath  string // final audio file, set once known
	AudioFormat string
	Status      TaskStatus
	LastError   string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// GetDisplayTitle returns title, file name, or URL in order of preference
func (dt *DownloadTask) GetDisplayTitle() string {
	if dt.Title != "" && !strings.HasPrefix(dt.Title, "http") {
		return dt.Title
	}

	if dt.OutputPath != "" {
		name := filepath.Base(dt.OutputPath)
		if idx := strings.LastIndex(name, "."); idx > 0 {
			name = name[:idx]
		}
		return name
	}

	return dt.URL
}

// Duration returns how long the task ran, or has been running so far.
func (dt *DownloadTask) Duration() time.Duration {
	if dt.StartedAt.IsZero() {
		return 0
	}
	if dt.FinishedAt.IsZero() {
		return time.Since(dt.StartedAt)
	}
	return dt.FinishedAt.Sub(dt.StartedAt)
}

// Clone returns a copy safe to hand to another goroutine.
func (dt *DownloadTask) Clone() *DownloadTask {
	if dt == nil {
		return nil
	}
	c := *dt
	return &c
}
