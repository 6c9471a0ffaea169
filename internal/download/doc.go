package download

// Package download runs the audio download pipeline: it resolves yt-dlp and
// ffmpeg on demand, probes the title, extracts audio into the chosen folder,
// and tracks every request as a task with concurrency limits and cancel.
