package model

// TaskStatus is the lifecycle state of a download task
type TaskStatus string

const (
	// TaskStatusPending means the task is queued behind the parallel limit
	TaskStatusPending TaskStatus = "Pending"

	// TaskStatusStarting means tools are being resolved and the title probed
	TaskStatusStarting TaskStatus = "Starting"

	// TaskStatusDownloading means yt-dlp is extracting audio
	TaskStatusDownloading TaskStatus = "Downloading"

	// TaskStatusStopping means a cancel was requested and is being applied
	TaskStatusStopping TaskStatus = "Stopping"

	// TaskStatusStopped means the user canceled the task
	TaskStatusStopped TaskStatus = "Stopped"

	// TaskStatusCompleted means the audio file was written
	TaskStatusCompleted TaskStatus = "Completed"

	// TaskStatusError means the task failed; see DownloadTask.LastError
	TaskStatusError TaskStatus = "Error"
)

// String returns the status name
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true while the task holds a parallel-download slot
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusStarting || ts == TaskStatusDownloading || ts == TaskStatusStopping
}

// IsFinished returns true for terminal states
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusStopped || ts == TaskStatusError
}
