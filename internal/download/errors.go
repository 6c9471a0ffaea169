package download

import "errors"

var (
	ErrInvalidURL    = errors.New("invalid URL")
	ErrPlaylistURL   = errors.New("playlist URL, use AddPlaylist")
	ErrDuplicateTask = errors.New("task already exists for URL")
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskNotActive = errors.New("task is not active")
	ErrTaskActive    = errors.New("task is still running")
	ErrNoOutputDir   = errors.New("no output directory")
	ErrNoPlaylists   = errors.New("playlist expansion is not configured")
	ErrServiceClosed = errors.New("download service is closed")
)
