package ui

import "time"

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconFolder   = "📁"
)

// Text fragments
const (
	MiddleDotSeparator = " · "
	StatusPrefix       = "status: "
)

// Window sizing
const (
	WindowWidth  float32 = 560
	WindowHeight float32 = 420
	LogoSize     float32 = 32
)

// Playlist expansion runs off the UI goroutine and is bounded by this
const PlaylistExpandTimeout = 2 * time.Minute
