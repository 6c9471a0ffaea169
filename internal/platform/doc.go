package platform

// Package platform contains OS and site integration: URL classification,
// file name sanitizing, filesystem helpers, reveal-in-file-manager, and
// playlist expansion for YouTube playlists and SoundCloud sets.
