// Package binaries locates and installs the external tools tiskofy drives:
// yt-dlp (required) and ffmpeg (optional).
//
// Tools are installed next to the running executable and looked up there on
// later launches. Within one process each tool is acquired at most once, even
// when many callers ask for it at the same time; see Slot.
package binaries
