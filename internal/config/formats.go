package config

import "slices"

// AudioFormat is a yt-dlp --audio-format value
type AudioFormat string

const (
	AudioMP3  AudioFormat = "mp3"
	AudioM4A  AudioFormat = "m4a"
	AudioOpus AudioFormat = "opus"
	AudioFLAC AudioFormat = "flac"
	AudioWAV  AudioFormat = "wav"
)

// DefaultAudioFormat matches what the download button produces
const DefaultAudioFormat = AudioMP3

// AudioFormats lists the formats offered in settings and accepted by the CLI
// AudioFormats lists the formats yt-dlp is asked to extract, in menu order
var AudioFormats = []AudioFormat{AudioMP3, AudioM4A, AudioOpus, AudioFLAC, AudioWAV}

// Valid reports whether f is one of AudioFormats
func (f AudioFormat) Valid() bool {
	return slices.Contains(AudioFormats, f)
}

// String returns the yt-dlp format name
func (f AudioFormat) String() string {
	return string(f)
}

// Parallel download limits
const (
	MinParallel     = 1
	MaxParallel     = 10
	DefaultParallel = 2
)

// ClampParallel forces n into [MinParallel, MaxParallel]
func ClampParallel(n int) int {
	if n < MinParallel {
		return MinParallel
	}
	if n > MaxParallel {
		return MaxParallel
	}
	return n
}
