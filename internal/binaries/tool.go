package binaries

import "runtime"

// Tool identifies one of the external executables the app depends on.
type Tool string

const (
	// Extractor is yt-dlp. Nothing works without it.
	Extractor Tool = "yt-dlp"
	// Transcoder is ffmpeg. yt-dlp can often do without it.
	Transcoder Tool = "ffmpeg"
)

// Source URLs. Both are fixed and unpinned; the trust model is "whatever the
// upstream serves today".
const (
	DefaultExtractorURL        = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp"
	DefaultExtractorWindowsURL = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp.exe"
	DefaultTranscoderURL       = "https://evermeet.cx/ffmpeg/ffmpeg-118896-g9f0970ee35.zip"
)

const windowsExeSuffix = ".exe"

// String returns the tool name.
func (t Tool) String() string {
	return string(t)
}

// BinaryName returns the file name the tool is installed under.
func (t Tool) BinaryName() string {
	return binaryName(t, runtime.GOOS)
}

func binaryName(t Tool, goos string) string {
	if goos == "windows" {
		return string(t) + windowsExeSuffix
	}
	return string(t)
}

func defaultExtractorURL(goos string) string {
	if goos == "windows" {
		return DefaultExtractorWindowsURL
	}
	return DefaultExtractorURL
}
