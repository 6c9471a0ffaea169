package config

import (
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"

	"github.com/beonanotherplanet/tiskofy/internal/platform"
)

// Settings keys for Fyne preferences
const (
	KeyDownloadDir   = "download_directory"
	KeyMaxParallel   = "max_parallel_downloads"
	KeyAudioFormat   = "audio_format"
	KeyLanguage      = "app_language"
	KeyAskForFolder  = "ask_for_folder"
	KeyRevealOnReady = "reveal_on_complete"
)

// Default values
const (
	DefaultLanguage      = "system"
	DefaultAskForFolder  = true
	DefaultRevealOnReady = false
)

// Settings manages application configuration
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	dir := s.app.Preferences().String(KeyDownloadDir)
	if dir == "" {
		defaultDir, err := platform.GetHomeDownloadsDir()
		if err != nil {
			defaultDir = filepath.Join(os.TempDir(), "tiskofy")
		}
		s.SetDownloadDirectory(defaultDir)
		return defaultDir
	}
	return dir
}

// SetDownloadDirectory sets the download directory
func (s *Settings) SetDownloadDirectory(dir string) {
	s.app.Preferences().SetString(KeyDownloadDir, dir)
}

// GetMaxParallelDownloads returns the maximum number of parallel downloads
func (s *Settings) GetMaxParallelDownloads() int {
	value := s.app.Preferences().Int(KeyMaxParallel)
	if value <= 0 {
		s.SetMaxParallelDownloads(DefaultParallel)
		return DefaultParallel
	}
	return value
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads
func (s *Settings) SetMaxParallelDownloads(count int) {
	s.app.Preferences().SetInt(KeyMaxParallel, ClampParallel(count))
}

// GetAudioFormat returns the configured audio format, resetting unknown values
func (s *Settings) GetAudioFormat() AudioFormat {
	format := AudioFormat(s.app.Preferences().String(KeyAudioFormat))
	if !format.Valid() {
		s.SetAudioFormat(DefaultAudioFormat)
		return DefaultAudioFormat
	}
	return format
}

// SetAudioFormat sets the audio format; unknown formats fall back to the default
func (s *Settings) SetAudioFormat(format AudioFormat) {
	if !format.Valid() {
		format = DefaultAudioFormat
	}
	s.app.Preferences().SetString(KeyAudioFormat, string(format))
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	lang := s.app.Preferences().String(KeyLanguage)
	if lang == "" {
		s.SetLanguage(DefaultLanguage)
		return DefaultLanguage
	}
	return lang
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	s.app.Preferences().SetString(KeyLanguage, lang)
}

// GetAskForFolder returns whether the folder picker opens on every download
func (s *Settings) GetAskForFolder() bool {
	return s.app.Preferences().BoolWithFallback(KeyAskForFolder, DefaultAskForFolder)
}

// SetAskForFolder sets whether the folder picker opens on every download
func (s *Settings) SetAskForFolder(ask bool) {
	s.app.Preferences().SetBool(KeyAskForFolder, ask)
}

// GetRevealOnComplete returns whether finished files are shown in the file manager
func (s *Settings) GetRevealOnComplete() bool {
	return s.app.Preferences().BoolWithFallback(KeyRevealOnReady, DefaultRevealOnReady)
}

// SetRevealOnComplete sets whether finished files are shown in the file manager
func (s *Settings) SetRevealOnComplete(reveal bool) {
	s.app.Preferences().SetBool(KeyRevealOnReady, reveal)
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"ko":     "한국어",
	}
}
