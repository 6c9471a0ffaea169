package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/beonanotherplanet/tiskofy/internal/platform"
)

// EnvPrefix is prepended to every environment override, e.g. TISKOFY_AUDIOFORMAT
const EnvPrefix = "TISKOFY"

// DefaultLogLevel is used by the CLI when nothing else is configured
const DefaultLogLevel = "info"

// ErrInvalidConfig is wrapped by every validation failure from Load
var ErrInvalidConfig = errors.New("invalid config")

// FileConfig is the CLI configuration read from file and environment
type FileConfig struct {
	DownloadDir string      `mapstructure:"downloadDir"`
	AudioFormat AudioFormat `mapstructure:"audioFormat"`
	MaxParallel int         `mapstructure:"maxParallel"`
	LogLevel    string      `mapstructure:"logLevel"`
	HistoryPath string      `mapstructure:"historyPath"`
	InstallDir  string      `mapstructure:"installDir"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	downloadDir, err := platform.GetHomeDownloadsDir()
	if err != nil {
		downloadDir = "."
	}
	v.SetDefault("downloadDir", downloadDir)
	v.SetDefault("audioFormat", string(DefaultAudioFormat))
	v.SetDefault("maxParallel", DefaultParallel)
	v.SetDefault("logLevel", DefaultLogLevel)
	v.SetDefault("historyPath", DefaultHistoryPath())
	v.SetDefault("installDir", "")
}

// DefaultHistoryPath is the bbolt file shared by the desktop app and the CLI
func DefaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tiskofy-history.db"
	}
	return filepath.Join(dir, "tiskofy", "history.db")
}

// Load reads the CLI configuration. An empty path uses defaults and the
// environment only; a non-empty path must exist and may be YAML, TOML or JSON.
func Load(path string) (*FileConfig, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *FileConfig) normalize() error {
	c.AudioFormat = AudioFormat(strings.ToLower(strings.TrimSpace(string(c.AudioFormat))))
	if !c.AudioFormat.Valid() {
		return fmt.Errorf("%w: audioFormat %q is not supported", ErrInvalidConfig, c.AudioFormat)
	}
	c.MaxParallel = ClampParallel(c.MaxParallel)
	if strings.TrimSpace(c.DownloadDir) == "" {
		return fmt.Errorf("%w: downloadDir must not be empty", ErrInvalidConfig)
	}
	return nil
}
