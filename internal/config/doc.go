// Package config holds user settings: fyne preferences for the desktop app
// and a viper-backed file and environment configuration for the CLI.
package config
