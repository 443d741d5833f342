// Package config handles client configuration.
//
// Settings come from three layers, later layers winning:
//   - Built-in defaults
//   - A flat key = value config file in the data directory
//   - Command-line flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds client runtime configuration.
type Config struct {
	// Core
	DataDir string `conf:"datadir"`

	// Node endpoint
	Node NodeConfig

	// Logging
	Log LogConfig
}

// NodeConfig holds the target node settings.
type NodeConfig struct {
	URI      string `conf:"node.uri"`
	CellSlug string `conf:"node.cell"`
	Timeout  int    `conf:"node.timeout"` // seconds
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.knishio
//	macOS:   ~/Library/Application Support/KnishIO
//	Windows: %APPDATA%\KnishIO
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".knishio"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KnishIO")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KnishIO")
		}
		return filepath.Join(home, "AppData", "Roaming", "KnishIO")
	default:
		return filepath.Join(home, ".knishio")
	}
}

// KeystoreDir returns the encrypted identity storage directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, "keystore")
}

// CacheDir returns the molecule/wallet cache database directory.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "knishio.conf")
}
