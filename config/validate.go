package config

import (
	"fmt"
	"net/url"
)

// Validate checks runtime client config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}

	u, err := url.Parse(cfg.Node.URI)
	if err != nil {
		return fmt.Errorf("node.uri is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("node.uri must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("node.uri is missing a host")
	}

	if cfg.Node.Timeout <= 0 {
		return fmt.Errorf("node.timeout must be positive, got %d", cfg.Node.Timeout)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error")
	}

	return nil
}
