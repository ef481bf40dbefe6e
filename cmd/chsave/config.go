// CLAUDE:SUMMARY Defines chsave config structs and parses YAML configuration files with defaults.
package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level chsave configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Server  ServerConfig  `yaml:"server"`
	Journal JournalConfig `yaml:"journal"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"` // WebSocket URL of an external Chrome; empty = launch local
	DownloadDir     string        `yaml:"download_dir"`
	Stealth         bool          `yaml:"stealth"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// JournalConfig controls the export journal database.
type JournalConfig struct {
	Path          string `yaml:"path"` // empty = journal disabled
	RetentionDays int    `yaml:"retention_days"`
}

// LoadConfig reads a YAML configuration file. Empty path yields env-backed
// defaults only.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Remote == "" {
		c.Browser.Remote = os.Getenv("CHROME_REMOTE")
	}
	if c.Browser.DownloadDir == "" {
		c.Browser.DownloadDir = os.Getenv("DOWNLOAD_DIR")
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Server.Port == "" {
		c.Server.Port = env("PORT", "8086")
	}
	if c.Journal.Path == "" {
		c.Journal.Path = os.Getenv("JOURNAL_DB")
	}
	if c.Journal.RetentionDays <= 0 {
		c.Journal.RetentionDays = 30
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
