// Package config loads the archiver configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DefaultUserAgent is sent when an account does not configure one.
const DefaultUserAgent = "guildarchive/1.0"

// Account is one crawling account and the guilds it archives.
type Account struct {
	Name      string   `json:"name"`
	Token     string   `json:"token"`
	UserAgent string   `json:"user_agent"`
	Guilds    []string `json:"guilds"`
}

// Config is the archiver configuration.
type Config struct {
	DatabaseURL string    `json:"database_url"`
	StatusAddr  string    `json:"status_addr"`
	Accounts    []Account `json:"accounts"`
}

// Load reads the configuration file. A missing file yields an empty
// config so environment variables alone can drive a run. DATABASE_URL
// in the environment overrides the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// fall through to env overrides
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}

	for i := range cfg.Accounts {
		if cfg.Accounts[i].UserAgent == "" {
			cfg.Accounts[i].UserAgent = DefaultUserAgent
		}
	}
	return cfg, nil
}

// Validate checks the loaded config is runnable.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required (config file or DATABASE_URL)")
	}
	if len(c.Accounts) == 0 {
		return errors.New("at least one account is required")
	}
	for i, a := range c.Accounts {
		if a.Token == "" {
			return fmt.Errorf("account %d (%s): token is required", i, a.Name)
		}
	}
	return nil
}
