package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"scoreview/internal/storage"
	"scoreview/internal/view"
)

// Config represents configuration data for the scoreboard viewer.
type Config struct {
	ListenAddr          string       `yaml:"listen_addr"`
	DataDirectory       string       `yaml:"data_directory"`
	PushIntervalSeconds int          `yaml:"push_interval_seconds"`
	Gameserver          Gameserver   `yaml:"gameserver"`
	Storage             Storage      `yaml:"storage"`
	Density             view.Density `yaml:"density"`
	Services            []Service    `yaml:"services"`
	Log                 Log          `yaml:"log"`
}

// Gameserver describes how to reach the gameserver's JSON endpoints.
type Gameserver struct {
	BaseURL        string    `yaml:"base_url"`
	APIKey         string    `yaml:"api_key"`
	SessionCookie  string    `yaml:"session_cookie"`
	TimeoutSeconds int       `yaml:"timeout_seconds"`
	Endpoints      Endpoints `yaml:"endpoints"`
}

// Endpoints are the paths of the result endpoints relative to the base URL.
type Endpoints struct {
	Scoreboard    string `yaml:"scoreboard"`
	Status        string `yaml:"status"`
	History       string `yaml:"history"`
	MissingChecks string `yaml:"missing_checks"`
}

// Storage selects the snapshot backend.
type Storage struct {
	Driver       string `yaml:"driver"`
	Path         string `yaml:"path"`
	HistoryLimit int    `yaml:"history_limit"`
}

// Service is a selectable service shown in the selector of the internal views.
type Service struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		ListenAddr:          ":8080",
		DataDirectory:       filepath.Join(".dist", "data"),
		PushIntervalSeconds: 10,
		Gameserver: Gameserver{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 10,
			Endpoints: Endpoints{
				Scoreboard:    "/competition/scoreboard.json",
				Status:        "/competition/status.json",
				History:       "/internal/service-history.json",
				MissingChecks: "/internal/missing-checks.json",
			},
		},
		Storage: Storage{
			Driver:       storage.DriverFile,
			HistoryLimit: 500,
		},
		Density: view.DefaultDensity(),
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	defaults := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = defaults.ListenAddr
	}
	if c.DataDirectory == "" {
		c.DataDirectory = defaults.DataDirectory
	}
	if c.PushIntervalSeconds <= 0 {
		c.PushIntervalSeconds = defaults.PushIntervalSeconds
	}
	if c.Gameserver.TimeoutSeconds <= 0 {
		c.Gameserver.TimeoutSeconds = defaults.Gameserver.TimeoutSeconds
	}
	if c.Storage.HistoryLimit <= 0 {
		c.Storage.HistoryLimit = defaults.Storage.HistoryLimit
	}
	if c.Density.Threshold <= 0 {
		c.Density.Threshold = defaults.Density.Threshold
	}
	if c.Density.Step <= 0 {
		c.Density.Step = defaults.Density.Step
	}

	c.Gameserver.BaseURL = strings.TrimSuffix(c.Gameserver.BaseURL, "/")
	if c.Gameserver.BaseURL == "" {
		return errors.New("gameserver base_url is required")
	}
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = storage.DriverFile
	case storage.DriverFile, storage.DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	seen := make(map[string]struct{}, len(c.Services))
	for i, svc := range c.Services {
		if svc.Slug == "" {
			return fmt.Errorf("service %d is missing slug", i)
		}
		if _, dup := seen[svc.Slug]; dup {
			return fmt.Errorf("service %s is defined twice", svc.Slug)
		}
		seen[svc.Slug] = struct{}{}
		if svc.Name == "" {
			c.Services[i].Name = svc.Slug
		}
	}
	return nil
}

// Endpoint returns the gameserver path serving the payload of a view kind.
func (c Config) Endpoint(kind string) (string, bool) {
	e := c.Gameserver.Endpoints
	var path string
	switch kind {
	case view.KindScoreboard:
		path = e.Scoreboard
	case view.KindStatus:
		path = e.Status
	case view.KindHistory:
		path = e.History
	case view.KindMissingChecks:
		path = e.MissingChecks
	}
	return path, path != ""
}

// PushInterval is the period of the background refresh of the public views.
func (c Config) PushInterval() time.Duration {
	return time.Duration(c.PushIntervalSeconds) * time.Second
}

// RequestTimeout bounds a single gameserver request.
func (g Gameserver) RequestTimeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return time.Duration(DefaultConfig().Gameserver.TimeoutSeconds) * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// StoragePath resolves the snapshot file or database location.
func (c Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Driver == storage.DriverSQLite {
		return filepath.Join(c.DataDirectory, "snapshots.db")
	}
	return filepath.Join(c.DataDirectory, "snapshots.json")
}
