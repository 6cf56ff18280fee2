package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML configuration. Every field has a
// working default; environment variables override file values.
type fileConfig struct {
	Port     string `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	UserAgent       string `yaml:"user_agent"`
	DefaultCurrency string `yaml:"default_currency"`
	MaxTopicResults int    `yaml:"max_topic_results"`
	MaxBlogs        int    `yaml:"max_blogs"`

	Browser browserConfig `yaml:"browser"`
	Search  searchConfig  `yaml:"search"`

	// Background loop intervals, as time.ParseDuration strings.
	MonitorInterval string `yaml:"monitor_interval"`
	PruneInterval   string `yaml:"prune_interval"`
}

// browserConfig controls the headless Chrome adapter.
type browserConfig struct {
	Remote   string `yaml:"remote"` // WebSocket URL of an external Chrome
	Disabled bool   `yaml:"disabled"`
}

// searchConfig points at the hosted search API.
type searchConfig struct {
	Host string `yaml:"host"`
	Key  string `yaml:"key"`
}

// loadConfig reads a YAML configuration file. An empty path returns the
// zero config so the binary runs on defaults alone.
func loadConfig(path string) (*fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		cfg.applyDefaults()
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *fileConfig) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.DBPath == "" {
		c.DBPath = "data/webcrawl.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MonitorInterval == "" {
		c.MonitorInterval = "10m"
	}
	if c.PruneInterval == "" {
		c.PruneInterval = "1h"
	}
}

// intervals parses the background loop intervals, falling back to the
// defaults on malformed values.
func (c *fileConfig) intervals() (monitor, prune time.Duration) {
	monitor, err := time.ParseDuration(c.MonitorInterval)
	if err != nil || monitor <= 0 {
		monitor = 10 * time.Minute
	}
	prune, err = time.ParseDuration(c.PruneInterval)
	if err != nil || prune <= 0 {
		prune = time.Hour
	}
	return monitor, prune
}
