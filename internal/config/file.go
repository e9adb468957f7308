package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with YAML tags. Durations are strings so the
// file can say "12h" the same way the environment does.
type fileConfig struct {
	Port             *int    `yaml:"port"`
	M3UURL           *string `yaml:"m3u_url"`
	EPGURL           *string `yaml:"epg_url"`
	EnableEPG        *bool   `yaml:"enable_epg"`
	UserAgent        *string `yaml:"user_agent"`
	UpdateInterval   *string `yaml:"update_interval"`
	FetchTimeout     *string `yaml:"fetch_timeout"`
	MaxGuidePrograms *int    `yaml:"epg_max_programs"`
	SnapshotPath     *string `yaml:"snapshot_path"`
	ProxyURL         *string `yaml:"proxy_url"`
	ProxyPassword    *string `yaml:"proxy_password"`
	LogLevel         *string `yaml:"log_level"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.M3UURL != nil {
		c.M3UURL = *fc.M3UURL
	}
	if fc.EPGURL != nil {
		c.EPGURL = *fc.EPGURL
	}
	if fc.EnableEPG != nil {
		c.EnableEPG = *fc.EnableEPG
	}
	if fc.UserAgent != nil {
		c.UserAgent = *fc.UserAgent
	}
	if fc.UpdateInterval != nil {
		d, err := time.ParseDuration(*fc.UpdateInterval)
		if err != nil {
			return fmt.Errorf("update_interval: %w", err)
		}
		c.UpdateInterval = d
	}
	if fc.FetchTimeout != nil {
		d, err := time.ParseDuration(*fc.FetchTimeout)
		if err != nil {
			return fmt.Errorf("fetch_timeout: %w", err)
		}
		c.FetchTimeout = d
	}
	if fc.MaxGuidePrograms != nil {
		c.MaxGuidePrograms = *fc.MaxGuidePrograms
	}
	if fc.SnapshotPath != nil {
		c.SnapshotPath = *fc.SnapshotPath
	}
	if fc.ProxyURL != nil {
		c.ProxyURL = *fc.ProxyURL
	}
	if fc.ProxyPassword != nil {
		c.ProxyPassword = *fc.ProxyPassword
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	return nil
}
