// Package config loads the addon configuration from the environment, with an
// optional YAML file providing defaults for anything the environment leaves
// unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied by Load before the file and environment are consulted.
const (
	DefaultPort           = 10000
	DefaultUserAgent      = "HbbTV/1.6.1"
	DefaultUpdateInterval = 12 * time.Hour
	DefaultFetchTimeout   = 45 * time.Second
)

// Config holds feed, cache and server settings.
type Config struct {
	Port int

	// Feeds
	M3UURL    string
	EPGURL    string
	EnableEPG bool
	UserAgent string // sent upstream when fetching feeds; also the stream UA fallback

	// Cache
	UpdateInterval   time.Duration
	FetchTimeout     time.Duration
	MaxGuidePrograms int    // per-channel EPG cap; 0 = unlimited
	SnapshotPath     string // last-known-good snapshot on disk; "" = disabled

	// Optional stream proxy passthrough
	ProxyURL      string
	ProxyPassword string

	LogLevel string
}

// Load builds the configuration: defaults, then the YAML file named by
// IPTV_CONFIG_FILE (if any), then environment variables. It fails when no
// playlist URL is configured or a value is out of range.
func Load() (*Config, error) {
	c := &Config{
		Port:           DefaultPort,
		UserAgent:      DefaultUserAgent,
		UpdateInterval: DefaultUpdateInterval,
		FetchTimeout:   DefaultFetchTimeout,
		LogLevel:       "info",
	}

	if path := strings.TrimSpace(os.Getenv("IPTV_CONFIG_FILE")); path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	c.applyEnv()

	if c.M3UURL == "" {
		return nil, fmt.Errorf("config: IPTV_M3U_URL is required")
	}
	if c.EnableEPG && c.EPGURL == "" {
		return nil, fmt.Errorf("config: IPTV_ENABLE_EPG is set but IPTV_EPG_URL is empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return nil, fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = DefaultUpdateInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.MaxGuidePrograms < 0 {
		c.MaxGuidePrograms = 0
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvInt("IPTV_PORT", c.Port)
	c.M3UURL = getEnv("IPTV_M3U_URL", c.M3UURL)
	c.EPGURL = getEnv("IPTV_EPG_URL", c.EPGURL)
	c.EnableEPG = getEnvBool("IPTV_ENABLE_EPG", c.EnableEPG)
	c.UserAgent = getEnv("IPTV_USER_AGENT", c.UserAgent)
	c.UpdateInterval = getEnvDuration("IPTV_UPDATE_INTERVAL", c.UpdateInterval)
	c.FetchTimeout = getEnvDuration("IPTV_FETCH_TIMEOUT", c.FetchTimeout)
	c.MaxGuidePrograms = getEnvInt("IPTV_EPG_MAX_PROGRAMS", c.MaxGuidePrograms)
	c.SnapshotPath = getEnv("IPTV_SNAPSHOT_PATH", c.SnapshotPath)
	c.ProxyURL = getEnv("IPTV_PROXY_URL", c.ProxyURL)
	c.ProxyPassword = getEnv("IPTV_PROXY_PASSWORD", c.ProxyPassword)
	c.LogLevel = getEnv("IPTV_LOG_LEVEL", c.LogLevel)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
