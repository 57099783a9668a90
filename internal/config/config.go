// Package config loads application settings from an optional JSON file
// with environment-variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amaumene/goviaplay/internal/constants"
)

// countryCodes maps the legacy numeric country setting to ISO codes.
var countryCodes = []string{"se", "dk", "no", "fi", "nl"}

// Config holds all runtime settings.
type Config struct {
	Port     string `json:"port"`
	LogLevel string `json:"log_level"`

	// Country selects the storefront: se, dk, no, fi or nl. The legacy
	// numeric form (0-4) is still accepted.
	Country string `json:"country"`

	Username string `json:"username"`
	Password string `json:"password"`

	// ProfileID overrides the account profile used for the starred list.
	ProfileID string `json:"profile_id"`

	// Subtitles toggles SAMI subtitle download on playback.
	Subtitles bool `json:"subtitles"`

	// DataDir holds the session database and downloaded subtitles.
	DataDir string `json:"data_dir"`

	// VideoDBPath points at the host's video database for watch-history
	// annotation. Empty disables annotation.
	VideoDBPath string `json:"video_db_path"`

	// M3UPath and M3UFilename control channel playlist export.
	M3UPath     string `json:"m3u_path"`
	M3UFilename string `json:"m3u_filename"`

	// Endpoint overrides replace the standard vendor hosts, for
	// instance when traffic goes through a local proxy. Empty uses the
	// real endpoints for the configured country.
	ContentBaseURL string `json:"content_base_url"`
	LoginBaseURL   string `json:"login_base_url"`
	StreamBaseURL  string `json:"stream_base_url"`
}

// Load reads the JSON file named by CONFIG_FILE (default config.json,
// missing file tolerated) and applies environment overrides.
func Load() (*Config, error) {
	cfg := &Config{}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.json"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Country = getEnvOrDefault("VIAPLAY_COUNTRY", cfg.Country)
	cfg.Username = getEnvOrDefault("VIAPLAY_USERNAME", cfg.Username)
	cfg.Password = getEnvOrDefault("VIAPLAY_PASSWORD", cfg.Password)
	cfg.ProfileID = getEnvOrDefault("VIAPLAY_PROFILE_ID", cfg.ProfileID)
	cfg.DataDir = getEnvOrDefault("DATA_DIR", cfg.DataDir)
	cfg.VideoDBPath = getEnvOrDefault("VIDEO_DB_PATH", cfg.VideoDBPath)
	cfg.M3UPath = getEnvOrDefault("M3U_PATH", cfg.M3UPath)
	cfg.M3UFilename = getEnvOrDefault("M3U_FILENAME", cfg.M3UFilename)
	cfg.ContentBaseURL = getEnvOrDefault("CONTENT_BASE_URL", cfg.ContentBaseURL)
	cfg.LoginBaseURL = getEnvOrDefault("LOGIN_BASE_URL", cfg.LoginBaseURL)
	cfg.StreamBaseURL = getEnvOrDefault("STREAM_BASE_URL", cfg.StreamBaseURL)
	if v := os.Getenv("VIAPLAY_SUBTITLES"); v != "" {
		cfg.Subtitles = v == "1" || v == "true"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate applies defaults and normalizes the country setting.
func (c *Config) Validate() error {
	if c.Port == "" {
		c.Port = constants.DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = constants.DefaultLogLevel
	}
	if c.Country == "" {
		c.Country = constants.DefaultCountry
	}
	if len(c.Country) == 1 && c.Country[0] >= '0' && c.Country[0] <= '4' {
		c.Country = countryCodes[c.Country[0]-'0']
	}
	valid := false
	for _, cc := range countryCodes {
		if c.Country == cc {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("config: unknown country %q", c.Country)
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.M3UFilename == "" {
		c.M3UFilename = "viaplay-channels.m3u"
	}
	return nil
}

// TLD returns the top-level domain for the configured country. The
// Dutch storefront lives under .com, all others under their country
// domain.
func (c *Config) TLD() string {
	if c.Country == "nl" {
		return "com"
	}
	return c.Country
}

// HasCredentials reports whether password login is configured.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// SessionDBPath is the bbolt session store location.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// SubtitleDir is where downloaded subtitle files are written.
func (c *Config) SubtitleDir() string {
	return filepath.Join(c.DataDir, "subtitles")
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
