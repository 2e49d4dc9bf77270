// Package config provides configuration file and environment variable support for taskman.
//
// Configuration priority (highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Config file (~/.taskman/config.toml)
//  4. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the taskman configuration.
type Config struct {
	// DataDir holds the store files and, by default, uploads.
	// Default: ~/.taskman
	DataDir string `toml:"data_dir"`

	// Store is the name of the active store file inside DataDir.
	// Default: tickets.db
	Store string `toml:"store"`

	// UploadsDir is where attachments are written.
	// Default: <data_dir>/uploads
	UploadsDir string `toml:"uploads_dir"`

	// NoColor disables colored output.
	// Default: false
	NoColor bool `toml:"no_color"`

	View    ViewConfig    `toml:"view"`
	Uploads UploadsConfig `toml:"uploads"`
	Server  ServerConfig  `toml:"server"`
	Backup  BackupConfig  `toml:"backup"`
}

// UploadsConfig restricts which files may be attached to tickets.
type UploadsConfig struct {
	// AllowedExt lists accepted file extensions. Empty accepts any file.
	AllowedExt []string `toml:"allowed_ext"`
}

// ViewConfig holds the default board presentation.
type ViewConfig struct {
	// SortByDue orders columns by due date, undated tickets last.
	// Default: true
	SortByDue bool `toml:"sort_by_due"`

	// SortByPriority orders columns by priority (after due date when both are on).
	SortByPriority bool `toml:"sort_by_priority"`

	// HideDone leaves the Done column out of the board.
	HideDone bool `toml:"hide_done"`
}

// ServerConfig holds the HTTP API listen address.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// BackupConfig controls rotating copies of the active store file.
type BackupConfig struct {
	Enabled       bool   `toml:"enabled"`
	IntervalHours int    `toml:"interval_hours"`
	MaxCount      int    `toml:"max_count"`
	Path          string `toml:"path"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "", // Empty means use db.DefaultDataDir
		Store:   "tickets.db",
		NoColor: false,
		View: ViewConfig{
			SortByDue: true,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 18090,
		},
		Backup: BackupConfig{
			Enabled:       true,
			IntervalHours: 24,
			MaxCount:      5,
		},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".taskman", "config.toml")
}

// Load loads configuration from the config file and environment variables.
// Environment variables take precedence over file settings.
// Returns default config if the config file doesn't exist.
func Load() (*Config, error) {
	return LoadFromPath(DefaultConfigPath())
}

// LoadFromPath loads configuration from a specific file path.
// Environment variables take precedence over file settings.
// Returns default config if the config file doesn't exist.
func LoadFromPath(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if _, err := toml.DecodeFile(configPath, cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment variable overrides to the config.
func (c *Config) applyEnv() {
	if dir := os.Getenv("TASKMAN_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}

	if store := os.Getenv("TASKMAN_STORE"); store != "" {
		c.Store = store
	}

	if uploads := os.Getenv("TASKMAN_UPLOADS_DIR"); uploads != "" {
		c.UploadsDir = uploads
	}

	if exts, ok := os.LookupEnv("TASKMAN_UPLOADS_ALLOWED_EXT"); ok {
		c.Uploads.AllowedExt = nil
		for _, ext := range strings.Split(exts, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				c.Uploads.AllowedExt = append(c.Uploads.AllowedExt, ext)
			}
		}
	}

	// TASKMAN_NO_COLOR - any value means true
	if _, ok := os.LookupEnv("TASKMAN_NO_COLOR"); ok {
		c.NoColor = true
	}

	if port := os.Getenv("TASKMAN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Backup.Enabled && c.Backup.MaxCount < 1 {
		return fmt.Errorf("backup.max_count must be at least 1 when backups are enabled")
	}
	for _, ext := range c.Uploads.AllowedExt {
		if strings.ContainsAny(strings.TrimPrefix(ext, "."), `./\ `) || strings.Trim(ext, ". ") == "" {
			return fmt.Errorf("uploads.allowed_ext entry %q is not a file extension", ext)
		}
	}
	if c.Backup.IntervalHours < 0 {
		return fmt.Errorf("backup.interval_hours cannot be negative")
	}
	return nil
}

// GetDataDir returns the data directory, using the default if not set.
func (c *Config) GetDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return "~/.taskman"
}

// GetUploadsDir returns the attachment directory, defaulting to <data_dir>/uploads.
func (c *Config) GetUploadsDir() string {
	if c.UploadsDir != "" {
		return c.UploadsDir
	}
	return filepath.Join(c.GetDataDir(), "uploads")
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SampleConfig returns a sample configuration file content.
func SampleConfig() string {
	return `# taskman Configuration File
# Location: ~/.taskman/config.toml
#
# Configuration priority (highest to lowest):
#   1. Command-line flags
#   2. Environment variables (TASKMAN_*)
#   3. This config file
#   4. Built-in defaults

# Directory holding store files
# Default: ~/.taskman
# Environment: TASKMAN_DATA_DIR
# data_dir = "~/.taskman"

# Active store (a *.db file inside data_dir)
# Default: tickets.db
# Environment: TASKMAN_STORE
# store = "tickets.db"

# Directory for ticket attachments
# Default: <data_dir>/uploads
# Environment: TASKMAN_UPLOADS_DIR
# uploads_dir = "~/.taskman/uploads"

# Disable colored output
# Default: false
# Environment: TASKMAN_NO_COLOR (any value = true)
# no_color = false

[view]
# Sort columns by due date (undated tickets last)
# sort_by_due = true

# Sort columns by priority (High, Medium, Low)
# sort_by_priority = false

# Leave the Done column out of the board
# hide_done = false

[uploads]
# Accepted attachment types; leave empty to accept any file
# Environment: TASKMAN_UPLOADS_ALLOWED_EXT (comma separated)
# allowed_ext = ["pdf", "png", "jpg", "xlsx", "csv", "txt", "docx", "msg"]

[server]
# Listen address for "taskman serve"
# Environment: TASKMAN_PORT
# host = "localhost"
# port = 18090

[backup]
# Rotating copies of the active store, taken before commands run
# enabled = true
# interval_hours = 24
# max_count = 5
# path = ""   # defaults to the data directory
`
}

// WriteConfigFile writes the sample config file to the specified path.
// Creates parent directories if needed.
func WriteConfigFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(SampleConfig()), 0644)
}
