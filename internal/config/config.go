package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"streampresence/pkg/media"
)

var (
	ErrMissingClientID = errors.New("DISCORD_CLIENT_ID is required")
	ErrMissingTMDBKey  = errors.New("TMDB_API_KEY is required")
)

// Config holds all application configuration
type Config struct {
	// Discord application identities
	Discord DiscordConfig

	// Artwork lookup
	TMDB TMDBConfig

	// Watch history database
	Database DatabaseConfig

	// Poll loop
	Tracker TrackerConfig

	// Daemon process
	Daemon DaemonConfig

	// Logging
	Log LogConfig

	// Status web server
	Web WebConfig
}

// DiscordConfig holds the default application id and per-service overrides
type DiscordConfig struct {
	ClientID        string
	DisneyClientID  string
	NetflixClientID string
	Timeout         time.Duration
}

type TMDBConfig struct {
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
}

type DatabaseConfig struct {
	Path string // Empty means ~/.config/streampresence/streampresence.db
}

// TrackerConfig holds poll loop behavior
type TrackerConfig struct {
	PollInterval    time.Duration // Base interval while watching
	MinPollInterval time.Duration
	MaxPollInterval time.Duration
	RefreshPeriod   time.Duration // Forced re-push of unchanged content
	ErrorThreshold  int           // Consecutive failed cycles before a forced reconnect
}

type DaemonConfig struct {
	PIDFile string
}

type LogConfig struct {
	Level string
	File  string // Empty means stdout
}

type WebConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Discord: DiscordConfig{
			Timeout: 5 * time.Second,
		},
		TMDB: TMDBConfig{
			BaseURL:  "https://api.themoviedb.org/3",
			CacheTTL: 6 * time.Hour,
		},
		Tracker: TrackerConfig{
			PollInterval:    5 * time.Second,
			MinPollInterval: 1 * time.Second,
			MaxPollInterval: 60 * time.Second,
			RefreshPeriod:   180 * time.Second,
			ErrorThreshold:  3,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/streampresence-%d.pid", os.Getuid()),
		},
		Log: LogConfig{
			Level: "info",
		},
		Web: WebConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    8787,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Tracker.RefreshPeriod < 0 {
		return fmt.Errorf("refresh period cannot be negative")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// RequireCredentials reports a missing Discord identity or TMDB key. Only
// the commands that broadcast need them.
func (c *Config) RequireCredentials() error {
	if c.Discord.ClientID == "" {
		return ErrMissingClientID
	}
	if c.TMDB.APIKey == "" {
		return ErrMissingTMDBKey
	}
	return nil
}

// IdentityFor returns the Discord application id used while broadcasting
// svc. Services without an override use the default id.
func (c *Config) IdentityFor(svc media.Service) string {
	switch svc {
	case media.DisneyPlus:
		if c.Discord.DisneyClientID != "" {
			return c.Discord.DisneyClientID
		}
	case media.Netflix:
		if c.Discord.NetflixClientID != "" {
			return c.Discord.NetflixClientID
		}
	}
	return c.Discord.ClientID
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// DatabasePath resolves the database location
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "streampresence.db"), nil
}

// ConfigDir returns ~/.config/streampresence
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "streampresence"), nil
}

func mask(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// String returns a string representation of the config with secrets masked
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Discord:
    Client ID: %s
    Disney+ Client ID: %s
    Netflix Client ID: %s
  TMDB:
    API Key: %s
  Database:
    Path: %s
  Tracker:
    Poll Interval: %v
    Refresh Period: %v
  Daemon:
    PID File: %s
  Log:
    Level: %s
    File: %s
  Web:
    Enabled: %v
    Host: %s
    Port: %d`,
		mask(c.Discord.ClientID),
		mask(c.Discord.DisneyClientID),
		mask(c.Discord.NetflixClientID),
		mask(c.TMDB.APIKey),
		c.Database.Path,
		c.Tracker.PollInterval,
		c.Tracker.RefreshPeriod,
		c.Daemon.PIDFile,
		c.Log.Level,
		c.Log.File,
		c.Web.Enabled,
		c.Web.Host,
		c.Web.Port,
	)
}
