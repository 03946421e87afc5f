package config

import (
	"time"

	"github.com/spf13/viper"
)

// LoadFromEnv loads configuration from a .env file in the working or config
// directory and from environment variables, which take precedence. Invalid
// values are ignored and keep the current setting.
func LoadFromEnv(cfg *Config) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if dir, err := ConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AutomaticEnv()

	// Missing .env files are fine
	_ = v.ReadInConfig()

	apply(cfg, v)
}

func apply(cfg *Config, v *viper.Viper) {
	// Discord identities
	if id := v.GetString("DISCORD_CLIENT_ID"); id != "" {
		cfg.Discord.ClientID = id
	}
	if id := v.GetString("DISNEY_CLIENT_ID"); id != "" {
		cfg.Discord.DisneyClientID = id
	}
	if id := v.GetString("NETFLIX_CLIENT_ID"); id != "" {
		cfg.Discord.NetflixClientID = id
	}

	// TMDB
	if key := v.GetString("TMDB_API_KEY"); key != "" {
		cfg.TMDB.APIKey = key
	}

	// Database
	if dbPath := v.GetString("STREAMPRESENCE_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Tracker
	if seconds := v.GetInt("STREAMPRESENCE_POLL_INTERVAL"); seconds > 0 {
		interval := time.Duration(seconds) * time.Second
		if interval >= cfg.Tracker.MinPollInterval && interval <= cfg.Tracker.MaxPollInterval {
			cfg.Tracker.PollInterval = interval
		}
	}
	if seconds := v.GetInt("STREAMPRESENCE_REFRESH_PERIOD"); seconds > 0 {
		cfg.Tracker.RefreshPeriod = time.Duration(seconds) * time.Second
	}

	// Daemon
	if pidFile := v.GetString("STREAMPRESENCE_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	// Logging
	if level := v.GetString("STREAMPRESENCE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if file := v.GetString("STREAMPRESENCE_LOG_FILE"); file != "" {
		cfg.Log.File = file
	}

	// Web
	if v.IsSet("STREAMPRESENCE_WEB_ENABLED") {
		cfg.Web.Enabled = v.GetBool("STREAMPRESENCE_WEB_ENABLED")
	}
	if webHost := v.GetString("STREAMPRESENCE_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}
	if port := v.GetInt("STREAMPRESENCE_WEB_PORT"); port > 0 && port <= 65535 {
		cfg.Web.Port = port
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
