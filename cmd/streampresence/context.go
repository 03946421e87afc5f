package main

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"streampresence/internal/config"
	"streampresence/internal/database"
	"streampresence/internal/logging"
)

// commandContext carries lazily loaded state shared by subcommands.
type commandContext struct {
	logLevel *string
	cfg      *config.Config
}

func newCommandContext(logLevel *string) *commandContext {
	return &commandContext{logLevel: logLevel}
}

// config loads and validates the configuration once.
func (c *commandContext) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg := config.New()
	if c.logLevel != nil && *c.logLevel != "" {
		cfg.Log.Level = *c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// logger writes to the configured file, or to logFile when set and no file
// is configured.
func (c *commandContext) logger(cfg *config.Config, logFile string) (*logrus.Logger, error) {
	file := cfg.Log.File
	if file == "" {
		file = logFile
	}
	return logging.New(cfg.Log.Level, file)
}

// openRepository opens and migrates the history database.
func openRepository(cfg *config.Config) (*database.Repository, func(), error) {
	path, err := cfg.DatabasePath()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return database.NewRepository(db), func() { _ = db.Close() }, nil
}

func defaultLogFile() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return filepath.Join("/tmp", appName+".log")
	}
	return filepath.Join(dir, appName+".log")
}
