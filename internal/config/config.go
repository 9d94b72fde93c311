// Package config loads settings from yxflow.yaml, YXFLOW_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentic-research/yxflow/internal/journal"
	"github.com/agentic-research/yxflow/internal/locator"
	"github.com/agentic-research/yxflow/internal/logger"
)

const (
	// AppName names the config file and the per-user config directory.
	AppName = "yxflow"

	// EnvPrefix is the prefix of environment overrides, e.g. YXFLOW_CACHE_SIZE.
	EnvPrefix = "YXFLOW"
)

// Config holds the application configuration.
type Config struct {
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	Cache struct {
		// Size is the number of parsed workflows kept for reads; 0 disables.
		Size int `mapstructure:"size"`
	} `mapstructure:"cache"`

	Journal struct {
		Enabled bool   `mapstructure:"enabled"`
		Driver  string `mapstructure:"driver"` // sqlite or postgres
		DSN     string `mapstructure:"dsn"`
	} `mapstructure:"journal"`

	Server struct {
		HTTPAddr string `mapstructure:"http_addr"`
	} `mapstructure:"server"`

	// File is the config file that was read, or "" when none was found.
	File string `mapstructure:"-"`
}

// Logger returns the logging part of c.
func (c *Config) Logger() logger.Config {
	return logger.Config{Debug: c.Debug, LogFormat: c.LogFormat, LogFile: c.LogFile}
}

// Load reads configuration into v and decodes it. cfgFile, when set, must
// exist; otherwise yxflow.yaml is searched in the working directory and the
// user config directory, and its absence is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "human", "json":
	default:
		return fmt.Errorf("invalid log_format %q: want human or json", c.LogFormat)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("invalid cache.size %d", c.Cache.Size)
	}
	if c.Journal.Enabled {
		driver, err := journal.NormalizeDriver(c.Journal.Driver)
		if err != nil {
			return err
		}
		c.Journal.Driver = driver
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn is required when the journal is enabled")
		}
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")

	v.SetDefault("cache.size", locator.DefaultCacheSize)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.driver", journal.DriverSQLite)
	if dir, err := configDir(); err == nil {
		v.SetDefault("journal.dsn", filepath.Join(dir, "journal.db"))
	} else {
		v.SetDefault("journal.dsn", "yxflow-journal.db")
	}

	v.SetDefault("server.http_addr", "127.0.0.1:8347")
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")
	if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
	}
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}
