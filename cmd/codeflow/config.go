package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rendis/codeflow/internal/classify"
	"github.com/rendis/codeflow/internal/javaast"
	"github.com/rendis/codeflow/internal/retention"
)

// Config holds all codeflow configuration.
// Priority: flags > CODEFLOW_* env vars > settings.yaml > defaults.
type Config struct {
	ListenAddr   string           `mapstructure:"listen_addr"`
	DBPath       string           `mapstructure:"db_path"`
	LogLevel     string           `mapstructure:"log_level"`
	Store        bool             `mapstructure:"store"`
	MaxCodeBytes int              `mapstructure:"max_code_bytes"`
	Classifier   ClassifierConfig `mapstructure:"classifier"`
	Retention    RetentionConfig  `mapstructure:"retention"`
}

// ClassifierConfig selects the rule engine that marks calls as I/O.
type ClassifierConfig struct {
	Engine string   `mapstructure:"engine"`
	Rules  []string `mapstructure:"rules"`
}

// RetentionConfig controls history pruning. MaxAge 0 disables it.
type RetentionConfig struct {
	MaxAge   time.Duration `mapstructure:"max_age"`
	Schedule string        `mapstructure:"schedule"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:   ":3002",
		DBPath:       filepath.Join(codeflowDir(), "codeflow.db"),
		LogLevel:     "info",
		Store:        true,
		MaxCodeBytes: javaast.DefaultMaxSourceBytes,
		Classifier:   ClassifierConfig{Engine: classify.EngineCEL},
		Retention: RetentionConfig{
			MaxAge:   retention.DefaultMaxAge,
			Schedule: retention.DefaultSchedule,
		},
	}
}

func codeflowDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codeflow"
	}
	return filepath.Join(home, ".codeflow")
}

func settingsPath() string {
	return filepath.Join(codeflowDir(), "settings.yaml")
}

// newViper returns a viper instance with defaults, env binding, and the
// config file read in. A missing default settings file is not an error; a
// missing explicit one is.
func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()

	d := defaultConfig()
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("store", d.Store)
	v.SetDefault("max_code_bytes", d.MaxCodeBytes)
	v.SetDefault("classifier.engine", d.Classifier.Engine)
	v.SetDefault("classifier.rules", []string{})
	v.SetDefault("retention.max_age", d.Retention.MaxAge)
	v.SetDefault("retention.schedule", d.Retention.Schedule)

	v.SetEnvPrefix("CODEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		configFile = settingsPath()
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// loadConfig decodes v into a Config and validates it.
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.ListenAddr == "" {
		return Config{}, errors.New("listen_addr must not be empty")
	}
	if cfg.MaxCodeBytes <= 0 {
		return Config{}, fmt.Errorf("max_code_bytes must be positive, got %d", cfg.MaxCodeBytes)
	}
	if cfg.Store && cfg.DBPath == "" {
		return Config{}, errors.New("db_path must be set when store is enabled")
	}
	return cfg, nil
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	ClassifierChanged bool
	LogLevelChanged   bool
	RestartNeeded     []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.Classifier.Engine != new.Classifier.Engine || !slices.Equal(old.Classifier.Rules, new.Classifier.Rules) {
		d.ClassifierChanged = true
	}
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.Store != new.Store {
		d.RestartNeeded = append(d.RestartNeeded, "store")
	}
	if old.MaxCodeBytes != new.MaxCodeBytes {
		d.RestartNeeded = append(d.RestartNeeded, "max_code_bytes")
	}
	if old.Retention != new.Retention {
		d.RestartNeeded = append(d.RestartNeeded, "retention")
	}
	return d
}
