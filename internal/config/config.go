package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Feedback  FeedbackConfig  `yaml:"feedback" mapstructure:"feedback"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DashboardConfig holds the remote data service endpoint and credentials.
type DashboardConfig struct {
	URL       string  `yaml:"url" mapstructure:"url"`
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	AccountID string  `yaml:"account_id" mapstructure:"account_id"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AnalysisConfig configures summary behavior.
type AnalysisConfig struct {
	Days        int `yaml:"days" mapstructure:"days"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// FeedbackConfig configures retrieval behavior.
type FeedbackConfig struct {
	Days     int `yaml:"days" mapstructure:"days"`
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// StoreConfig configures the local run-log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("dashboard.rate_limit", 10.0)
	v.SetDefault("analysis.days", 14)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("feedback.days", 30)
	v.SetDefault("feedback.page_size", 100)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "plexus-feedback.db")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
