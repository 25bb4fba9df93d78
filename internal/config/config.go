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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Service ServiceConfig `yaml:"service" mapstructure:"service"`
	Load    LoadConfig    `yaml:"load" mapstructure:"load"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetchConfig configures remote downloads.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	TempDir     string  `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// ServiceConfig configures ArcGIS feature service queries.
type ServiceConfig struct {
	Token       string  `yaml:"token" mapstructure:"token"`
	TokenURL    string  `yaml:"token_url" mapstructure:"token_url"`
	Username    string  `yaml:"username" mapstructure:"username"`
	Password    string  `yaml:"password" mapstructure:"password"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LoadConfig configures dataset ingestion defaults.
type LoadConfig struct {
	DefaultSRID int    `yaml:"default_srid" mapstructure:"default_srid"`
	XColumn     string `yaml:"x_column" mapstructure:"x_column"`
	YColumn     string `yaml:"y_column" mapstructure:"y_column"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
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
	v.SetEnvPrefix("GEOFRAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "geoframe.db")
	v.SetDefault("fetch.user_agent", "geoframe/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_limit", 4)
	v.SetDefault("fetch.burst", 2)
	v.SetDefault("fetch.temp_dir", "")
	v.SetDefault("service.page_size", 1000)
	v.SetDefault("service.concurrency", 4)
	v.SetDefault("service.rate_limit", 4)
	v.SetDefault("load.default_srid", 4326)
	v.SetDefault("load.x_column", "")
	v.SetDefault("load.y_column", "")
	v.SetDefault("load.encoding", "utf-8")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
