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
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Directory    DirectoryConfig    `yaml:"directory" mapstructure:"directory"`
	Geocode      GeocodeConfig      `yaml:"geocode" mapstructure:"geocode"`
	Distribution DistributionConfig `yaml:"distribution" mapstructure:"distribution"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DirectoryConfig configures the business-directory crawler.
type DirectoryConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	ProxyURL       string `yaml:"proxy_url" mapstructure:"proxy_url"`
	FallbackProxy  string `yaml:"fallback_proxy_url" mapstructure:"fallback_proxy_url"`
	MaxPages       int    `yaml:"max_pages" mapstructure:"max_pages"`
	PageDelayMs    int    `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	StreetPauseMs  int    `yaml:"street_pause_ms" mapstructure:"street_pause_ms"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts  int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// GeocodeConfig configures the geocoding provider.
type GeocodeConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string  `yaml:"user_agent" mapstructure:"user_agent"`
	Country   string  `yaml:"country" mapstructure:"country"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// DistributionConfig configures lead distribution quotas.
type DistributionConfig struct {
	Target            int `yaml:"target" mapstructure:"target"`
	TriggerThreshold  int `yaml:"trigger_threshold" mapstructure:"trigger_threshold"`
	SweepIntervalMins int `yaml:"sweep_interval_mins" mapstructure:"sweep_interval_mins"`
}

// ServerConfig configures the distribution HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("LEADPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadpipe.db")
	v.SetDefault("directory.base_url", "https://www.dasoertliche.de/Themen")
	v.SetDefault("directory.proxy_url", "")
	v.SetDefault("directory.fallback_proxy_url", "")
	v.SetDefault("directory.max_pages", 50)
	v.SetDefault("directory.page_delay_ms", 800)
	v.SetDefault("directory.street_pause_ms", 1500)
	v.SetDefault("directory.timeout_secs", 20)
	v.SetDefault("directory.retry_attempts", 3)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "lead-pipeline/1.0 (sales-crm geocoder)")
	v.SetDefault("geocode.country", "Deutschland")
	v.SetDefault("geocode.rate_limit", 1)
	v.SetDefault("distribution.target", 50)
	v.SetDefault("distribution.trigger_threshold", 40)
	v.SetDefault("distribution.sweep_interval_mins", 15)
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
