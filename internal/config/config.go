package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/fare-cli/pkg/lowfare"
)

// Config holds the full application configuration.
type Config struct {
	LowFare  LowFareConfig  `yaml:"lowfare" mapstructure:"lowfare"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Cities   CitiesConfig   `yaml:"cities" mapstructure:"cities"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// LowFareConfig configures the low-fare API client.
type LowFareConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	Currency         string  `yaml:"currency" mapstructure:"currency"`
	ChannelHash      string  `yaml:"channel_hash" mapstructure:"channel_hash"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	Origin           string  `yaml:"origin" mapstructure:"origin"`
	Referer          string  `yaml:"referer" mapstructure:"referer"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// Headers returns the fixed request headers for the client.
func (c LowFareConfig) Headers() lowfare.Headers {
	return lowfare.Headers{
		ChannelHash: c.ChannelHash,
		UserAgent:   c.UserAgent,
		Origin:      c.Origin,
		Referer:     c.Referer,
	}
}

// FetchConfig configures the fetch orchestrator.
type FetchConfig struct {
	// Token is normally supplied through FARE_FETCH_TOKEN or --token.
	Token     string  `yaml:"-" mapstructure:"token"`
	DelaySecs float64 `yaml:"delay_secs" mapstructure:"delay_secs"`
}

// AnalysisConfig holds the default trip bounds and sort order.
type AnalysisConfig struct {
	MinTripDays int    `yaml:"min_trip_days" mapstructure:"min_trip_days"`
	MaxTripDays int    `yaml:"max_trip_days" mapstructure:"max_trip_days"`
	Sort        string `yaml:"sort" mapstructure:"sort"`
}

// ExportConfig configures workbook output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// CitiesConfig locates the city-code list.
type CitiesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("FARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	headers := lowfare.DefaultHeaders()
	v.SetDefault("lowfare.base_url", lowfare.DefaultBaseURL)
	v.SetDefault("lowfare.currency", "MYR")
	v.SetDefault("lowfare.channel_hash", headers.ChannelHash)
	v.SetDefault("lowfare.user_agent", headers.UserAgent)
	v.SetDefault("lowfare.origin", headers.Origin)
	v.SetDefault("lowfare.referer", headers.Referer)
	v.SetDefault("lowfare.timeout_secs", 30)
	v.SetDefault("lowfare.rate_per_sec", 0)
	v.SetDefault("lowfare.max_attempts", 1)
	v.SetDefault("lowfare.initial_backoff_ms", 500)
	v.SetDefault("fetch.token", "")
	v.SetDefault("fetch.delay_secs", 1)
	v.SetDefault("analysis.min_trip_days", 3)
	v.SetDefault("analysis.max_trip_days", 5)
	v.SetDefault("analysis.sort", "price_asc")
	v.SetDefault("export.dir", ".")
	v.SetDefault("cities.file", "City_Codes_List.txt")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fares.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// FARE_TOKEN is the documented name for the token variable.
	if err := v.BindEnv("fetch.token", "FARE_TOKEN", "FARE_FETCH_TOKEN"); err != nil {
		return nil, eris.Wrap(err, "config: bind token env")
	}

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
