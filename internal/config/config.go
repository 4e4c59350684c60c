package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the root configuration for the mirror backend.
type Config struct {
	Server  ServerConfig
	Repo    RepoConfig
	Cache   CacheConfig
	Misc    MiscConfig
	Sources []SourceConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	CORSAllowedOrigins string
}

// RepoConfig holds data repository settings.
type RepoConfig struct {
	StopTimeout time.Duration
}

// CacheConfig holds durable cache settings.
type CacheConfig struct {
	Dir            string
	IndexTTL       time.Duration
	WatcherEnabled bool
}

// MiscConfig holds miscellaneous settings.
type MiscConfig struct {
	GinMode               string
	LogLevel              string
	Title                 string
	UIRefreshIntervalSecs int
}

// SourceConfig describes one data source to register with the repository.
// Type-specific fields are only consulted for the matching type.
type SourceConfig struct {
	Key      string        `mapstructure:"key" validate:"required"`
	Type     string        `mapstructure:"type" validate:"required,oneof=clock static feed docker"`
	Interval time.Duration `mapstructure:"interval" validate:"required"`
	Jitter   time.Duration `mapstructure:"jitter" validate:"min=0"`

	// clock
	TimeFormat string `mapstructure:"time_format"`
	DateFormat string `mapstructure:"date_format"`

	// static
	Value     any `mapstructure:"value"`
	Secondary any `mapstructure:"secondary"`
	Tertiary  any `mapstructure:"tertiary"`

	// feed
	URL            string            `mapstructure:"url" validate:"omitempty,url"`
	Headers        map[string]string `mapstructure:"headers"`
	ValueExpr      string            `mapstructure:"value_expr"`
	SecondaryExpr  string            `mapstructure:"secondary_expr"`
	TertiaryExpr   string            `mapstructure:"tertiary_expr"`
	IncludeRaw     bool              `mapstructure:"include_raw"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	CacheTTL       time.Duration     `mapstructure:"cache_ttl"`

	// docker
	Container string `mapstructure:"container"`
}

// LoadConfig reads configuration from config.yaml (if present), applies
// defaults and environment overrides, ensures the cache directory exists
// and validates the result.
func LoadConfig() (*Config, error) {
	confPath := getEnvOrDefault("GO_MIRROR_CONFIG_PATH", "./config")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(confPath)

	// Defaults to allow running without config file
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)
	viper.SetDefault("server.request_timeout", 15*time.Second)
	viper.SetDefault("server.cors_allowed_origins", "*")
	viper.SetDefault("repo.stop_timeout", 5*time.Second)
	viper.SetDefault("cache.dir", "./data/cache")
	viper.SetDefault("cache.index_ttl", 3*time.Second)
	viper.SetDefault("cache.watcher_enabled", true)
	viper.SetDefault("misc.gin_mode", "release")
	viper.SetDefault("misc.log_level", "info")
	viper.SetDefault("misc.title", "Mirror")
	viper.SetDefault("misc.ui_refresh_interval_secs", 30)

	// Environment variables automatically override config file values,
	// e.g. GO_MIRROR_SERVER_PORT overrides server.port.
	viper.AutomaticEnv()
	viper.SetEnvPrefix("GO_MIRROR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	port, err := getEnvOrViperPort("PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        viper.GetDuration("server.read_timeout"),
			WriteTimeout:       viper.GetDuration("server.write_timeout"),
			IdleTimeout:        viper.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    viper.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     viper.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: viper.GetString("server.cors_allowed_origins"),
		},
		Repo: RepoConfig{
			StopTimeout: viper.GetDuration("repo.stop_timeout"),
		},
		Cache: CacheConfig{
			Dir:            viper.GetString("cache.dir"),
			IndexTTL:       viper.GetDuration("cache.index_ttl"),
			WatcherEnabled: viper.GetBool("cache.watcher_enabled"),
		},
		Misc: MiscConfig{
			GinMode:               viper.GetString("misc.gin_mode"),
			LogLevel:              viper.GetString("misc.log_level"),
			Title:                 viper.GetString("misc.title"),
			UIRefreshIntervalSecs: viper.GetInt("misc.ui_refresh_interval_secs"),
		},
	}

	if err := viper.UnmarshalKey("sources", &cfg.Sources); err != nil {
		return nil, fmt.Errorf("error decoding sources: %w", err)
	}

	if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating cache directory %s: %w", cfg.Cache.Dir, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Repo.StopTimeout <= 0 {
		return fmt.Errorf("repo stop timeout must be positive")
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache directory must not be empty")
	}
	if c.Cache.IndexTTL < 0 {
		return fmt.Errorf("cache index TTL must not be negative")
	}
	if c.Misc.GinMode != "" {
		switch c.Misc.GinMode {
		case "debug", "release", "test":
		default:
			return fmt.Errorf("invalid gin mode: %s", c.Misc.GinMode)
		}
	}
	if c.Misc.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.Misc.LogLevel); err != nil {
			return fmt.Errorf("invalid log level %s: %w", c.Misc.LogLevel, err)
		}
	}
	if c.Misc.UIRefreshIntervalSecs <= 0 {
		return fmt.Errorf("ui refresh interval must be positive")
	}
	return c.validateSources()
}

func (c *Config) validateSources() error {
	v := validator.New()
	seen := make(map[string]struct{}, len(c.Sources))
	for i := range c.Sources {
		sc := &c.Sources[i]
		if err := v.Struct(sc); err != nil {
			return fmt.Errorf("invalid source %q: %w", sc.Key, err)
		}
		if sc.Interval <= 0 {
			return fmt.Errorf("invalid source %q: interval must be positive", sc.Key)
		}
		if sc.Type == "feed" && sc.URL == "" {
			return fmt.Errorf("invalid source %q: feed sources require a url", sc.Key)
		}
		if _, dup := seen[sc.Key]; dup {
			return fmt.Errorf("duplicate source key: %s", sc.Key)
		}
		seen[sc.Key] = struct{}{}
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvOrViperPort(envKey, viperKey string) (int, error) {
	if v := os.Getenv(envKey); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", envKey, v, err)
		}
		return port, nil
	}
	return viper.GetInt(viperKey), nil
}
