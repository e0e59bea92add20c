package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"menuscout/internal/watcher"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for menuscout
type Config struct {
	Cache   CacheConfig   `mapstructure:"cache"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Browser BrowserConfig `mapstructure:"browser"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// CacheConfig holds the snapshot store configuration
type CacheConfig struct {
	Path string        `mapstructure:"path"` // badger directory, "" keeps it in memory
	TTL  time.Duration `mapstructure:"ttl"`
}

// WatchConfig holds the change watcher timings
type WatchConfig struct {
	Delay        time.Duration `mapstructure:"delay"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BottomOffset int           `mapstructure:"bottom_offset"`
	AutoScroll   bool          `mapstructure:"autoscroll"`
}

// BrowserConfig holds browser launch options
type BrowserConfig struct {
	Headless  bool          `mapstructure:"headless"`
	Proxy     string        `mapstructure:"proxy"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Addr             string   `mapstructure:"addr"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	RefreshPerMinute int      `mapstructure:"refresh_per_minute"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads .env, then the config file, then MENUSCOUT_* environment
// variables. file may be empty, in which case menuscout.yaml is looked up in
// the usual places and is optional.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("failed to read .env")
	}

	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("menuscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "menuscout"))
		}
	}

	v.SetEnvPrefix("MENUSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// MENUSCOUT_PROXY mirrors the --proxy flag.
	_ = v.BindEnv("browser.proxy", "MENUSCOUT_BROWSER_PROXY", "MENUSCOUT_PROXY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.WithField("file", v.ConfigFileUsed()).Debug("loaded config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultCachePath is the badger directory used when cache.path is not set.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".menuscout"
	}
	return filepath.Join(dir, "menuscout")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.path", DefaultCachePath())
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("watch.delay", "2s")
	v.SetDefault("watch.cooldown", "5s")
	v.SetDefault("watch.initial_delay", "2s")
	v.SetDefault("watch.poll_interval", "1s")
	v.SetDefault("watch.bottom_offset", 500)
	v.SetDefault("watch.autoscroll", false)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.timeout", "30s")
	v.SetDefault("browser.user_agent", "")

	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})
	v.SetDefault("server.refresh_per_minute", 6)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks value ranges
func (c *Config) Validate() error {
	positive := []struct {
		key string
		d   time.Duration
	}{
		{"cache.ttl", c.Cache.TTL},
		{"watch.delay", c.Watch.Delay},
		{"watch.cooldown", c.Watch.Cooldown},
		{"watch.poll_interval", c.Watch.PollInterval},
		{"browser.timeout", c.Browser.Timeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", p.key, p.d)
		}
	}
	if c.Watch.InitialDelay < 0 {
		return fmt.Errorf("watch.initial_delay must not be negative, got %s", c.Watch.InitialDelay)
	}
	if c.Watch.BottomOffset < 0 {
		return fmt.Errorf("watch.bottom_offset must not be negative, got %d", c.Watch.BottomOffset)
	}
	if c.Server.RefreshPerMinute <= 0 {
		return fmt.Errorf("server.refresh_per_minute must be positive, got %d", c.Server.RefreshPerMinute)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json', got: %s", c.Log.Format)
	}
	return nil
}

// WatcherConfig converts the watch section to watcher timings.
func (c *Config) WatcherConfig() watcher.Config {
	return watcher.Config{
		Delay:        c.Watch.Delay,
		Cooldown:     c.Watch.Cooldown,
		InitialDelay: c.Watch.InitialDelay,
		PollInterval: c.Watch.PollInterval,
		AutoScroll:   c.Watch.AutoScroll,
	}
}
