package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/sportshub/internal/storage"
)

// EnvPrefix is prepended to every environment override, e.g. SPORTSHUB_SERVER_PORT.
const EnvPrefix = "SPORTSHUB"

// Config is the full runtime configuration.
type Config struct {
	Database storage.Config `mapstructure:"database"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// BrowserConfig controls the page automation engine.
type BrowserConfig struct {
	Engine      string        `mapstructure:"engine"`
	Headless    bool          `mapstructure:"headless"`
	Tabs        int           `mapstructure:"tabs"`
	MaxTabs     int           `mapstructure:"max_tabs"`
	PageTimeout time.Duration `mapstructure:"page_timeout"`
	ExecPath    string        `mapstructure:"exec_path"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// ScraperConfig selects listings and retention.
type ScraperConfig struct {
	Sports    []string      `mapstructure:"sports"`
	Retention time.Duration `mapstructure:"retention"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port  int    `mapstructure:"port"`
	Mode  string `mapstructure:"mode"`
	Pprof bool   `mapstructure:"pprof"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")

	v.SetDefault("browser.engine", "chrome")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.tabs", 10)
	v.SetDefault("browser.max_tabs", 32)
	v.SetDefault("browser.page_timeout", 30*time.Second)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "")

	v.SetDefault("scraper.sports", []string{"Football"})
	v.SetDefault("scraper.retention", storage.DefaultRetention)

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.pprof", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads .env (if present), then the optional config file at path, then
// SPORTSHUB_* environment overrides. An empty path searches for
// sportshub.yaml in the working directory and ~/.config/sportshub.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sportshub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sportshub")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Browser.Tabs <= 0 {
		return fmt.Errorf("browser.tabs must be positive, got %d", c.Browser.Tabs)
	}
	if c.Browser.MaxTabs > 0 && c.Browser.Tabs > c.Browser.MaxTabs {
		return fmt.Errorf("browser.tabs (%d) exceeds browser.max_tabs (%d)", c.Browser.Tabs, c.Browser.MaxTabs)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Scraper.Retention < 0 {
		return fmt.Errorf("scraper.retention must not be negative")
	}
	return nil
}
