package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName names the config, cache and keyring directories
const AppName = "lazynotion"

// Config holds all application configuration
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	Notion  NotionConfig  `mapstructure:"notion"`
	Backend BackendConfig `mapstructure:"backend"`
	Filter  FilterConfig  `mapstructure:"filter"`
	UI      UIConfig      `mapstructure:"ui"`
	History HistoryConfig `mapstructure:"history"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`

	// File is the config file that was read, if any
	File string `mapstructure:"-"`
}

type GeneralConfig struct {
	PageSize              int  `mapstructure:"page_size"`
	ConfirmDestructiveOps bool `mapstructure:"confirm_destructive_ops"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
	BaseURL    string `mapstructure:"base_url"`
	Version    string `mapstructure:"version"`
	TimeoutMs  int    `mapstructure:"timeout_ms"`
	MaxPages   int    `mapstructure:"max_pages"`
}

// Backend kinds
const (
	BackendNotion   = "notion"
	BackendPostgres = "postgres"
)

type BackendConfig struct {
	Kind        string `mapstructure:"kind"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Table       string `mapstructure:"table"`
	PoolSize    int    `mapstructure:"pool_size"`
}

type FilterConfig struct {
	MaxDepth       int  `mapstructure:"max_depth"`
	EnableNegation bool `mapstructure:"enable_negation"`
}

type UIConfig struct {
	Theme        string `mapstructure:"theme"`
	MouseEnabled bool   `mapstructure:"mouse_enabled"`
}

type HistoryConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxEntries int  `mapstructure:"max_entries"`
}

type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		General: GeneralConfig{
			PageSize:              100,
			ConfirmDestructiveOps: true,
		},
		Notion: NotionConfig{
			BaseURL:   "https://api.notion.com",
			Version:   "2022-06-28",
			TimeoutMs: 30000,
			MaxPages:  10,
		},
		Backend: BackendConfig{
			Kind:     BackendNotion,
			Table:    "records",
			PoolSize: 4,
		},
		Filter: FilterConfig{
			MaxDepth:       5,
			EnableNegation: false,
		},
		UI: UIConfig{
			Theme:        "default",
			MouseEnabled: true,
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := GetDefaults()
	v.SetDefault("general.page_size", d.General.PageSize)
	v.SetDefault("general.confirm_destructive_ops", d.General.ConfirmDestructiveOps)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.base_url", d.Notion.BaseURL)
	v.SetDefault("notion.version", d.Notion.Version)
	v.SetDefault("notion.timeout_ms", d.Notion.TimeoutMs)
	v.SetDefault("notion.max_pages", d.Notion.MaxPages)
	v.SetDefault("backend.kind", d.Backend.Kind)
	v.SetDefault("backend.postgres_dsn", "")
	v.SetDefault("backend.table", d.Backend.Table)
	v.SetDefault("backend.pool_size", d.Backend.PoolSize)
	v.SetDefault("filter.max_depth", d.Filter.MaxDepth)
	v.SetDefault("filter.enable_negation", d.Filter.EnableNegation)
	v.SetDefault("ui.theme", d.UI.Theme)
	v.SetDefault("ui.mouse_enabled", d.UI.MouseEnabled)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.max_entries", d.History.MaxEntries)
	v.SetDefault("cache.dir", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", "")
}

// Load loads configuration from files and the environment
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags loads configuration and applies command line flags on top.
// Precedence: flags, environment, config file, defaults.
func LoadWithFlags(args []string) (*Config, error) {
	v := viper.New()

	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFile := fs.StringP("config", "c", "", "Path to config file")
	fs.StringP("database", "d", "", "Database id to browse")
	fs.String("backend", "", "Query backend: notion or postgres")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.Bool("negation", false, "Enable negated filter groups")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	for key, name := range map[string]string{
		"notion.database_id":     "database",
		"backend.kind":           "backend",
		"log.level":              "log-level",
		"filter.enable_negation": "negation",
	} {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	v.SetConfigType("yaml")
	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("config")

		// Add config paths in priority order
		if configDir, err := GetConfigPath(); err == nil {
			v.AddConfigPath(configDir)
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	// LAZYNOTION_NOTION_TOKEN etc., plus the service's conventional names
	v.SetEnvPrefix("LAZYNOTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("notion.token", "LAZYNOTION_NOTION_TOKEN", "NOTION_SECRET"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}
	if err := v.BindEnv("notion.database_id", "LAZYNOTION_NOTION_DATABASE_ID", "NOTION_DB_ID"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	// Read config (it's okay if file doesn't exist, we have defaults)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || *configFile != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.Cache.Dir == "" {
		dir, err := GetCachePath()
		if err != nil {
			return nil, err
		}
		cfg.Cache.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendNotion, BackendPostgres:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend.Kind)
	}
	if c.Backend.Kind == BackendPostgres && c.Backend.PostgresDSN == "" {
		return fmt.Errorf("backend.postgres_dsn is required for the postgres backend")
	}
	if c.Filter.MaxDepth < 1 {
		return fmt.Errorf("filter.max_depth must be at least 1, got %d", c.Filter.MaxDepth)
	}
	return nil
}

// CachePath returns a file path under the cache directory
func (c *Config) CachePath(name string) string {
	return filepath.Join(c.Cache.Dir, name)
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// GetCachePath returns the user cache directory path
func GetCachePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}
