package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all the configuration for the site and the caching edge.
type Config struct {
	Server ServerConfig
	Site   SiteConfig
	Edge   EdgeConfig
	Cache  CacheConfig
	Redis  RedisConfig
	SMTP   SMTPConfig
	Admin  AdminConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type SiteConfig struct {
	Templates  string
	Static     string
	Owner      string
	OwnerEmail string `mapstructure:"owner_email"`
}

// EdgeConfig controls the caching proxy placed in front of the site.
type EdgeConfig struct {
	Enabled bool
	Port    string
	// Origin defaults to the local site when empty.
	Origin string
}

// CacheConfig maps onto offline.Config.
type CacheConfig struct {
	Backend           string
	SQLitePath        string   `mapstructure:"sqlite_path"`
	ShellVersion      string   `mapstructure:"shell_version"`
	RuntimeVersion    string   `mapstructure:"runtime_version"`
	RuntimeMaxEntries int      `mapstructure:"runtime_max_entries"`
	ShellResources    []string `mapstructure:"shell_resources"`
	RootDocument      string   `mapstructure:"root_document"`
	APIPathPrefix     string   `mapstructure:"api_path_prefix"`
	ExcludedHosts     []string `mapstructure:"excluded_hosts"`
	BypassExtensions  []string `mapstructure:"bypass_extensions"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

type AdminConfig struct {
	Username string
	Password string
}

type LogConfig struct {
	Level string
	File  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("site.templates", "templates/*")
	v.SetDefault("site.static", "./static")
	v.SetDefault("site.owner", "Kamal Kiran Polisetty")
	v.SetDefault("site.owner_email", "kamalkiranpolisetty@gmail.com")

	v.SetDefault("edge.enabled", true)
	v.SetDefault("edge.port", "8081")
	v.SetDefault("edge.origin", "")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.sqlite_path", "data/offline-cache.db")
	v.SetDefault("cache.shell_version", "static-v1")
	v.SetDefault("cache.runtime_version", "dynamic-v1")
	v.SetDefault("cache.runtime_max_entries", 500)
	v.SetDefault("cache.shell_resources", []string{"/", "/index.html", "/manifest.json", "/logo.svg"})
	v.SetDefault("cache.root_document", "/index.html")
	v.SetDefault("cache.api_path_prefix", "/api/")
	v.SetDefault("cache.excluded_hosts", []string{"logo.clearbit.com", "google-analytics"})
	v.SetDefault("cache.bypass_extensions", []string{".pdf"})

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "offline:")

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("smtp.to", "")

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// loadConfig reads config/config.yaml when present, then environment
// variables (CACHE_BACKEND, SMTP_HOST, ...). PORT and TO_EMAIL are kept as
// aliases for older deployments.
func loadConfig(v *viper.Viper) (*Config, error) {
	v.AddConfigPath("config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("smtp.to", "SMTP_TO", "TO_EMAIL")
	_ = v.BindEnv("log.level", "LOG_LEVEL")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Edge.Enabled && c.Edge.Port == c.Server.Port {
		return fmt.Errorf("edge and site cannot share port %s", c.Server.Port)
	}
	return nil
}
