package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from flags, environment variables and configs/.env.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	Email     string `mapstructure:"dcu_email"`
	Password  string `mapstructure:"dcu_password" json:"-"`
	DeviceKey string `mapstructure:"dcu_device_key" json:"-"`
	BaseURL   string `mapstructure:"dcu_base_url"`
	// ProxyURL may carry user:pass credentials and is kept out of logs.
	ProxyURL  string `mapstructure:"dcu_proxy_url" json:"-"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// RegisterFlags declares command-line overrides for the config keys callers commonly set per run.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("dcu_email", "", "Account e-mail used for logging in")
	fs.String("dcu_password", "", "Account password used for logging in")
	fs.String("dcu_device_key", "", "Device key sent as x-consumer-key")
	fs.String("dcu_proxy_url", "", "Proxy url for all API requests")
	fs.String("log_level", "", "Log level (debug, info, warn, error)")
	fs.String("publishers_file", "", "YAML/JSON publishers registry; empty disables publishing")
}

// Load reads configuration from environment variables, configs/.env and, when
// fs is not nil, the flags the caller explicitly set on it.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "dcu-client")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("dcu_email", "")
	v.SetDefault("dcu_password", "")
	v.SetDefault("dcu_device_key", "")
	v.SetDefault("dcu_base_url", "https://www.dcuniverse.com")
	v.SetDefault("dcu_proxy_url", "")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/published.db")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	if fs != nil {
		// Only flags the user actually passed override env and defaults.
		var bindErr error
		fs.Visit(func(f *pflag.Flag) {
			if bindErr == nil {
				bindErr = v.BindPFlag(f.Name, f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Email = strings.TrimSpace(cfg.Email)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.ProxyURL = strings.TrimSpace(cfg.ProxyURL)
	cfg.PublishersFile = strings.TrimSpace(cfg.PublishersFile)

	if cfg.HTTPTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}
