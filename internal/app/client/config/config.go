package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	envPrefix  = "CHILDHEALTH"
	envPath    = ".env"
	configName = "config"
	defaultDir = ".childhealth"
)

type Config struct {
	Env            string        `mapstructure:"env"`
	ServerURL      string        `mapstructure:"server_url"`
	DataDir        string        `mapstructure:"data_dir"`
	LogFile        string        `mapstructure:"log_file"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	Sync           Sync          `mapstructure:"sync"`
}

type Sync struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ItemDelay       time.Duration `mapstructure:"item_delay"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
}

// Load reads .env (if present), the config file and CHILDHEALTH_* variables.
// Without an explicit file, config.yaml is looked up in the data directory.
// A missing config file is not an error.
func Load(configFile string) (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v := viper.New()
	setDefaults(v, filepath.Join(home, defaultDir))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(v.GetString("data_dir"))
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("env", EnvProd)
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("log_file", "")
	v.SetDefault("session_timeout", 15*time.Minute)
	v.SetDefault("sync.request_timeout", 30*time.Second)
	v.SetDefault("sync.item_delay", 200*time.Millisecond)
	v.SetDefault("sync.cache_ttl", 5*time.Second)
	v.SetDefault("sync.monitor_interval", 10*time.Second)
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Sync.RequestTimeout <= 0 {
		return errors.New("sync.request_timeout must be positive")
	}
	if c.Sync.ItemDelay < 0 {
		return errors.New("sync.item_delay must not be negative")
	}
	if c.Sync.MonitorInterval <= 0 {
		return errors.New("sync.monitor_interval must be positive")
	}
	return nil
}

func (c *Config) KeyPath() string {
	return filepath.Join(c.DataDir, "master.key")
}

func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "records.db")
}

func (c *Config) IdentityPath() string {
	return filepath.Join(c.DataDir, "auth.json")
}

// LogPath is the rotated log file, defaulting to client.log in the data directory.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "client.log")
}
