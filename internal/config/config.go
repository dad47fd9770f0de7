package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const AppName = "portalctl"

var ErrNoConfigFile = errors.New("no config file found")

// Config is the portalctl configuration file plus environment overrides.
type Config struct {
	Dir string `yaml:"-" json:"-"`

	API struct {
		BaseURL string `yaml:"base_url" json:"base_url"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"api" json:"api"`

	Session struct {
		Route           string   `yaml:"route" json:"route"`
		LoginRoute      string   `yaml:"login_route" json:"login_route"`
		AdminLoginRoute string   `yaml:"admin_login_route" json:"admin_login_route"`
		PublicRoutes    []string `yaml:"public_routes" json:"public_routes"`
		PollInterval    string   `yaml:"poll_interval" json:"poll_interval"`
		DefaultTTL      string   `yaml:"default_ttl" json:"default_ttl"`
	} `yaml:"session" json:"session"`

	Storage struct {
		Driver        string `yaml:"driver" json:"driver"`
		Dir           string `yaml:"dir" json:"dir"`
		RuntimeDir    string `yaml:"runtime_dir" json:"runtime_dir"`
		BoltPath      string `yaml:"bolt_path" json:"bolt_path"`
		Key           string `yaml:"key" json:"key"`
		RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
		RedisPassword string `yaml:"redis_password" json:"redis_password"`
		RedisDB       int    `yaml:"redis_db" json:"redis_db"`
		RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`
		ShortTTL      string `yaml:"short_ttl" json:"short_ttl"`
	} `yaml:"storage" json:"storage"`

	Notify struct {
		Driver       string `yaml:"driver" json:"driver"`
		RedisChannel string `yaml:"redis_channel" json:"redis_channel"`
	} `yaml:"notify" json:"notify"`

	Log struct {
		Level  string `yaml:"level" json:"level"`
		Pretty bool   `yaml:"pretty" json:"pretty"`
	} `yaml:"log" json:"log"`

	Proxy struct {
		Addr            string `yaml:"addr" json:"addr"`
		Bucket          string `yaml:"bucket" json:"bucket"`
		Region          string `yaml:"region" json:"region"`
		Endpoint        string `yaml:"endpoint" json:"endpoint"`
		AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
		SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
		URLExpiry       string `yaml:"url_expiry" json:"url_expiry"`
	} `yaml:"proxy" json:"proxy"`
}

// NewConfig loads the config from the default directory, or from path when set.
func NewConfig(path string) (*Config, error) {
	dir := filepath.Dir(path)
	if path == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(userHome, ".config", AppName)
	}

	cfg := &Config{Dir: dir}
	if path == "" {
		found, err := FindConfigFile(dir)
		if err != nil && !errors.Is(err, ErrNoConfigFile) {
			return nil, err
		}
		path = found
	}

	if path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	loadDotEnv(dir)
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(fileData, cfg); err != nil {
		if err := json.Unmarshal(fileData, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	return nil
}

// FindConfigFile looks for config.yml, config.yaml or config.json in dir.
func FindConfigFile(dir string) (string, error) {
	extensions := []string{"config.yml", "config.yaml", "config.json"}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", ErrNoConfigFile
	} else if err != nil {
		return "", fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}

	for _, ext := range extensions {
		possiblePath := filepath.Join(dir, ext)
		if _, err := os.Stat(possiblePath); err == nil {
			return possiblePath, nil
		}
	}

	return "", ErrNoConfigFile
}

// Save writes the config as YAML into its directory.
func (c *Config) Save() error {
	configFilePath := filepath.Join(c.Dir, "config.yaml")
	if err := os.MkdirAll(c.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configFilePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// loadDotEnv reads .env files from the config dir and the working directory.
// Variables already present in the environment win.
func loadDotEnv(dir string) {
	for _, p := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnv("PORTALCTL_API_URL", c.API.BaseURL)
	c.Session.Route = getEnv("PORTALCTL_ROUTE", c.Session.Route)
	c.Session.PollInterval = getEnv("PORTALCTL_POLL_INTERVAL", c.Session.PollInterval)
	c.Storage.Driver = getEnv("PORTALCTL_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Dir = getEnv("PORTALCTL_STORAGE_DIR", c.Storage.Dir)
	c.Storage.Key = getEnv("PORTALCTL_STORAGE_KEY", c.Storage.Key)
	c.Storage.RedisAddr = getEnv("PORTALCTL_REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.RedisPassword = getEnv("PORTALCTL_REDIS_PASSWORD", c.Storage.RedisPassword)
	if db, err := strconv.Atoi(getEnv("PORTALCTL_REDIS_DB", "")); err == nil {
		c.Storage.RedisDB = db
	}
	c.Notify.Driver = getEnv("PORTALCTL_NOTIFY_DRIVER", c.Notify.Driver)
	c.Log.Level = getEnv("PORTALCTL_LOG_LEVEL", c.Log.Level)
	c.Proxy.Addr = getEnv("PORTALCTL_PROXY_ADDR", c.Proxy.Addr)
	c.Proxy.Bucket = getEnv("PORTALCTL_S3_BUCKET", c.Proxy.Bucket)
	c.Proxy.Endpoint = getEnv("PORTALCTL_S3_ENDPOINT", c.Proxy.Endpoint)
	c.Proxy.Region = getEnv("AWS_REGION", c.Proxy.Region)
	c.Proxy.AccessKeyID = getEnv("PORTALCTL_S3_ACCESS_KEY_ID", c.Proxy.AccessKeyID)
	c.Proxy.SecretAccessKey = getEnv("PORTALCTL_S3_SECRET_ACCESS_KEY", c.Proxy.SecretAccessKey)
}

func (c *Config) applyDefaults() {
	if c.API.Timeout == "" {
		c.API.Timeout = "15s"
	}
	if c.Session.Route == "" {
		c.Session.Route = "/dashboard"
	}
	if c.Session.LoginRoute == "" {
		c.Session.LoginRoute = "/login"
	}
	if c.Session.AdminLoginRoute == "" {
		c.Session.AdminLoginRoute = "/admin/login"
	}
	if len(c.Session.PublicRoutes) == 0 {
		c.Session.PublicRoutes = []string{"/", "/login", "/register", "/forgot-password", "/admin/login"}
	}
	if c.Session.PollInterval == "" {
		c.Session.PollInterval = "10s"
	}
	if c.Session.DefaultTTL == "" {
		c.Session.DefaultTTL = "1h"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = filepath.Join(c.Dir, "session")
	}
	if c.Storage.RuntimeDir == "" {
		c.Storage.RuntimeDir = filepath.Join(runtimeBase(), AppName)
	}
	if c.Storage.BoltPath == "" {
		c.Storage.BoltPath = filepath.Join(c.Storage.Dir, "session.db")
	}
	if c.Storage.RedisPrefix == "" {
		c.Storage.RedisPrefix = AppName
	}
	if c.Notify.Driver == "" {
		switch c.Storage.Driver {
		case "redis":
			c.Notify.Driver = "redis"
		case "file":
			c.Notify.Driver = "file"
		default:
			c.Notify.Driver = "local"
		}
	}
	if c.Notify.RedisChannel == "" {
		c.Notify.RedisChannel = AppName + ":events"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Proxy.Addr == "" {
		c.Proxy.Addr = ":8081"
	}
	if c.Proxy.URLExpiry == "" {
		c.Proxy.URLExpiry = "15m"
	}
}

func (c *Config) APITimeout() time.Duration {
	return parseDuration(c.API.Timeout, 15*time.Second)
}

func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.Session.PollInterval, 10*time.Second)
}

func (c *Config) DefaultTTL() time.Duration {
	return parseDuration(c.Session.DefaultTTL, time.Hour)
}

// ShortTTL is the lifetime of entries in the short-lived scope; zero keeps them
// until the access token is cleared.
func (c *Config) ShortTTL() time.Duration {
	return parseDuration(c.Storage.ShortTTL, 0)
}

func (c *Config) URLExpiry() time.Duration {
	return parseDuration(c.Proxy.URLExpiry, 15*time.Minute)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func runtimeBase() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
