package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultSyncInterval     = 2 * time.Minute
	defaultIdleThreshold    = 300 * time.Second
	defaultFallbackCategory = "Utilities"
	defaultDailyTable       = "analyzeit_daily"
	defaultPreferencesTable = "analyzeit_site_preferences"
	defaultUsersTable       = "analyzeit_users"
	envPrefix               = "ANALYZEIT_"
)

type Config struct {
	DataDir          string
	DBPath           string
	IdentityPath     string
	SocketPath       string
	Timezone         string
	Location         *time.Location
	SyncInterval     time.Duration
	IdleThreshold    time.Duration
	FallbackCategory string
	CatalogPath      string
	Log              LogConfig
	Remote           RemoteConfig
	Auth             AuthConfig
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

// RemoteConfig points at the DynamoDB tables holding the per-user documents.
// Endpoint is only set for DynamoDB Local and similar emulators.
type RemoteConfig struct {
	Region           string
	Endpoint         string
	DailyTable       string
	PreferencesTable string
	UsersTable       string
}

type AuthConfig struct {
	PublicKeyPath string
	Secret        string
	Issuer        string
}

type fileConfig struct {
	Timezone         string `yaml:"timezone"`
	SyncInterval     string `yaml:"sync_interval"`
	IdleThreshold    string `yaml:"idle_threshold"`
	FallbackCategory string `yaml:"fallback_category"`
	CatalogPath      string `yaml:"catalog_path"`
	Log              struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
	Remote struct {
		Region           string `yaml:"region"`
		Endpoint         string `yaml:"endpoint"`
		DailyTable       string `yaml:"daily_table"`
		PreferencesTable string `yaml:"preferences_table"`
		UsersTable       string `yaml:"users_table"`
	} `yaml:"remote"`
	Auth struct {
		PublicKeyPath string `yaml:"public_key_path"`
		Secret        string `yaml:"secret"`
		Issuer        string `yaml:"issuer"`
	} `yaml:"auth"`
}

func New(dataDir, configPath string) (Config, error) {
	return Load(dataDir, configPath, os.Getenv)
}

// Load layers defaults, the YAML file and ANALYZEIT_* environment variables,
// in that order. Without an explicit path, <dataDir>/config.yaml is read when
// it exists.
func Load(dataDir, configPath string, getenv func(string) string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	cfg := Config{
		DataDir:          dataDir,
		DBPath:           filepath.Join(dataDir, "analyzeit.db"),
		IdentityPath:     filepath.Join(dataDir, "user.json"),
		SocketPath:       filepath.Join(dataDir, "agent.sock"),
		Timezone:         "Local",
		SyncInterval:     defaultSyncInterval,
		IdleThreshold:    defaultIdleThreshold,
		FallbackCategory: defaultFallbackCategory,
		Log:              LogConfig{Level: "info", Format: "text"},
		Remote: RemoteConfig{
			DailyTable:       defaultDailyTable,
			PreferencesTable: defaultPreferencesTable,
			UsersTable:       defaultUsersTable,
		},
	}

	explicit := strings.TrimSpace(configPath) != ""
	if !explicit {
		configPath = filepath.Join(dataDir, "config.yaml")
	}
	raw, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := cfg.applyFile(raw); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc
	if cfg.SyncInterval <= 0 {
		return Config{}, fmt.Errorf("sync interval must be positive")
	}
	if cfg.IdleThreshold <= 0 {
		return Config{}, fmt.Errorf("idle threshold must be positive")
	}
	return cfg, nil
}

func (c *Config) applyFile(raw []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	setString(&c.Timezone, fc.Timezone)
	setString(&c.FallbackCategory, fc.FallbackCategory)
	setString(&c.CatalogPath, fc.CatalogPath)
	setString(&c.Log.Level, fc.Log.Level)
	setString(&c.Log.Format, fc.Log.Format)
	setString(&c.Log.File, fc.Log.File)
	setString(&c.Remote.Region, fc.Remote.Region)
	setString(&c.Remote.Endpoint, fc.Remote.Endpoint)
	setString(&c.Remote.DailyTable, fc.Remote.DailyTable)
	setString(&c.Remote.PreferencesTable, fc.Remote.PreferencesTable)
	setString(&c.Remote.UsersTable, fc.Remote.UsersTable)
	setString(&c.Auth.PublicKeyPath, fc.Auth.PublicKeyPath)
	setString(&c.Auth.Secret, fc.Auth.Secret)
	setString(&c.Auth.Issuer, fc.Auth.Issuer)
	if err := setDuration(&c.SyncInterval, fc.SyncInterval); err != nil {
		return fmt.Errorf("sync_interval: %w", err)
	}
	if err := setDuration(&c.IdleThreshold, fc.IdleThreshold); err != nil {
		return fmt.Errorf("idle_threshold: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	env := func(name string) string { return getenv(envPrefix + name) }
	setString(&c.Timezone, env("TIMEZONE"))
	setString(&c.FallbackCategory, env("FALLBACK_CATEGORY"))
	setString(&c.CatalogPath, env("CATALOG_PATH"))
	setString(&c.Log.Level, env("LOG_LEVEL"))
	setString(&c.Log.Format, env("LOG_FORMAT"))
	setString(&c.Log.File, env("LOG_FILE"))
	setString(&c.Remote.Region, env("AWS_REGION"))
	setString(&c.Remote.Endpoint, env("DYNAMODB_ENDPOINT"))
	setString(&c.Remote.DailyTable, env("DAILY_TABLE"))
	setString(&c.Remote.PreferencesTable, env("PREFERENCES_TABLE"))
	setString(&c.Remote.UsersTable, env("USERS_TABLE"))
	setString(&c.Auth.PublicKeyPath, env("TOKEN_PUBLIC_KEY"))
	setString(&c.Auth.Secret, env("TOKEN_SECRET"))
	setString(&c.Auth.Issuer, env("TOKEN_ISSUER"))
	if err := setDuration(&c.SyncInterval, env("SYNC_INTERVAL")); err != nil {
		return fmt.Errorf("%sSYNC_INTERVAL: %w", envPrefix, err)
	}
	if err := setDuration(&c.IdleThreshold, env("IDLE_THRESHOLD")); err != nil {
		return fmt.Errorf("%sIDLE_THRESHOLD: %w", envPrefix, err)
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
