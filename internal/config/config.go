// Package config loads sprout's settings from an optional YAML file, a .env
// file and SPROUT_* environment variables, in increasing precedence.
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

	"github.com/julianstephens/sprout/internal/constants"
)

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`

	// Dir is the directory holding the config file, logs and default data
	Dir string `mapstructure:"-"`
	// File is the config file that was read, if any
	File string `mapstructure:"-"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
}

type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

// Load reads the configuration. An empty path means the default config file,
// which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(strings.ToUpper(constants.AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dir, err := ExpandHome(constants.DefaultConfigDir)
	if err != nil {
		return nil, err
	}
	setDefaults(v, dir)

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, constants.DefaultConfigFile)
	}
	path, err = ExpandHome(path)
	if err != nil {
		return nil, err
	}

	file := ""
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			if explicit {
				return nil, fmt.Errorf("config file %s not found", path)
			}
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		file = path
		dir = filepath.Dir(path)
		// Relative defaults follow the config file
		v.SetDefault("storage.path", filepath.Join(dir, constants.DefaultDataDirName))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Dir = dir
	cfg.File = file

	if cfg.Storage.Path, err = ExpandHome(cfg.Storage.Path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("storage.backend", constants.BackendJSON)
	v.SetDefault("storage.path", filepath.Join(dir, constants.DefaultDataDirName))
	v.SetDefault("storage.dsn", "")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", constants.DefaultTokenTTL)
	v.SetDefault("auth.bcrypt_cost", constants.DefaultBcryptCost)
	v.SetDefault("log.debug", false)
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case constants.BackendJSON, constants.BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
		}
	case constants.BackendPostgres:
	default:
		return fmt.Errorf("unknown storage.backend %q (expected %s, %s or %s)",
			c.Storage.Backend, constants.BackendJSON, constants.BackendSQLite, constants.BackendPostgres)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server.mode %q", c.Server.Mode)
	}

	if !hasOrigin(c.Server.Cors.AllowedOrigins) {
		return fmt.Errorf("server.cors.allowed_origins must list at least one origin")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	return nil
}

func hasOrigin(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) != "" {
			return true
		}
	}
	return false
}

// SessionKeyPath is where the generated signing key lives when no
// auth.jwt_secret is configured.
func (c *Config) SessionKeyPath() string {
	return filepath.Join(c.Dir, constants.SessionKeyName)
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
