package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

// DocumentConfig locates the MCP server document and controls how it loads.
type DocumentConfig struct {
	Path              string `mapstructure:"path"`
	RootKey           string `mapstructure:"root_key"`
	PlaceholderPolicy string `mapstructure:"placeholder_policy"`
}

// LauncherConfig controls how launched tool servers are talked to.
type LauncherConfig struct {
	ClientName     string `mapstructure:"client_name"`
	ClientVersion  string `mapstructure:"client_version"`
	CallsPerMinute int    `mapstructure:"calls_per_minute"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type Config struct {
	Document DocumentConfig `mapstructure:"document"`
	Launcher LauncherConfig `mapstructure:"launcher"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// Load reads toolbelt.yaml from the working directory or $HOME/.toolbelt.
// A missing settings file is fine; defaults and environment apply.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("toolbelt")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.toolbelt")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return decode(v)
}

// LoadFile reads settings from an explicit file.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("document.path", filepath.Join("config", "mcp_config.json"))
	v.SetDefault("document.root_key", mcpconfig.DefaultRootKey)
	v.SetDefault("document.placeholder_policy", mcpconfig.PolicyFail.String())
	v.SetDefault("launcher.client_name", "toolbelt")
	v.SetDefault("launcher.client_version", "0.1.0")
	v.SetDefault("launcher.calls_per_minute", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".toolbelt", "toolbelt.db"))

	v.SetEnvPrefix("TOOLBELT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// MCP_CONFIG_PATH is what existing deployments already export.
	v.BindEnv("document.path", "TOOLBELT_DOCUMENT_PATH", "MCP_CONFIG_PATH")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := cfg.Policy(); err != nil {
		return nil, fmt.Errorf("document.placeholder_policy: %w", err)
	}
	cfg.Storage.DBPath = expandHome(cfg.Storage.DBPath)
	return &cfg, nil
}

// Policy parses the configured placeholder policy.
func (c *Config) Policy() (mcpconfig.Policy, error) {
	return mcpconfig.ParsePolicy(c.Document.PlaceholderPolicy)
}

// Loader builds a document loader from the settings.
func (c *Config) Loader() (*mcpconfig.Loader, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	return mcpconfig.New(
		mcpconfig.WithPolicy(policy),
		mcpconfig.WithRootKey(c.Document.RootKey),
	), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
