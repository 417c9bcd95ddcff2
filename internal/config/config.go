// Package config manages application configuration from various sources.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ErrMalformed marks stored configuration that cannot be parsed or used at
// all, as opposed to configuration that is simply absent. Callers treat it
// as fatal rather than a reason to fall back to onboarding.
var ErrMalformed = errors.New("malformed configuration")

// Generation selects which configuration system the window runs against.
type Generation string

const (
	// GenerationV1 is the legacy flat configuration layout.
	GenerationV1 Generation = "v1"
	// GenerationV2 is the next-generation configuration layout.
	GenerationV2 Generation = "v2"
)

// Extension describes an installed extension: the command it runs and the
// deep link it was installed from.
type Extension struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Cmd     string   `json:"cmd,omitempty"`
	Args    []string `json:"args,omitempty"`
	Link    string   `json:"link,omitempty"`
	Enabled bool     `json:"enabled"`
}

// Data defines storage configuration.
type Data struct {
	Directory string `json:"directory,omitempty"`
}

// Host defines settings supplied for the host-process boundary.
type Host struct {
	BaseURL string `json:"baseUrl,omitempty"`
}

// Config is the main configuration structure for the application.
type Config struct {
	Data            Data        `json:"data"`
	WorkingDir      string      `json:"wd,omitempty"`
	Debug           bool        `json:"debug,omitempty"`
	Generation      Generation  `json:"generation,omitempty"`
	Provider        string      `json:"provider,omitempty"`
	Model           string      `json:"model,omitempty"`
	MostRecentModel string      `json:"mostRecentModel,omitempty"`
	DefaultProvider string      `json:"defaultProvider,omitempty"`
	DefaultModel    string      `json:"defaultModel,omitempty"`
	Extensions      []Extension `json:"extensions,omitempty"`
	Host            Host        `json:"host"`
}

const (
	defaultDataDirectory = ".perch"
	appName              = "perch"
)

// Global configuration instance
var cfg *Config

// Load initializes the configuration from environment variables and config
// files. It returns an error if configuration loading fails; an unreadable
// (as opposed to absent) config file reports ErrMalformed.
func Load(workingDir string, debug bool) (*Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	cfg = &Config{
		WorkingDir: workingDir,
	}

	configureViper()
	setDefaults(debug)

	if err := readConfig(viper.ReadInConfig()); err != nil {
		return cfg, err
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	defaultLevel := slog.LevelInfo
	if cfg.Debug {
		defaultLevel = slog.LevelDebug
	}
	slog.SetLogLoggerLevel(defaultLevel)

	return cfg, nil
}

// configureViper sets up viper's configuration paths and environment variables.
func configureViper() {
	viper.SetConfigName(fmt.Sprintf(".%s", appName))
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	viper.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setDefaults configures default values for configuration options.
func setDefaults(debug bool) {
	viper.SetDefault("data.directory", defaultDataDirectory)
	viper.SetDefault("generation", string(GenerationV2))
	viper.SetDefault("host.baseUrl", "https://share.perch.sh")
	viper.SetDefault("debug", debug)
}

// readConfig handles the result of reading a configuration file.
func readConfig(err error) error {
	if err == nil {
		return nil
	}

	// It's okay if the config file doesn't exist
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}

	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

// Init performs the idempotent configuration bootstrap: it makes sure the
// data directory exists. Safe to call more than once.
func Init() error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if err := os.MkdirAll(DataDirectory(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Read returns the string value stored under key. A missing optional key
// yields an empty value and no error; a missing required key is an error. A
// key whose stored value is not a plain string reports ErrMalformed.
func Read(key string, required bool) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("config not loaded")
	}
	raw := viper.Get(key)
	if raw == nil {
		if required {
			return "", fmt.Errorf("missing required configuration key %q", key)
		}
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: key %q holds %T, expected string", ErrMalformed, key, raw)
	}
	if value == "" && required {
		return "", fmt.Errorf("missing required configuration key %q", key)
	}
	return value, nil
}

// Get returns the current configuration.
// It's safe to call this function multiple times.
func Get() *Config {
	return cfg
}

// WorkingDirectory returns the current working directory from the configuration.
func WorkingDirectory() string {
	if cfg == nil {
		panic("config not loaded")
	}
	return cfg.WorkingDir
}

// DataDirectory returns the absolute path of the data directory.
func DataDirectory() string {
	if cfg == nil {
		panic("config not loaded")
	}
	dir := cfg.Data.Directory
	if !filepath.IsAbs(dir) {
		home, err := os.UserHomeDir()
		if err != nil {
			home = cfg.WorkingDir
		}
		dir = filepath.Join(home, dir)
	}
	return dir
}

// GetExtensions returns the installed extensions.
func GetExtensions() []Extension {
	if cfg == nil {
		return nil
	}
	return cfg.Extensions
}

// AddExtension installs or replaces an extension and persists the change.
func AddExtension(ext Extension) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	replace := func(list []Extension) []Extension {
		for i, e := range list {
			if e.ID == ext.ID {
				list[i] = ext
				return list
			}
		}
		return append(list, ext)
	}
	cfg.Extensions = replace(cfg.Extensions)

	return updateCfgFile(func(file *Config) {
		file.Extensions = replace(file.Extensions)
	})
}

// SetModel persists the provider/model pair as both the current and the
// most recent selection.
func SetModel(provider, model string) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	cfg.Provider = provider
	cfg.Model = model
	cfg.MostRecentModel = model

	return updateCfgFile(func(file *Config) {
		file.Provider = provider
		file.Model = model
		file.MostRecentModel = model
	})
}

func updateCfgFile(updateCfg func(config *Config)) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	configFile := viper.ConfigFileUsed()
	var configData []byte
	if configFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configFile = filepath.Join(homeDir, fmt.Sprintf(".%s.json", appName))
		slog.Info("config file not found, creating new one", "path", configFile)
		configData = []byte(`{}`)
	} else {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		configData = data
	}

	var userCfg *Config
	if err := json.Unmarshal(configData, &userCfg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	updateCfg(userCfg)

	updatedData, err := json.MarshalIndent(userCfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, updatedData, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
