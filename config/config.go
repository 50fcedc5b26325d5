// Package config loads client configuration from multiple sources with a
// defined precedence (highest to lowest):
//
//  1. Environment variables (OPENWEBUI_URL, OPENWEBUI_API_KEY); a .env file
//     in the working directory is loaded first if present.
//  2. Local project config file (./.owui/config.yaml)
//  3. User-level config file (~/.owui/config.yaml)
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
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

var (
	// ErrMissingServerURL indicates no server URL was found in any source.
	ErrMissingServerURL = errors.New("server URL is not configured")

	// ErrMissingAPIKey indicates no API key was found in any source.
	ErrMissingAPIKey = errors.New("API key is not configured")

	// ErrInvalidConfigFile indicates a config file exists but cannot be read or parsed.
	ErrInvalidConfigFile = errors.New("invalid config file")
)

// Environment variable names.
const (
	EnvServerURL = "OPENWEBUI_URL"
	EnvAPIKey    = "OPENWEBUI_API_KEY"
)

// Config file locations, relative to $HOME and the working directory.
const (
	configDirName  = ".owui"
	configFileName = "config.yaml"
)

// DefaultTimeout is the request timeout applied when none is configured.
const DefaultTimeout = 30 * time.Second

// Config holds the settings required to talk to an Open WebUI server.
type Config struct {
	ServerURL string
	APIKey    string
	Timeout   time.Duration
}

// UserConfigPath returns the path of the user-level config file.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDirName, configFileName)
}

// LocalConfigPath returns the path of the project-local config file.
func LocalConfigPath() string {
	return filepath.Join(configDirName, configFileName)
}

// Load resolves configuration from the environment and the YAML config files.
// When explicitFile is non-empty it replaces both default file locations;
// environment variables still take precedence.
func Load(explicitFile string) (*Config, error) {
	// Highest precedence source: environment, optionally seeded from .env.
	// Load errors are ignored - a missing .env file is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	files := []string{UserConfigPath(), LocalConfigPath()}
	if explicitFile != "" {
		files = []string{explicitFile}
	}

	loaded := false
	for _, file := range files {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			if explicitFile != "" {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfigFile, file, err)
			}
			continue
		}
		v.SetConfigFile(file)
		// Later files override earlier ones, so the local project config
		// wins over the user-level config.
		var err error
		if loaded {
			err = v.MergeInConfig()
		} else {
			err = v.ReadInConfig()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfigFile, file, err)
		}
		loaded = true
	}

	serverURL := os.Getenv(EnvServerURL)
	if serverURL == "" {
		serverURL = v.GetString("server.url")
	}
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		apiKey = v.GetString("server.api_key")
	}

	if serverURL == "" {
		return nil, fmt.Errorf("%w: set %s or 'server.url' in %s or %s",
			ErrMissingServerURL, EnvServerURL, UserConfigPath(), LocalConfigPath())
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s or 'server.api_key' in %s or %s",
			ErrMissingAPIKey, EnvAPIKey, UserConfigPath(), LocalConfigPath())
	}

	timeout := DefaultTimeout
	if v.IsSet("server.timeout") {
		if d := v.GetDuration("server.timeout"); d > 0 {
			timeout = d
		}
	}

	return &Config{
		// Trailing slashes are stripped for consistent URL joining.
		ServerURL: strings.TrimRight(serverURL, "/"),
		APIKey:    apiKey,
		Timeout:   timeout,
	}, nil
}
