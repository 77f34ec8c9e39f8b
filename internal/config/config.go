// Package config resolves the vault configuration once at process start.
// Components receive the resolved Config; nothing reads the environment
// mid-operation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Environment variables and config keys.
const (
	EnvDBPath        = "VAULT_DB"
	EnvPortalSecret  = "VAULT_PORTAL_SECRET"
	EnvPortalOrigins = "VAULT_PORTAL_ORIGINS"
	EnvInjectSecrets = "VAULT_PORTAL_INJECT_SECRETS"
	EnvBraveAPIKey   = "BRAVE_API_KEY"

	configFileName = "config"
	dbFileName     = "research_vault.db"
)

// DefaultOrigins is the CORS allowlist used when none is configured.
// Local dev frontends only.
var DefaultOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// Config holds every externally sourced setting.
type Config struct {
	// DBPath is the SQLite file. Resolution order: --db flag, VAULT_DB,
	// config file, <home>/research_vault.db.
	DBPath string

	// Home is the vault directory (config file, default DB, export root).
	Home string

	// PortalSecret gates portal login. Empty disables the portal.
	PortalSecret string

	// PortalOrigins is the CORS allowlist for the portal.
	PortalOrigins []string

	// InjectSecrets opts the portal into passing the search key through to
	// vault subprocesses. Off by default so portal secrets never reach
	// subprocess environments unless asked for.
	InjectSecrets bool

	// BraveAPIKey authenticates the web search provider.
	BraveAPIKey string

	// SearchCacheTTL bounds how long a cached search result is served.
	SearchCacheTTL time.Duration
}

// DefaultHome returns the vault home directory, ~/.researchvault.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".researchvault"), nil
}

// Load resolves the configuration from environment, optional config file,
// and defaults. dbFlag, when non-empty, wins over everything else.
func Load(dbFlag string) (*Config, error) {
	vaultHome, err := DefaultHome()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(vaultHome)

	v.SetDefault("search_cache_ttl", "24h")

	if err := v.BindEnv("db_path", EnvDBPath); err != nil {
		return nil, err
	}
	if err := v.BindEnv("portal_secret", EnvPortalSecret); err != nil {
		return nil, err
	}
	if err := v.BindEnv("portal_origins", EnvPortalOrigins); err != nil {
		return nil, err
	}
	if err := v.BindEnv("portal_inject_secrets", EnvInjectSecrets); err != nil {
		return nil, err
	}
	if err := v.BindEnv("brave_api_key", EnvBraveAPIKey); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; a malformed one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Home:          vaultHome,
		PortalSecret:  v.GetString("portal_secret"),
		InjectSecrets: v.GetString("portal_inject_secrets") == "1",
		BraveAPIKey:   v.GetString("brave_api_key"),
	}

	ttl, err := time.ParseDuration(v.GetString("search_cache_ttl"))
	if err != nil {
		return nil, fmt.Errorf("parse search_cache_ttl: %w", err)
	}
	cfg.SearchCacheTTL = ttl

	cfg.DBPath = dbFlag
	if cfg.DBPath == "" {
		cfg.DBPath = v.GetString("db_path")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(vaultHome, dbFileName)
	}
	cfg.DBPath = expandHome(cfg.DBPath)

	if origins := v.GetStringSlice("portal_origins"); len(origins) > 0 {
		cfg.PortalOrigins = origins
	} else {
		cfg.PortalOrigins = append([]string(nil), DefaultOrigins...)
	}

	return cfg, nil
}

// expandHome rewrites a leading ~/ to the user's home directory.
func expandHome(path string) string {
	if len(path) < 2 || path[0] != '~' || path[1] != '/' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
