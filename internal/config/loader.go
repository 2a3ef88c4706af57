package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	pkgconfig "github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file configuration.
const (
	EnvRPCURL          = "BAZAAR_RPC_URL"
	EnvIPFSGateway     = "BAZAAR_IPFS_GATEWAY"
	EnvReviewSchemaUID = "BAZAAR_REVIEW_SCHEMA_UID"
	EnvRedisURL        = "BAZAAR_REDIS_URL"

	// Names understood by the previous deployment, kept so existing environments keep working.
	EnvPonderIPFSGateway = "PONDER_IPFS_GATEWAY"
	EnvPonderRPCURLFmt   = "PONDER_RPC_URL_%d"
)

// LoadFromFile loads configuration from a file, auto-detecting the format by extension.
// Supported formats: .yaml, .yml, .json, .toml
func LoadFromFile(path string) (*pkgconfig.Config, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		return LoadFromYAML(path)
	case ".json":
		return LoadFromJSON(path)
	case ".toml":
		return LoadFromTOML(path)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json, .toml)", ext)
	}
}

// LoadFromYAML loads configuration from a YAML file.
func LoadFromYAML(path string) (*pkgconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg pkgconfig.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return processConfig(&cfg)
}

// LoadFromJSON loads configuration from a JSON file.
func LoadFromJSON(path string) (*pkgconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg pkgconfig.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}

	return processConfig(&cfg)
}

// LoadFromTOML loads configuration from a TOML file.
func LoadFromTOML(path string) (*pkgconfig.Config, error) {
	var cfg pkgconfig.Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	return processConfig(&cfg)
}

// processConfig applies environment overrides and defaults, then validates the configuration.
func processConfig(cfg *pkgconfig.Config) (*pkgconfig.Config, error) {
	ApplyEnvOverrides(cfg, os.LookupEnv)

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides overwrites configuration values with non-empty environment variables.
// lookup is os.LookupEnv outside of tests.
func ApplyEnvOverrides(cfg *pkgconfig.Config, lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if cfg.Downloader.ChainID != 0 {
		if v, ok := get(fmt.Sprintf(EnvPonderRPCURLFmt, cfg.Downloader.ChainID)); ok {
			cfg.Downloader.RPCURL = v
		}
	}
	if v, ok := get(EnvRPCURL); ok {
		cfg.Downloader.RPCURL = v
	}

	if v, ok := get(EnvPonderIPFSGateway); ok {
		cfg.IPFS.PreferredGateway = v
	}
	if v, ok := get(EnvIPFSGateway); ok {
		cfg.IPFS.PreferredGateway = v
	}

	if v, ok := get(EnvReviewSchemaUID); ok {
		cfg.Reviews.SchemaUID = v
	}

	if v, ok := get(EnvRedisURL); ok {
		if cfg.Cache == nil {
			cfg.Cache = &pkgconfig.CacheConfig{}
		}
		cfg.Cache.Enabled = true
		cfg.Cache.RedisURL = v
	}
}
