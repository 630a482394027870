// Package config handles loading and validating gateway configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level configuration for the Hive gateway.
type Config struct {
	Env        string                    `koanf:"env"`
	Server     ServerConfig              `koanf:"server"`
	Providers  map[string]ProviderConfig `koanf:"providers"`
	Router     RouterConfig              `koanf:"router"`
	Loop       LoopConfig                `koanf:"loop"`
	Federation FederationConfig          `koanf:"federation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// ProviderConfig holds the settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string   `koanf:"api_key"`
	BaseURL string   `koanf:"base_url"`
	Enabled bool     `koanf:"enabled"`
	Models  []string `koanf:"models"`
}

// RouterConfig holds tier fallback chains, the global cost ceiling, and
// per-provider rate limits consulted by internal/router.
type RouterConfig struct {
	Chains          map[string][]string `koanf:"chains"`
	CostLimitUSD    float64             `koanf:"cost_limit_usd"`
	RateLimitPerSec float64             `koanf:"rate_limit_per_sec"`
	RateLimitBurst  int                 `koanf:"rate_limit_burst"`
	HistoryRedisURL string              `koanf:"history_redis_url"`
}

// LoopConfig mirrors internal/loop.Config. applyDefaults fills any field
// left at its zero value with the same value loop.DefaultConfig uses.
type LoopConfig struct {
	MaxIterations     int      `koanf:"max_iterations"`
	CostLimitUSD      float64  `koanf:"cost_limit_usd"`
	TimeLimitSecs     int      `koanf:"time_limit_secs"`
	CompletionPhrases []string `koanf:"completion_phrases"`
}

// FederationConfig configures this node's identity file, its LAN listen
// address, and the UDP discovery beacon.
type FederationConfig struct {
	ListenAddr            string `koanf:"listen_addr"`
	DiscoveryPort         int    `koanf:"discovery_port"`
	DiscoveryIntervalSecs int    `koanf:"discovery_interval_secs"`
	IdentityFile          string `koanf:"identity_file"`
	PeerRegistryFile      string `koanf:"peer_registry_file"`
	HeartbeatTimeoutSecs  uint64 `koanf:"heartbeat_timeout_secs"`
}

// envPrefix is the prefix for configuration overrides read from the
// process environment, e.g. HIVE_SERVER_PORT overrides server.port.
const envPrefix = "HIVE_"

// Load reads configuration from a YAML file, layers environment variable
// overrides on top, and returns a fully populated Config.
func Load(path string) (*Config, error) {
	// Load .env file into the process environment (ignored if not present).
	// This is the equivalent of require('dotenv').config() in Node.
	_ = godotenv.Load()

	// Create a new koanf instance. The "." delimiter tells koanf how to
	// separate nested keys internally (e.g., "server.port").
	k := koanf.New(".")

	// Load the YAML config file. file.Provider reads the file,
	// yaml.Parser() decodes the YAML format into koanf's internal map.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	// Layer environment variables on top. Any env var starting with
	// "HIVE_" can override a config value. The callback transforms
	// the env var name into a koanf key path:
	//   HIVE_SERVER_PORT -> server.port
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"_", ".",
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// Unmarshal the loaded key-value pairs into our Config struct.
	// The "" means start from the root. &cfg passes a pointer so koanf
	// can write into the struct (like passing by reference in Node).
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	// Expand ${VAR_NAME} placeholders in provider API keys.
	// koanf doesn't do this automatically, so we handle it ourselves
	// using os.Getenv to look up the actual environment variable value.
	for name, p := range cfg.Providers {
		p.APIKey = expandEnvPlaceholder(p.APIKey)
		cfg.Providers[name] = p // write back into the map
	}

	return &cfg, nil
}

// expandEnvPlaceholder resolves a single ${VAR_NAME} placeholder, leaving
// any value that isn't of that exact shape untouched.
func expandEnvPlaceholder(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return value
}

// applyDefaults fills in the loop and federation defaults that the
// gateway would otherwise leave at Go's zero values, matching the
// defaults internal/loop.DefaultConfig and the federation identity
// bootstrap already assume.
func applyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "production"
	}
	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop.MaxIterations = 20
	}
	if cfg.Loop.CostLimitUSD == 0 {
		cfg.Loop.CostLimitUSD = 2.0
	}
	if cfg.Loop.TimeLimitSecs == 0 {
		cfg.Loop.TimeLimitSecs = 600
	}
	if len(cfg.Loop.CompletionPhrases) == 0 {
		cfg.Loop.CompletionPhrases = []string{
			"task complete", "all done", "finished", "implementation complete",
		}
	}
	if cfg.Federation.DiscoveryPort == 0 {
		cfg.Federation.DiscoveryPort = 17470
	}
	if cfg.Federation.DiscoveryIntervalSecs == 0 {
		cfg.Federation.DiscoveryIntervalSecs = 5
	}
	if cfg.Federation.IdentityFile == "" {
		cfg.Federation.IdentityFile = "hive_identity.json"
	}
	if cfg.Federation.PeerRegistryFile == "" {
		cfg.Federation.PeerRegistryFile = "hive_peers.json"
	}
	if cfg.Federation.HeartbeatTimeoutSecs == 0 {
		cfg.Federation.HeartbeatTimeoutSecs = 30
	}
	if cfg.Router.RateLimitPerSec == 0 {
		cfg.Router.RateLimitPerSec = 10
	}
	if cfg.Router.RateLimitBurst == 0 {
		cfg.Router.RateLimitBurst = 20
	}
}
