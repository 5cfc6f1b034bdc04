package config

// Package config provides a reusable loader for the synnergy execution
// core's node-level settings (as opposed to core.Genesis/core.ChainConfig,
// which are chain-identity data, not process configuration). It is versioned
// so that applications can depend on a stable API contract.
//
// Version: v0.2.0
//
// Adapted from the teacher's Config, which additionally carried a
// Network/Consensus section (peer discovery, block time, validator count)
// for its full P2P node. spec.md's Non-goals exclude consensus and gossip
// entirely, so this repo's Config keeps only the fields a standalone
// execution-core process actually reads: which genesis file to boot from,
// where to listen, and how to log.

import (
	"fmt"

	"github.com/spf13/viper"

	"synnergy-network/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.2.0"

// Config is the unified runtime configuration for a synnergy execution-core
// process (cmd/synnergy's "chain serve").
type Config struct {
	Node struct {
		GenesisFile string `mapstructure:"genesis_file" json:"genesis_file"`
		ListenAddr  string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"node" json:"node"`

	Resources struct {
		MaxCPUUsageMS   int `mapstructure:"max_cpu_usage_ms" json:"max_cpu_usage_ms"`
		BlockDeadlineMS int `mapstructure:"block_deadline_ms" json:"block_deadline_ms"`
	} `mapstructure:"resources" json:"resources"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SYNN_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SYNN_ENV", ""))
}
