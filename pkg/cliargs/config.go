// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package cliargs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SolanaConfig mirrors the Solana CLI config file.
type SolanaConfig struct {
	JSONRPCURL    string            `yaml:"json_rpc_url"`
	WebsocketURL  string            `yaml:"websocket_url"`
	KeypairPath   string            `yaml:"keypair_path"`
	AddressLabels map[string]string `yaml:"address_labels,omitempty"`
	Commitment    string            `yaml:"commitment"`
}

// DefaultConfigPath is ~/.config/solana/cli/config.yml, empty when home is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "solana", "cli", "config.yml")
}

// DefaultSolanaConfig is what the Solana CLI uses without a config file.
func DefaultSolanaConfig() SolanaConfig {
	keypair := ""
	if home, err := os.UserHomeDir(); err == nil {
		keypair = filepath.Join(home, ".config", "solana", "id.json")
	}
	return SolanaConfig{
		JSONRPCURL:  NormalizeToURLIfMoniker("mainnet-beta"),
		KeypairPath: keypair,
		Commitment:  "confirmed",
	}
}

// LoadSolanaConfig reads the config at path, or the default location when path is
// empty. A missing file yields the defaults.
func LoadSolanaConfig(path string) (SolanaConfig, error) {
	cfg := DefaultSolanaConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config file %s", path)
	}
	var loaded SolanaConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	if loaded.JSONRPCURL != "" {
		cfg.JSONRPCURL = loaded.JSONRPCURL
	}
	if loaded.KeypairPath != "" {
		cfg.KeypairPath = loaded.KeypairPath
	}
	if loaded.Commitment != "" {
		cfg.Commitment = loaded.Commitment
	}
	cfg.WebsocketURL = loaded.WebsocketURL
	cfg.AddressLabels = loaded.AddressLabels
	return cfg, nil
}
