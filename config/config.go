// Package config holds daemon configuration: YAML file with environment
// variable overrides. Market settings here are only the seed for a fresh
// ledger; once initialised, the persisted market config is authoritative
// and mutated through admin actions.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MarketSeed is the initial market configuration written to an empty ledger.
type MarketSeed struct {
	Admins            []string `yaml:"admins"`
	AssetDenom        string   `yaml:"asset_denom"`
	AcceptedBetDenoms []string `yaml:"accepted_bet_denoms"`
	TreasuryAddr      string   `yaml:"treasury_addr"`
}

// OracleConfig selects the price oracle. An empty URL means the static
// development oracle.
type OracleConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Config holds all daemon configuration.
type Config struct {
	ListenAddr   string       `yaml:"listen_addr"`
	DataDir      string       `yaml:"data_dir"`
	LogLevel     string       `yaml:"log_level"`
	LogFile      string       `yaml:"log_file"` // empty → stderr only
	RPCAuthToken string       `yaml:"rpc_auth_token"`
	Oracle       OracleConfig `yaml:"oracle"`
	Market       MarketSeed   `yaml:"market"`
}

// Default returns a single-node development configuration.
func Default() *Config {
	return &Config{
		ListenAddr: ":8560",
		DataDir:    "./data",
		LogLevel:   "info",
		Oracle:     OracleConfig{TimeoutSeconds: 5},
		Market: MarketSeed{
			Admins:            []string{"admin"},
			AssetDenom:        "ukuji",
			AcceptedBetDenoms: []string{"uusk"},
			TreasuryAddr:      "treasury",
		},
	}
}

// Load reads a YAML config file from path, then applies env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides fields from UPDOWN_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("UPDOWN_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("UPDOWN_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("UPDOWN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("UPDOWN_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("UPDOWN_RPC_AUTH_TOKEN"); v != "" {
		c.RPCAuthToken = v
	}
	if v := os.Getenv("UPDOWN_ORACLE_URL"); v != "" {
		c.Oracle.URL = v
	}
	if v := os.Getenv("UPDOWN_ORACLE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Oracle.TimeoutSeconds = n
		}
	}
}

// Validate checks that the configuration can seed a working market.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if len(c.Market.Admins) == 0 {
		return fmt.Errorf("market.admins must not be empty")
	}
	if c.Market.AssetDenom == "" {
		return fmt.Errorf("market.asset_denom is required")
	}
	if len(c.Market.AcceptedBetDenoms) == 0 {
		return fmt.Errorf("market.accepted_bet_denoms must not be empty")
	}
	if c.Market.TreasuryAddr == "" {
		return fmt.Errorf("market.treasury_addr is required")
	}
	return nil
}

// Save writes the config to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
