// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Swap describes the single pair conversion this invocation should perform.
type Swap struct {
	InputMint     string  `yaml:"input_mint"`
	OutputMint    string  `yaml:"output_mint"`
	AmountAtoms   uint64  `yaml:"amount_atoms"`
	InputDecimals int     `yaml:"input_decimals"`
	SlippageBps   int     `yaml:"slippage_bps"`
	InputPriceUSD float64 `yaml:"input_price_usd"` // per whole input token, used for diagnostics only
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App    App    `yaml:"app"`
	Dex    Dex    `yaml:"dex"`
	Swap   Swap   `yaml:"swap"`
	Wallet Wallet `yaml:"wallet"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects parameter combinations that would fail every downstream
// call anyway, before any network traffic happens.
func (c *Config) Validate() error {
	if c.Swap.InputMint == "" {
		return fmt.Errorf("swap.input_mint is empty")
	}
	if c.Swap.OutputMint == "" {
		return fmt.Errorf("swap.output_mint is empty")
	}
	if c.Swap.InputMint == c.Swap.OutputMint {
		return fmt.Errorf("input and output mints are identical")
	}
	if c.Swap.AmountAtoms == 0 {
		return fmt.Errorf("swap.amount_atoms must be positive")
	}
	if c.Swap.SlippageBps < 0 || c.Swap.SlippageBps > 10_000 {
		return fmt.Errorf("swap.slippage_bps %d out of range [0, 10000]", c.Swap.SlippageBps)
	}
	if c.Dex.JupiterBase == "" {
		return fmt.Errorf("dex.jupiter_base is empty")
	}
	if c.Dex.RpcURL == "" {
		return fmt.Errorf("dex.rpc_url is empty")
	}
	return nil
}

// HTTPTimeout converts the configured millisecond budget into a duration,
// falling back to 10s when unset. The same timeout applies to every outbound
// HTTP call the process makes.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Dex.HTTPTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Dex.HTTPTimeoutMs) * time.Millisecond
}
