// Package config handles configuration for the ledger node: defaults, an
// optional JSON or YAML file, and command-line flags, applied in that order.
package config

import "time"

// Config holds runtime settings for the ledger node.
type Config struct {
	ListenAddr     string
	BoltPath       string
	BlockInterval  time.Duration
	Confirmations  uint64
	Fee            uint64
	InitialBalance uint64
	LogLevel       string
	LogFormat      string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":50052"
	c.BoltPath = "data/ledger.db"
	c.BlockInterval = 2 * time.Second
	c.Confirmations = 3
	c.Fee = 0
	c.InitialBalance = 0
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig applies defaults, then the optional config file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
