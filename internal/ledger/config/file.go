package config

import (
	"github.com/dmitrijs2005/hashdrive/internal/flagx"
	"github.com/dmitrijs2005/hashdrive/internal/timex"
)

// FileConfig is the on-disk shape of the ledger configuration. Zero values
// leave the current setting untouched.
type FileConfig struct {
	ListenAddr     string         `json:"listen_addr" yaml:"listen_addr"`
	BoltPath       string         `json:"bolt_path" yaml:"bolt_path"`
	BlockInterval  timex.Duration `json:"block_interval" yaml:"block_interval"`
	Confirmations  uint64         `json:"confirmations" yaml:"confirmations"`
	Fee            uint64         `json:"fee" yaml:"fee"`
	InitialBalance uint64         `json:"initial_balance" yaml:"initial_balance"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
	LogFormat      string         `json:"log_format" yaml:"log_format"`
}

// parseFile loads the file named by -c/-config, if any. It panics on an
// unreadable or invalid file.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	c := &FileConfig{}
	if err := flagx.DecodeConfigFile(path, c); err != nil {
		panic(err)
	}

	if c.ListenAddr != "" {
		config.ListenAddr = c.ListenAddr
	}
	if c.BoltPath != "" {
		config.BoltPath = c.BoltPath
	}
	if c.BlockInterval.Duration > 0 {
		config.BlockInterval = c.BlockInterval.Duration
	}
	if c.Confirmations > 0 {
		config.Confirmations = c.Confirmations
	}
	if c.Fee > 0 {
		config.Fee = c.Fee
	}
	if c.InitialBalance > 0 {
		config.InitialBalance = c.InitialBalance
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		config.LogFormat = c.LogFormat
	}
}
