package config

import (
	"github.com/dmitrijs2005/hashdrive/internal/flagx"
	"github.com/dmitrijs2005/hashdrive/internal/timex"
)

// FileConfig is a DTO used exclusively for decoding the config file. It
// relies on timex.Duration so intervals can be written as "3s" or as integer
// nanoseconds. Zero values leave the current setting untouched.
type FileConfig struct {
	ServerURL       string         `json:"server_url" yaml:"server_url"`
	LedgerAddr      string         `json:"ledger_addr" yaml:"ledger_addr"`
	WalletPath      string         `json:"wallet_path" yaml:"wallet_path"`
	DownloadDir     string         `json:"download_dir" yaml:"download_dir"`
	SignTimeout     timex.Duration `json:"sign_timeout" yaml:"sign_timeout"`
	FinalityTimeout timex.Duration `json:"finality_timeout" yaml:"finality_timeout"`
	PollInterval    timex.Duration `json:"poll_interval" yaml:"poll_interval"`
	RequestTimeout  timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	LogLevel        string         `json:"log_level" yaml:"log_level"`
}

func parseFile(path string, cfg *Config) error {
	var fc FileConfig
	if err := flagx.DecodeConfigFile(path, &fc); err != nil {
		return err
	}

	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.LedgerAddr, fc.LedgerAddr)
	setString(&cfg.WalletPath, fc.WalletPath)
	setString(&cfg.DownloadDir, fc.DownloadDir)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.SignTimeout.Duration > 0 {
		cfg.SignTimeout = fc.SignTimeout.Duration
	}
	if fc.FinalityTimeout.Duration > 0 {
		cfg.FinalityTimeout = fc.FinalityTimeout.Duration
	}
	if fc.PollInterval.Duration > 0 {
		cfg.PollInterval = fc.PollInterval.Duration
	}
	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
