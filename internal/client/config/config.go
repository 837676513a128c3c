package config

import "time"

// Config holds runtime settings for the HashDrive CLI.
//
// Fields:
//   - ServerURL: base URL of the HashDrive HTTP API.
//   - LedgerAddr: host:port of the ledger gRPC endpoint.
//   - WalletPath: encrypted keyfile of the local wallet.
//   - DownloadDir: default destination of downloads.
//   - SignTimeout: how long a signature request may wait for the holder.
//   - FinalityTimeout / PollInterval: ledger confirmation wait and poll step.
//   - RequestTimeout: bound on a single HTTP request.
type Config struct {
	ServerURL       string
	LedgerAddr      string
	WalletPath      string
	DownloadDir     string
	SignTimeout     time.Duration
	FinalityTimeout time.Duration
	PollInterval    time.Duration
	RequestTimeout  time.Duration
	LogLevel        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.LedgerAddr = "127.0.0.1:50052"
	c.WalletPath = "hashdrive-wallet.json"
	c.DownloadDir = "downloads"
	c.SignTimeout = 2 * time.Minute
	c.FinalityTimeout = time.Minute
	c.PollInterval = time.Second
	c.RequestTimeout = 30 * time.Second
	c.LogLevel = "warn"
}

// LoadConfig returns defaults overlaid with the file at path, if path is not
// empty. Command-line flags are applied afterwards by the CLI.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path == "" {
		return cfg, nil
	}
	if err := parseFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
