// Package config handles configuration for the HashDrive server: defaults,
// an optional JSON or YAML file, and command-line flags, applied in that
// order.
package config

import "time"

// Config holds runtime settings for the server.
//
// Fields:
//   - ListenAddr: bind address of the HTTP API.
//   - DatabaseDSN: "postgres://..." for PostgreSQL (pgx), otherwise a SQLite
//     path with an optional "sqlite:" prefix.
//   - SecretKey: HMAC secret for session tokens (HS256). Do not use the
//     default outside development.
//   - NonceTTL / TokenTTL: lifetime of a challenge and of a session.
//   - StorageBackend: "file", "s3" or "memory".
//   - StorageDir: root of the file backend.
//   - MaxUploadSize: largest accepted upload in bytes.
//   - S3*: object storage settings for the s3 backend.
//   - LedgerAddr: gRPC address of the ledger node.
//   - RequireGrant: also require a ledger grant (or authorship) to download.
//   - CORSOrigin: value of Access-Control-Allow-Origin.
type Config struct {
	ListenAddr     string
	DatabaseDSN    string
	SecretKey      string
	NonceTTL       time.Duration
	TokenTTL       time.Duration
	StorageBackend string
	StorageDir     string
	MaxUploadSize  int64
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	LedgerAddr     string
	RequireGrant   bool
	CORSOrigin     string
	LogLevel       string
	LogFormat      string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8000"
	c.DatabaseDSN = "sqlite:data/hashdrive.db"
	c.SecretKey = "secretKey"
	c.NonceTTL = 5 * time.Minute
	c.TokenTTL = 60 * time.Minute
	c.StorageBackend = "file"
	c.StorageDir = "data/blobs"
	c.MaxUploadSize = 64 << 20
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "hashdrive"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LedgerAddr = "127.0.0.1:50052"
	c.RequireGrant = false
	c.CORSOrigin = "*"
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig applies defaults, then the optional config file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
