package config

import (
	"github.com/dmitrijs2005/hashdrive/internal/flagx"
	"github.com/dmitrijs2005/hashdrive/internal/timex"
)

// FileConfig is the on-disk shape of the server configuration. Durations
// accept "5m" style strings or integer nanoseconds. Zero values leave the
// current setting untouched.
type FileConfig struct {
	ListenAddr     string         `json:"listen_addr" yaml:"listen_addr"`
	DatabaseDSN    string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey      string         `json:"secret_key" yaml:"secret_key"`
	NonceTTL       timex.Duration `json:"nonce_ttl" yaml:"nonce_ttl"`
	TokenTTL       timex.Duration `json:"token_ttl" yaml:"token_ttl"`
	StorageBackend string         `json:"storage_backend" yaml:"storage_backend"`
	StorageDir     string         `json:"storage_dir" yaml:"storage_dir"`
	MaxUploadSize  int64          `json:"max_upload_size" yaml:"max_upload_size"`
	S3RootUser     string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LedgerAddr     string         `json:"ledger_addr" yaml:"ledger_addr"`
	RequireGrant   bool           `json:"require_grant" yaml:"require_grant"`
	CORSOrigin     string         `json:"cors_origin" yaml:"cors_origin"`
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

	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.NonceTTL.Duration > 0 {
		config.NonceTTL = c.NonceTTL.Duration
	}
	if c.TokenTTL.Duration > 0 {
		config.TokenTTL = c.TokenTTL.Duration
	}
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.StorageDir, c.StorageDir)
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LedgerAddr, c.LedgerAddr)
	if c.RequireGrant {
		config.RequireGrant = true
	}
	setString(&config.CORSOrigin, c.CORSOrigin)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
