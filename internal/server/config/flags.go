package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/hashdrive/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
//	-a string     HTTP listen address (e.g. ":8000")
//	-d string     database DSN
//	-s string     session token HMAC secret
//	-n duration   nonce lifetime (e.g. "5m")
//	-t duration   session token lifetime (e.g. "1h")
//	-k string     storage backend: file, s3 or memory
//	-f string     file backend directory
//	-m int        max upload size in bytes
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint
//	-L string     ledger node gRPC address
//	-G            require a ledger grant to download (use -G=true)
//	-O string     CORS allowed origin
//	-l string     log level
//	-o string     log format (json or text)
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-n", "-t", "-k", "-f", "-m",
		"-u", "-p", "-b", "-g", "-e", "-L", "-G", "-O", "-l", "-o",
	})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.NonceTTL, "n", config.NonceTTL, "nonce lifetime")
	fs.DurationVar(&config.TokenTTL, "t", config.TokenTTL, "session token lifetime")
	fs.StringVar(&config.StorageBackend, "k", config.StorageBackend, "storage backend (file, s3, memory)")
	fs.StringVar(&config.StorageDir, "f", config.StorageDir, "file storage directory")
	fs.Int64Var(&config.MaxUploadSize, "m", config.MaxUploadSize, "max upload size in bytes")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LedgerAddr, "L", config.LedgerAddr, "ledger node address")
	fs.BoolVar(&config.RequireGrant, "G", config.RequireGrant, "require a ledger grant to download")
	fs.StringVar(&config.CORSOrigin, "O", config.CORSOrigin, "CORS allowed origin")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "o", config.LogFormat, "log format (json or text)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
