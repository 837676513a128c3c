package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/hashdrive/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
//	-a string     gRPC listen address
//	-f string     bbolt database path
//	-i duration   block interval (e.g. "2s")
//	-n uint       confirmations required for finality
//	-x uint       fee per transaction
//	-m uint       initial balance of a new address
//	-l string     log level
//	-o string     log format (text or json)
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-i", "-n", "-x", "-m", "-l", "-o"})

	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "gRPC listen address")
	fs.StringVar(&config.BoltPath, "f", config.BoltPath, "bbolt database path")
	fs.DurationVar(&config.BlockInterval, "i", config.BlockInterval, "block interval")
	fs.Uint64Var(&config.Confirmations, "n", config.Confirmations, "confirmations required for finality")
	fs.Uint64Var(&config.Fee, "x", config.Fee, "fee per transaction")
	fs.Uint64Var(&config.InitialBalance, "m", config.InitialBalance, "initial balance of a new address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "o", config.LogFormat, "log format (text or json)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
