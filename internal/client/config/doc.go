// Package config loads runtime configuration for the HashDrive CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file, selected with the --config global flag.
//  3. Global flags of the CLI, which override earlier values.
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "ledger_addr": "127.0.0.1:50052",
//	  "wallet_path": "hashdrive-wallet.json",
//	  "sign_timeout": "2m",
//	  "finality_timeout": "1m"
//	}
package config
