package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dmitrijs2005/hashdrive/internal/client/config"
	"github.com/urfave/cli/v2"
)

// newApp is a test seam for NewApp.
var newApp = NewApp

func (a *App) status() string {
	address := a.sess.Address()
	switch {
	case address == "":
		return "(locked)"
	case a.sess.Connected():
		return fmt.Sprintf("(%s)", address)
	default:
		return fmt.Sprintf("(%s offline)", address)
	}
}

// Shell runs the interactive loop on a single session and logs out on exit.
func (a *App) Shell(ctx context.Context) error {
	a.autoConnect = false
	printlnFn("HashDrive CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.lines)
	if a.isConnected() {
		return a.Logout(ctx)
	}
	return nil
}

var globalFlags = []cli.Flag{
	&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "JSON or YAML config file", EnvVars: []string{"HASHDRIVE_CONFIG"}},
	&cli.StringFlag{Name: "server", Usage: "HashDrive server URL"},
	&cli.StringFlag{Name: "ledger", Usage: "ledger gRPC address"},
	&cli.StringFlag{Name: "wallet", Usage: "wallet keyfile"},
	&cli.DurationFlag{Name: "sign-timeout", Usage: "how long a signature request may wait"},
	&cli.DurationFlag{Name: "finality-timeout", Usage: "how long to wait for ledger finality"},
	&cli.DurationFlag{Name: "poll-interval", Usage: "ledger status poll interval"},
	&cli.DurationFlag{Name: "request-timeout", Usage: "HTTP request timeout"},
	&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "sign without asking for confirmation"},
}

// loadConfig reads the config file named by --config and overlays the flags
// that were set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("server") {
		cfg.ServerURL = c.String("server")
	}
	if c.IsSet("ledger") {
		cfg.LedgerAddr = c.String("ledger")
	}
	if c.IsSet("wallet") {
		cfg.WalletPath = c.String("wallet")
	}
	if c.IsSet("sign-timeout") {
		cfg.SignTimeout = c.Duration("sign-timeout")
	}
	if c.IsSet("finality-timeout") {
		cfg.FinalityTimeout = c.Duration("finality-timeout")
	}
	if c.IsSet("poll-interval") {
		cfg.PollInterval = c.Duration("poll-interval")
	}
	if c.IsSet("request-timeout") {
		cfg.RequestTimeout = c.Duration("request-timeout")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

func indexArg(c *cli.Context, pos int) (uint64, error) {
	s := c.Args().Get(pos)
	index, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return index, nil
}

// Run parses args and runs the selected command. Errors are returned
// unchanged so that callers can describe them.
func Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	var app *App

	with := func(fn func(c *cli.Context, a *App) error) cli.ActionFunc {
		return func(c *cli.Context) error { return fn(c, app) }
	}

	root := &cli.App{
		Name:      "hashdrive",
		Usage:     "store files by content hash and register them on the ledger",
		Reader:    in,
		Writer:    out,
		ErrWriter: out,
		Flags:     globalFlags,
		// Exit codes are chosen by the caller.
		ExitErrHandler: func(*cli.Context, error) {},
		Before: func(c *cli.Context) error {
			if c.Args().Len() == 0 {
				return nil
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			app, err = newApp(cfg, in, out)
			if err != nil {
				return err
			}
			app.assumeYes = c.Bool("yes")
			return nil
		},
		After: func(c *cli.Context) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
		Commands: []*cli.Command{
			{
				Name:  "wallet",
				Usage: "manage the local wallet",
				Subcommands: []*cli.Command{
					{
						Name:  "new",
						Usage: "create an encrypted wallet keyfile",
						Flags: []cli.Flag{&cli.BoolFlag{Name: "force", Usage: "replace an existing keyfile"}},
						Action: with(func(c *cli.Context, a *App) error {
							return a.WalletNew(c.Context, c.Bool("force"))
						}),
					},
					{
						Name:  "show",
						Usage: "print the wallet address and ledger balance",
						Action: with(func(c *cli.Context, a *App) error {
							return a.WalletShow(c.Context)
						}),
					},
				},
			},
			{
				Name:  "connect",
				Usage: "sign a server challenge and verify the session",
				Action: with(func(c *cli.Context, a *App) error {
					return a.Connect(c.Context)
				}),
			},
			{
				Name:      "upload",
				Usage:     "store a file and register it on the ledger",
				ArgsUsage: "<path>",
				Action: with(func(c *cli.Context, a *App) error {
					if c.Args().Len() != 1 {
						return cli.ShowSubcommandHelp(c)
					}
					return a.Upload(c.Context, c.Args().First())
				}),
			},
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "list registered files",
				Action: with(func(c *cli.Context, a *App) error {
					return a.List(c.Context)
				}),
			},
			{
				Name:      "download",
				Usage:     "download a registered file",
				ArgsUsage: "<index>",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "destination directory"}},
				Action: with(func(c *cli.Context, a *App) error {
					if c.Args().Len() != 1 {
						return cli.ShowSubcommandHelp(c)
					}
					index, err := indexArg(c, 0)
					if err != nil {
						return err
					}
					return a.Download(c.Context, index, c.String("out"))
				}),
			},
			{
				Name:      "grant",
				Usage:     "let another address download a file you uploaded",
				ArgsUsage: "<index> <address>",
				Action: with(func(c *cli.Context, a *App) error {
					if c.Args().Len() != 2 {
						return cli.ShowSubcommandHelp(c)
					}
					index, err := indexArg(c, 0)
					if err != nil {
						return err
					}
					return a.Grant(c.Context, index, c.Args().Get(1))
				}),
			},
			{
				Name:  "shell",
				Usage: "interactive session",
				Action: with(func(c *cli.Context, a *App) error {
					return a.Shell(c.Context)
				}),
			},
		},
	}

	return root.RunContext(ctx, args)
}
