package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/hashdrive/internal/client/services"
	"github.com/fatih/color"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it.
type execIface interface {
	isConnected() bool
	Connect(ctx context.Context) error
	Logout(ctx context.Context) error
	Upload(ctx context.Context, path string) error
	List(ctx context.Context) error
	Download(ctx context.Context, index uint64, dir string) error
	Grant(ctx context.Context, index uint64, grantee string) error
	WalletShow(ctx context.Context) error
}

const (
	helpDisconnected = "Available commands: connect, list, grant <index> <address>, wallet, exit"
	helpConnected    = "Available commands: upload <path>, (l)ist, download <index> [dir], grant <index> <address>, wallet, logout, exit"
)

// runREPL reads commands from lines until EOF, "exit" or "quit". A failed
// command is reported and the loop goes on; the session survives between
// commands.
func runREPL(ctx context.Context, a execIface, statusFn func() string, lines *lineReader) {
	for {
		printlnFn(fmt.Sprintf("hd %s> ", statusFn()))
		line, err := lines.ReadLine(ctx)
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isConnected() {
				printlnFn(helpConnected)
			} else {
				printlnFn(helpDisconnected)
			}

		case "connect":
			report(a.Connect(ctx))

		case "logout":
			report(a.Logout(ctx))

		case "upload":
			if len(args) != 1 {
				printlnFn("Usage: upload <path>")
				continue
			}
			report(a.Upload(ctx, args[0]))

		case "l", "list":
			report(a.List(ctx))

		case "download":
			if len(args) < 1 || len(args) > 2 {
				printlnFn("Usage: download <index> [dir]")
				continue
			}
			index, ok := parseIndex(args[0])
			if !ok {
				continue
			}
			dir := ""
			if len(args) == 2 {
				dir = args[1]
			}
			report(a.Download(ctx, index, dir))

		case "grant":
			if len(args) != 2 {
				printlnFn("Usage: grant <index> <address>")
				continue
			}
			index, ok := parseIndex(args[0])
			if !ok {
				continue
			}
			report(a.Grant(ctx, index, args[1]))

		case "wallet":
			report(a.WalletShow(ctx))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if errors.Is(err, io.EOF) {
			return
		}
	}
}

func parseIndex(s string) (uint64, bool) {
	index, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		printlnFn("Invalid index:", s)
		return 0, false
	}
	return index, true
}

func report(err error) {
	if err == nil {
		return
	}
	printlnFn(color.New(color.FgRed).Sprint("✗"), services.Describe(err))
}
