package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/hashdrive/internal/client/cli"
	"github.com/dmitrijs2005/hashdrive/internal/client/services"
	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, os.Args, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("✗"), services.Describe(err))
		stop()
		os.Exit(1)
	}
}
