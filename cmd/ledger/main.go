package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/hashdrive/internal/ledger/config"
	"github.com/dmitrijs2005/hashdrive/internal/ledger/ledgerd"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := ledgerd.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
