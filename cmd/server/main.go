package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/logging"
	"github.com/dmitrijs2005/bkashgate/internal/server"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
