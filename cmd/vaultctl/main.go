package main

import (
	"context"
	"log"
	"os"

	"github.com/SakshiM22/secure-vault/internal/buildinfo"
	"github.com/SakshiM22/secure-vault/internal/client/cli"
	"github.com/SakshiM22/secure-vault/internal/client/config"
)

func main() {
	ctx := context.Background()

	cfg, args, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(args) == 0 {
		buildinfo.PrintBuildData(os.Stdout)
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx, args); err != nil {
		log.Fatalf("%v", err)
	}
}
