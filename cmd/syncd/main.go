package main

import (
	"context"
	"log"
	"os"

	"github.com/infinitumhq/infinitum/internal/app"
	"github.com/infinitumhq/infinitum/internal/buildinfo"
	"github.com/infinitumhq/infinitum/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	application, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	application.Run(ctx)

}
