package main

import (
	"context"
	"log"

	"github.com/avelkers/medrecord/internal/server"
	"github.com/avelkers/medrecord/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
