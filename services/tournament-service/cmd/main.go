package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bracket-esports/bracket/common/config"
	"github.com/bracket-esports/bracket/services/tournament-service/app"
)

func main() {
	env := config.NewEnvLoader(config.EnvPrefix)

	cfg, err := config.Load(env.GetString("CONFIG_PATH", "../config"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, appErr := app.New(ctx, cfg)
	if appErr != nil {
		log.Fatalf("Failed to initialize application: %v", appErr)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Application exited with error: %v", err)
	}
}
