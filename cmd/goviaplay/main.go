package main

import (
	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatalf("loading configuration: %v", err)
	}

	app := NewApp(cfg)
	if err := app.Initialize(); err != nil {
		app.Logger.Fatalf("initializing: %v", err)
	}
	defer app.Shutdown()

	if err := app.Run(); err != nil {
		app.Logger.Fatalf("server: %v", err)
	}
}
