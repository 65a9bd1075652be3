package main

import (
	"flag"
	"log/slog"
	"os"

	"expodash/internal/app"
	"expodash/internal/config"
)

func main() {
	port := flag.Int("port", 0, "HTTP port (overrides EXPODASH_SERVER_PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
