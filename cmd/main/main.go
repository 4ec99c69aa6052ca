package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"stockyard/browser/internal/config"
	"stockyard/browser/internal/container"

	log "github.com/sirupsen/logrus"
)

func main() {
	dump := flag.Bool("dump", false, "export the inventory tree as JSON and exit")
	category := flag.String("category", "", "restrict -dump to a single category")
	flag.Parse()

	// Load configuration using viper
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize container with all dependencies
	app, err := container.New(cfg, !*dump)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	log.Info("Starting stockyard browser...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dump {
		err = app.Dump(ctx, *category)
	} else {
		err = app.Run(ctx)
	}
	if err != nil {
		app.Close()
		log.Fatalf("Application exited with error: %v", err)
	}

	if err := app.Close(); err != nil {
		log.Fatalf("Failed to shut down cleanly: %v", err)
	}

	log.Info("Application finished successfully")
}
