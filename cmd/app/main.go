package main

import (
	"flag"
	"log"
	"os"

	"MacroPull/internal/di"
	"MacroPull/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s cache=%s kafka=%t", cfg.Environment, cfg.Cache.Backend, cfg.Kafka.Enabled)
	if cfg.Sources.FRED.APIKey == "" {
		log.Printf("FRED_API_KEY not set: fred indicators will be reported missing")
	}

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
