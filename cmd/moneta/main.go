package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/moneta-bot/moneta/common/version"
	"github.com/moneta-bot/moneta/internal/moneta/app"
	"github.com/moneta-bot/moneta/internal/moneta/config"
)

func main() {
	configPath := flag.String("config", envOr("MONETA_CONFIG", "moneta.yaml"), "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("moneta %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Secrets prefer the environment over the config file so the file
	// can be committed without them.
	if token := os.Getenv("MATRIX_ACCESS_TOKEN"); token != "" {
		cfg.Matrix.AccessToken = token
	}
	if key := os.Getenv("MONETA_MASTER_KEY"); key != "" {
		cfg.Store.MasterKey = key
	}
	if apiKey := os.Getenv("MONETA_PAYMENTS_API_KEY"); apiKey != "" {
		cfg.Payments.APIKey = apiKey
	}

	if cfg.Matrix.AccessToken == "" {
		fmt.Fprintln(os.Stderr, "Error: MATRIX_ACCESS_TOKEN (or matrix.accessToken) is required")
		os.Exit(1)
	}
	if cfg.Store.MasterKey == "" {
		fmt.Fprintln(os.Stderr, "Error: MONETA_MASTER_KEY is required\nGenerate a key with: openssl rand -hex 32")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	moneta, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Moneta: %v\n", err)
		os.Exit(1)
	}

	if err := moneta.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Moneta: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
