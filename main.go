package main

import (
	"fmt"
	"net/http"
	"os"

	"ailab/chat"
	"ailab/config"
	"ailab/provider"
	"ailab/server"
	"ailab/storage"
	"ailab/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	dataDir := cfg.DataDir()
	logger := config.NewLogger(dataDir, cfg.Debug)

	store, err := storage.NewConversationStore(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening conversation store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	creds := config.NewCredentialStore(dataDir)
	if err := creds.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading credentials: %v\n", err)
		os.Exit(1)
	}

	endpoints := provider.Endpoints{}
	for _, p := range cfg.Providers {
		if !p.Enabled || p.BaseURL == "" {
			continue
		}
		endpoints[chat.ProviderKind(p.ID)] = p.BaseURL
	}

	cache := provider.NewCache(creds, endpoints, logger)
	creds.OnChange(cache.Invalidate)

	manager := chat.NewManager(store, cache, logger)
	runner := webhook.NewRunner(logger)
	srv := server.New(manager, runner, creds, cfg, logger)

	logger.Info("listening", "addr", cfg.ListenAddr, "data_dir", dataDir)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Handler()); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
