// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/playable-foundation/playable/lib/blobstore"
	"github.com/playable-foundation/playable/lib/config"
	"github.com/playable-foundation/playable/lib/export"
	"github.com/playable-foundation/playable/lib/liveconfig"
	"github.com/playable-foundation/playable/lib/previewserver"
	"github.com/playable-foundation/playable/lib/service"
	"github.com/playable-foundation/playable/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "",
		"path to the playable.yaml config file (overrides PLAYABLE_CONFIG)")
	listen := flag.String("listen", "",
		"listen address, host:port (overrides the config file)")
	showVersion := flag.Bool("version", false,
		"print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("playable-previewd %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	logger := service.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := blobstore.NewStore(cfg.Store.Root, logger)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}
	defer store.Close()

	preview := previewserver.New(store, logger)
	preview.Activate()

	live := liveconfig.New(store, func(namespace string) {
		logger.Info("preview reload", "namespace", namespace)
	}, cfg.LiveConfig.DebounceWindow, logger)
	defer live.Close()

	transcoder := export.NewTranscoder(export.Config{
		Ceilings: map[export.Target]int64{
			export.TargetZipFolder:  cfg.Export.ZipCeiling,
			export.TargetInlineHTML: cfg.Export.InlineCeiling,
		},
		Logger: logger,
	})

	handler := newHandler(handlerConfig{
		Store:      store,
		Preview:    preview,
		Live:       live,
		Transcoder: transcoder,
		Logger:     logger,
	})

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address:         cfg.Server.Listen,
		Handler:         handler,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})

	logger.Info("preview daemon starting",
		"listen", cfg.Server.Listen,
		"store_root", cfg.Store.Root,
		"debounce_window", cfg.LiveConfig.DebounceWindow,
	)

	return server.Serve(ctx)
}

// loadConfig resolves the configuration source: an explicit --config
// path wins, then PLAYABLE_CONFIG, then built-in defaults for local
// development.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("PLAYABLE_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}
