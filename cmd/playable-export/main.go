// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// playable-export is a one-shot transcoder: it reads an uploaded
// build archive from disk and produces a single export artifact,
// without a running preview daemon.
//
// Example:
//
//	playable-export --target inline-html --values speed=9 game.zip -o game.html
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/playable-foundation/playable/lib/export"
	"github.com/playable-foundation/playable/lib/manifest"
	"github.com/playable-foundation/playable/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var targetName string
	var outputPath string
	var artifactName string
	var ceiling int64
	var valuePairs []string

	flagSet := pflag.NewFlagSet("playable-export", pflag.ContinueOnError)
	flagSet.StringVar(&targetName, "target", "zip-folder",
		"export target: zip-folder or inline-html")
	flagSet.StringVarP(&outputPath, "output", "o", "",
		"output file path (default: artifact name in the working directory)")
	flagSet.StringVar(&artifactName, "name", "",
		"artifact name (default: archive file name without extension)")
	flagSet.Int64Var(&ceiling, "ceiling", -1,
		"artifact byte ceiling; 0 disables, -1 keeps the target default")
	flagSet.StringSliceVar(&valuePairs, "values", nil,
		"variable values to bake in, name=value pairs")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("playable-export %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			flagSet.PrintDefaults()
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		flagSet.PrintDefaults()
		return nil
	}

	arguments := flagSet.Args()
	if len(arguments) != 1 {
		return fmt.Errorf("expected exactly one archive path, got %d arguments", len(arguments))
	}
	archivePath := arguments[0]

	target, err := export.ParseTarget(targetName)
	if err != nil {
		return err
	}

	values, err := parseValues(valuePairs)
	if err != nil {
		return err
	}

	archive, err := os.ReadFile(archivePath)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}

	if artifactName == "" {
		base := filepath.Base(archivePath)
		artifactName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	ceilings := export.DefaultCeilings()
	if ceiling >= 0 {
		ceilings[target] = ceiling
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	transcoder := export.NewTranscoder(export.Config{
		Ceilings: ceilings,
		Logger:   logger,
	})

	artifact, err := transcoder.Export(context.Background(), export.Request{
		Target:  target,
		Archive: archive,
		Values:  values,
		Name:    artifactName,
	})
	var sizeErr *export.SizeExceededError
	if errors.As(err, &sizeErr) {
		return fmt.Errorf("artifact is %d bytes, over the %d byte ceiling for %s",
			sizeErr.Size, sizeErr.Ceiling, sizeErr.Target)
	}
	if err != nil {
		return err
	}

	if outputPath == "" {
		outputPath = artifact.Name
	}
	if err := os.WriteFile(outputPath, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}

	fmt.Printf("%s (%d bytes)\n", outputPath, len(artifact.Data))
	return nil
}

// parseValues splits --values pairs into live values.
func parseValues(pairs []string) ([]manifest.LiveValue, error) {
	values := make([]manifest.LiveValue, 0, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --values entry %q, want name=value", pair)
		}
		values = append(values, manifest.LiveValue{Name: name, Value: value})
	}
	return values, nil
}
