// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/ManuGH/tunebox/internal/assets"
)

func runAssetsCLI(staticDir string, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "build" {
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  tunebox assets build [--dir .] [--no-minify]")
		if len(args) == 0 {
			return 0
		}
		return 2
	}

	fs := flag.NewFlagSet("tunebox assets build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", ".", "project directory containing src/")
	noMinify := fs.Bool("no-minify", false, "disable minification")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	cfg := assets.DefaultConfig(*dir, staticDir)
	cfg.Minify = !*noMinify
	entries, err := assets.New(cfg).Build()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "built %s\n", e)
	}
	return 0
}
