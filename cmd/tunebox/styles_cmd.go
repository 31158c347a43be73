// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ManuGH/tunebox/internal/styleconfig"
)

func runStylesCLI(stylesPath string, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStylesUsage(stderr)
		return 0
	}

	switch args[0] {
	case "print":
		cfg, err := loadStyles(stylesPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := styleconfig.Render(stdout, cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0

	case "validate":
		cfg, err := styleconfig.ParseFile(stylesPath)
		if err == nil {
			err = styleconfig.Validate(cfg)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Style config error in %s:\n  %v\n", stylesPath, err)
			return 1
		}
		fmt.Fprintf(stdout, "%s is valid\n", stylesPath)
		return 0

	case "write":
		target := stylesPath
		if len(args) > 1 {
			target = args[1]
		}
		if err := styleconfig.WriteFile(target, styleconfig.Default()); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "wrote %s\n", target)
		return 0

	case "files":
		root := "."
		if len(args) > 1 {
			root = args[1]
		}
		cfg, err := loadStyles(stylesPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		files, err := cfg.ContentFiles(os.DirFS(root))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		for _, f := range files {
			fmt.Fprintln(stdout, f)
		}
		return 0

	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printStylesUsage(stderr)
		return 2
	}
}

func printStylesUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tunebox styles print")
	fmt.Fprintln(w, "  tunebox styles validate")
	fmt.Fprintln(w, "  tunebox styles write [path]")
	fmt.Fprintln(w, "  tunebox styles files [root]")
}

// loadStyles parses the style config at path; a missing file yields the
// shipped default.
func loadStyles(path string) (styleconfig.Config, error) {
	cfg, err := styleconfig.ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return styleconfig.Default(), nil
	}
	if err != nil {
		return styleconfig.Config{}, err
	}
	if err := styleconfig.Validate(cfg); err != nil {
		return styleconfig.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
