// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/validate"
	"github.com/ManuGH/tunebox/internal/version"
)

func runConfigCLI(configPath string, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "show":
		return runConfigShow(configPath, args[1:], stdout, stderr)
	case "validate":
		return runConfigValidate(configPath, stdout, stderr)
	case "add-dir":
		if len(args) != 2 {
			printConfigUsage(stderr)
			return 2
		}
		return runConfigAdd(configPath, "directory", args[1], stdout, stderr)
	case "add-domain":
		if len(args) != 2 {
			printConfigUsage(stderr)
			return 2
		}
		return runConfigAdd(configPath, "domain", args[1], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tunebox [-config config.json] config show [--format=json|yaml]")
	fmt.Fprintln(w, "  tunebox [-config config.json] config validate")
	fmt.Fprintln(w, "  tunebox [-config config.json] config add-dir <directory>")
	fmt.Fprintln(w, "  tunebox [-config config.json] config add-domain <domain>")
}

// runConfigShow prints the effective configuration (file plus environment).
func runConfigShow(configPath string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tunebox config show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "json", "output format: json or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	switch strings.ToLower(*format) {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(cfg)
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		err = enc.Encode(cfg)
		if closeErr := enc.Close(); err == nil {
			err = closeErr
		}
	default:
		fmt.Fprintf(stderr, "Error: unknown format %q\n", *format)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runConfigValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s is valid\n", configPath)
	return 0
}

// runConfigAdd appends a directory or tunnel domain, creating the file
// from defaults when it does not exist yet.
func runConfigAdd(configPath, kind, value string, stdout, stderr io.Writer) int {
	if _, _, err := config.LoadOrCreate(configPath, version.Version); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	mgr := config.NewManager(configPath)
	var (
		changed bool
		err     error
	)
	switch kind {
	case "directory":
		if strings.TrimSpace(value) == "" {
			fmt.Fprintln(stderr, "Error: directory must not be empty")
			return 2
		}
		changed, err = mgr.AddDirectory(value)
	case "domain":
		domain := config.NormalizeDomain(value)
		v := validate.New()
		v.Hostname("domain", domain)
		if verr := v.Err(); verr != nil {
			fmt.Fprintf(stderr, "Error: %v\n", verr)
			return 2
		}
		changed, err = mgr.AddTunnelDomain(domain)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if changed {
		fmt.Fprintf(stdout, "added %s %q to %s\n", kind, strings.TrimSpace(value), configPath)
	} else {
		fmt.Fprintf(stdout, "%s %q already present in %s\n", kind, strings.TrimSpace(value), configPath)
	}
	return 0
}
