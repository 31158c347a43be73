// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package assets

import "path/filepath"

// Config controls where the bundler reads entry points and writes output.
type Config struct {
	// BaseDir is the project directory; other paths resolve against it.
	BaseDir string
	// EntryPointGlob selects entry points (doublestar syntax, braces allowed).
	EntryPointGlob string
	// StaticDir is served under /static/.
	StaticDir string
	// OutputDir receives bundles; it must lie inside StaticDir.
	OutputDir string
	// MetafilePath is where the esbuild metafile is written.
	MetafilePath string
	// URLPrefix is the public prefix for StaticDir.
	URLPrefix string
	Minify    bool
	SourceMap bool
}

// DefaultConfig bundles src/*.{js,jsx,ts,tsx} into <staticDir>/dist.
func DefaultConfig(baseDir, staticDir string) Config {
	if staticDir == "" {
		staticDir = "static"
	}
	return Config{
		BaseDir:        baseDir,
		EntryPointGlob: "src/*.{js,jsx,ts,tsx}",
		StaticDir:      staticDir,
		OutputDir:      filepath.Join(staticDir, "dist"),
		MetafilePath:   filepath.Join(staticDir, "dist", "meta.json"),
		URLPrefix:      "/static/",
		Minify:         true,
		SourceMap:      true,
	}
}

func (c Config) abs(p string) string {
	if filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}
