// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package assets bundles the frontend sources with esbuild and maps entry
// points to the script URLs the index page loads.
package assets

import (
	"errors"
	"sync"
)

var (
	// ErrNoEntryPoints is returned when the entry glob matches nothing.
	ErrNoEntryPoints = errors.New("no entry points found")
	// ErrNotBuilt is returned by Scripts before Build or Load succeeded.
	ErrNotBuilt = errors.New("assets not built yet")
	// ErrUnknownEntryPoint is returned for entry points absent from the metafile.
	ErrUnknownEntryPoint = errors.New("entrypoint not found in metadata")
)

// BuildMetadata is the subset of the esbuild metafile we read.
type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

// OutputInfo describes one emitted file.
type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
	Bytes      int64        `json:"bytes"`
}

// ImportInfo is a static import between outputs.
type ImportInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// Pipeline manages the asset build and script lookup.
type Pipeline struct {
	config   Config
	metadata *BuildMetadata
	mu       sync.RWMutex
}

// New creates a new asset pipeline with the given configuration.
func New(config Config) *Pipeline {
	return &Pipeline{config: config}
}
