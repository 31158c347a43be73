// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ManuGH/tunebox/internal/log"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/renameio/v2"
)

// Build runs esbuild with the configured settings, writes the metafile and
// caches its metadata. It returns the emitted files.
func (p *Pipeline) Build() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	logger := log.WithComponent("assets")

	workDir, err := filepath.Abs(p.config.abs("."))
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	pattern := filepath.ToSlash(filepath.Join(workDir, p.config.EntryPointGlob))
	entryPoints, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob entry points: %w", err)
	}
	if len(entryPoints) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEntryPoints, p.config.EntryPointGlob)
	}
	slices.Sort(entryPoints)

	logger.Info().Strs("entrypoints", entryPoints).Msg("building assets")

	result := api.Build(api.BuildOptions{
		AbsWorkingDir:     workDir,
		EntryPoints:       entryPoints,
		Bundle:            true,
		Splitting:         true,
		Write:             true,
		JSX:               api.JSXAutomatic,
		Outdir:            p.config.abs(p.config.OutputDir),
		Format:            api.FormatESModule,
		MinifyWhitespace:  p.config.Minify,
		MinifyIdentifiers: p.config.Minify,
		MinifySyntax:      p.config.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, msg := range result.Errors {
			logger.Error().Str("error", msg.Text).Msg("build error")
			msgs = append(msgs, formatMessage(msg))
		}
		return nil, fmt.Errorf("esbuild failed: %s", strings.Join(msgs, "; "))
	}
	for _, msg := range result.Warnings {
		logger.Warn().Str("warning", msg.Text).Msg("build warning")
	}

	files := make([]string, 0, len(result.OutputFiles))
	for _, file := range result.OutputFiles {
		logger.Debug().Str(log.FieldPath, file.Path).Msg("built file")
		files = append(files, file.Path)
	}

	metaPath := p.config.abs(p.config.MetafilePath)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir metafile dir: %w", err)
	}
	if err := renameio.WriteFile(metaPath, []byte(result.Metafile), 0o644); err != nil {
		return nil, fmt.Errorf("write metafile: %w", err)
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, fmt.Errorf("parse metafile: %w", err)
	}
	p.metadata = &metadata
	return files, nil
}

// Load reads a metafile written by an earlier Build. A missing metafile
// is reported as ErrNotBuilt.
func (p *Pipeline) Load() error {
	data, err := os.ReadFile(p.config.abs(p.config.MetafilePath))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotBuilt
	}
	if err != nil {
		return fmt.Errorf("read metafile: %w", err)
	}
	var metadata BuildMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return fmt.Errorf("parse metafile: %w", err)
	}

	p.mu.Lock()
	p.metadata = &metadata
	p.mu.Unlock()
	return nil
}

// Entries lists the entry points known from the metadata, sorted.
func (p *Pipeline) Entries() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.metadata == nil {
		return nil
	}
	var out []string
	for _, info := range p.metadata.Outputs {
		if info.EntryPoint != "" {
			out = append(out, info.EntryPoint)
		}
	}
	slices.Sort(out)
	return out
}

// Scripts returns the ordered script URLs needed for entryPoint: the entry
// bundle first, then the chunks it imports.
func (p *Pipeline) Scripts(entryPoint string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}
	entryPoint = filepath.ToSlash(entryPoint)

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint != entryPoint {
			continue
		}
		visited := map[string]bool{outputPath: true}
		scripts := []string{p.url(outputPath)}
		p.addDependencies(info, &scripts, visited)
		return scripts, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEntryPoint, entryPoint)
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if visited[imp.Path] || imp.Kind == "dynamic-import" {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, p.url(imp.Path))
		if chunk, ok := p.metadata.Outputs[imp.Path]; ok {
			p.addDependencies(chunk, scripts, visited)
		}
	}
}

// url maps a metafile output path (relative to BaseDir) under URLPrefix.
func (p *Pipeline) url(outputPath string) string {
	full := p.config.abs(filepath.FromSlash(outputPath))
	rel, err := filepath.Rel(p.config.abs(p.config.StaticDir), full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "/" + strings.TrimPrefix(filepath.ToSlash(outputPath), "/")
	}
	return strings.TrimSuffix(p.config.URLPrefix, "/") + "/" + filepath.ToSlash(rel)
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
