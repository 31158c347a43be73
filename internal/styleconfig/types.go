// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package styleconfig models the declarative configuration consumed by the
// utility-first CSS build tool that produces the web UI stylesheet
// (tailwind.config.js). The record is built once at startup and never mutated.
package styleconfig

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultFilename is the file name the CSS build tool looks for.
const DefaultFilename = "tailwind.config.js"

// Top-level keys of the exported record.
const (
	KeyContent = "content"
	KeyTheme   = "theme"
	KeyPlugins = "plugins"
	KeyExtend  = "extend"
)

var (
	// ErrUnknownKey is returned when the record carries a key outside content/theme/plugins.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrMissingKey is returned when one of the required keys is absent.
	ErrMissingKey = errors.New("missing config key")
	// ErrSyntax classifies malformed config sources.
	ErrSyntax = errors.New("config syntax error")
	// ErrInvalidUTF8 is returned for strings that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in config string")
)

// Config is the record exported by tailwind.config.js.
type Config struct {
	// Content lists glob patterns selecting the files scanned for class names.
	Content []string `json:"content"`
	Theme   Theme    `json:"theme"`
	Plugins []Plugin `json:"plugins"`
}

// Theme carries design token overrides. Extend is merged additively with the
// defaults, any other key replaces the default token set outright.
type Theme struct {
	Extend    map[string]any
	Overrides map[string]any
}

// Plugin references a plugin module, optionally invoked with options.
type Plugin struct {
	Module  string         `json:"module"`
	Options map[string]any `json:"options,omitempty"`
}

// Default returns the shipped configuration: templates, frontend sources and
// top-level Go files are scanned, nothing is extended, no plugins are loaded.
func Default() Config {
	return Config{
		Content: []string{
			"./templates/**/*.{html,js}",
			"./src/**/*.{js,jsx,ts,tsx}",
			"./*.go",
		},
		Theme: Theme{
			Extend: map[string]any{},
		},
		Plugins: []Plugin{},
	}
}

// MarshalJSON flattens the overrides next to extend.
func (t Theme) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Overrides)+1)
	for k, v := range t.Overrides {
		out[k] = v
	}
	extend := t.Extend
	if extend == nil {
		extend = map[string]any{}
	}
	out[KeyExtend] = extend
	return json.Marshal(out)
}

// UnmarshalJSON requires an extend object and keeps the remaining keys as overrides.
func (t *Theme) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: theme must be an object: %v", ErrSyntax, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: theme must be an object", ErrSyntax)
	}
	ext, ok := raw[KeyExtend]
	if !ok {
		return fmt.Errorf("%w: theme.%s", ErrMissingKey, KeyExtend)
	}
	var extend map[string]any
	if err := json.Unmarshal(ext, &extend); err != nil || extend == nil {
		return fmt.Errorf("%w: theme.extend must be an object", ErrSyntax)
	}
	t.Extend = extend
	t.Overrides = nil
	for k, v := range raw {
		if k == KeyExtend {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("%w: theme.%s: %v", ErrSyntax, k, err)
		}
		if t.Overrides == nil {
			t.Overrides = make(map[string]any)
		}
		t.Overrides[k] = val
	}
	return nil
}

// MarshalJSON encodes a plain module reference as a string. A plugin
// invoked without options keeps an empty options object.
func (p Plugin) MarshalJSON() ([]byte, error) {
	if p.Options == nil {
		return json.Marshal(p.Module)
	}
	return json.Marshal(struct {
		Module  string         `json:"module"`
		Options map[string]any `json:"options"`
	}{p.Module, p.Options})
}

// UnmarshalJSON accepts either "module" or {"module": ..., "options": {...}}.
func (p *Plugin) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*p = Plugin{Module: name}
		return nil
	}
	type plain Plugin
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: plugin must be a module name or object: %v", ErrSyntax, err)
	}
	*p = Plugin(v)
	return nil
}
