// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package styleconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// pluginRef is the parsed form of require("module") or require("module")({...}).
type pluginRef struct {
	module  string
	options map[string]any
}

type parser struct {
	lex *lexer
	tok token
}

// Parse reads a tailwind.config.js source. Supported forms are
// `module.exports = {...}` and `export default {...}` over the literal subset
// of JavaScript: comments, quoted strings, unquoted keys, trailing commas and
// require() plugin references.
func Parse(src []byte) (Config, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return Config{}, err
	}
	if err := p.exportPreamble(); err != nil {
		return Config{}, err
	}
	if p.tok.kind != tokPunct || p.tok.text != "{" {
		return Config{}, p.errorf("exported value must be an object literal")
	}
	root, err := p.object(0)
	if err != nil {
		return Config{}, err
	}
	if p.isPunct(";") {
		if err := p.advance(); err != nil {
			return Config{}, err
		}
	}
	if p.tok.kind != tokEOF {
		return Config{}, p.errorf("unexpected %s %q after exported object", p.tok.kind, p.tok.text)
	}
	return fromObject(root)
}

// ParseFile reads and parses the config at path.
func ParseFile(path string) (Config, error) {
	// #nosec G304 -- path is supplied by the operator
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read style config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ParseJSON decodes the record from strict JSON with exactly the keys
// content, theme and plugins.
func ParseJSON(src []byte) (Config, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(src))
	if err := dec.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return Config{}, fmt.Errorf("%w: trailing content after object", ErrSyntax)
	}
	if raw == nil {
		return Config{}, fmt.Errorf("%w: config must be an object", ErrSyntax)
	}
	if err := checkKeys(keysOf(raw)); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := json.Unmarshal(raw[KeyContent], &cfg.Content); err != nil || cfg.Content == nil {
		return Config{}, fmt.Errorf("%w: content must be an array of strings", ErrSyntax)
	}
	if err := json.Unmarshal(raw[KeyTheme], &cfg.Theme); err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(raw[KeyPlugins], &cfg.Plugins); err != nil || cfg.Plugins == nil {
		return Config{}, fmt.Errorf("%w: plugins must be an array", ErrSyntax)
	}
	return cfg, nil
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// checkKeys enforces that the record has exactly content, theme and plugins.
func checkKeys(keys []string) error {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		switch k {
		case KeyContent, KeyTheme, KeyPlugins:
			present[k] = true
		default:
			return fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
	}
	for _, k := range []string{KeyContent, KeyTheme, KeyPlugins} {
		if !present[k] {
			return fmt.Errorf("%w: %q", ErrMissingKey, k)
		}
	}
	return nil
}

func fromObject(root map[string]any) (Config, error) {
	if err := checkKeys(keysOf(root)); err != nil {
		return Config{}, err
	}

	var cfg Config

	content, ok := root[KeyContent].([]any)
	if !ok {
		return Config{}, fmt.Errorf("%w: content must be an array", ErrSyntax)
	}
	cfg.Content = make([]string, 0, len(content))
	for i, v := range content {
		s, ok := v.(string)
		if !ok {
			return Config{}, fmt.Errorf("%w: content[%d] must be a string", ErrSyntax, i)
		}
		cfg.Content = append(cfg.Content, s)
	}

	theme, ok := root[KeyTheme].(map[string]any)
	if !ok {
		return Config{}, fmt.Errorf("%w: theme must be an object", ErrSyntax)
	}
	rawExtend, ok := theme[KeyExtend]
	if !ok {
		return Config{}, fmt.Errorf("%w: theme.%s", ErrMissingKey, KeyExtend)
	}
	extend, ok := rawExtend.(map[string]any)
	if !ok {
		return Config{}, fmt.Errorf("%w: theme.extend must be an object", ErrSyntax)
	}
	cfg.Theme.Extend = extend
	for k, v := range theme {
		if k == KeyExtend {
			continue
		}
		if cfg.Theme.Overrides == nil {
			cfg.Theme.Overrides = make(map[string]any)
		}
		cfg.Theme.Overrides[k] = v
	}

	plugins, ok := root[KeyPlugins].([]any)
	if !ok {
		return Config{}, fmt.Errorf("%w: plugins must be an array", ErrSyntax)
	}
	cfg.Plugins = make([]Plugin, 0, len(plugins))
	for i, v := range plugins {
		switch ref := v.(type) {
		case pluginRef:
			cfg.Plugins = append(cfg.Plugins, Plugin{Module: ref.module, Options: ref.options})
		case string:
			cfg.Plugins = append(cfg.Plugins, Plugin{Module: ref})
		default:
			return Config{}, fmt.Errorf("%w: plugins[%d] must be a require() reference", ErrSyntax, i)
		}
	}
	return cfg, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return p.lex.errorf(p.tok.line, p.tok.col, format, args...)
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf("expected %q, found %s %q", s, p.tok.kind, p.tok.text)
	}
	return p.advance()
}

func (p *parser) expectIdent(name string) error {
	if p.tok.kind != tokIdent || p.tok.text != name {
		return p.errorf("expected %q, found %s %q", name, p.tok.kind, p.tok.text)
	}
	return p.advance()
}

// exportPreamble consumes `module.exports =` or `export default`.
func (p *parser) exportPreamble() error {
	if p.tok.kind != tokIdent {
		return p.errorf("expected module.exports or export default")
	}
	switch p.tok.text {
	case "module":
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expectPunct("."); err != nil {
			return err
		}
		if err := p.expectIdent("exports"); err != nil {
			return err
		}
		return p.expectPunct("=")
	case "export":
		if err := p.advance(); err != nil {
			return err
		}
		return p.expectIdent("default")
	default:
		return p.errorf("expected module.exports or export default, found %q", p.tok.text)
	}
}

const maxDepth = 64

func (p *parser) value(depth int) (any, error) {
	if depth > maxDepth {
		return nil, p.errorf("nesting deeper than %d", maxDepth)
	}
	switch p.tok.kind {
	case tokPunct:
		switch p.tok.text {
		case "{":
			return p.object(depth + 1)
		case "[":
			return p.array(depth + 1)
		}
	case tokString:
		s := p.tok.text
		return s, p.advance()
	case tokNumber:
		f, err := strconv.ParseFloat(strings.ReplaceAll(p.tok.text, "_", ""), 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", p.tok.text)
		}
		return f, p.advance()
	case tokIdent:
		switch p.tok.text {
		case "true":
			return true, p.advance()
		case "false":
			return false, p.advance()
		case "null", "undefined":
			return nil, p.advance()
		case "require":
			return nil, p.errorf("require() is only supported in the plugins list")
		}
		return nil, p.errorf("unsupported identifier %q", p.tok.text)
	}
	return nil, p.errorf("unexpected %s %q", p.tok.kind, p.tok.text)
}

func (p *parser) require(depth int) (any, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if p.tok.kind != tokString {
		return nil, p.errorf("require() expects a module name string")
	}
	ref := pluginRef{module: p.tok.text}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if !p.isPunct("(") {
		return ref, nil
	}
	// require("x")({...}) invokes the plugin factory with options
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.isPunct(")") {
		ref.options = map[string]any{}
		return ref, p.advance()
	}
	if !p.isPunct("{") {
		return nil, p.errorf("plugin options must be an object literal")
	}
	opts, err := p.object(depth + 1)
	if err != nil {
		return nil, err
	}
	ref.options = opts
	return ref, p.expectPunct(")")
}

func (p *parser) object(depth int) (map[string]any, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	out := map[string]any{}
	for !p.isPunct("}") {
		var key string
		switch p.tok.kind {
		case tokIdent, tokString, tokNumber:
			key = p.tok.text
		default:
			return nil, p.errorf("expected object key, found %s %q", p.tok.kind, p.tok.text)
		}
		if _, dup := out[key]; dup {
			return nil, p.errorf("duplicate key %q", key)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		var v any
		var err error
		if depth == 0 && key == KeyPlugins && p.isPunct("[") {
			v, err = p.plugins(depth + 1)
		} else {
			v, err = p.value(depth)
		}
		if err != nil {
			return nil, err
		}
		out[key] = v
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.isPunct("}") {
			return nil, p.errorf("expected ',' or '}', found %s %q", p.tok.kind, p.tok.text)
		}
	}
	return out, p.advance()
}

// plugins parses the top-level plugins array, the only place require() is accepted.
func (p *parser) plugins(depth int) ([]any, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	out := []any{}
	for !p.isPunct("]") {
		var v any
		var err error
		if p.tok.kind == tokIdent && p.tok.text == "require" {
			v, err = p.require(depth)
		} else {
			v, err = p.value(depth)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.isPunct("]") {
			return nil, p.errorf("expected ',' or ']', found %s %q", p.tok.kind, p.tok.text)
		}
	}
	return out, p.advance()
}

func (p *parser) array(depth int) ([]any, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	out := []any{}
	for !p.isPunct("]") {
		v, err := p.value(depth)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.isPunct("]") {
			return nil, p.errorf("expected ',' or ']', found %s %q", p.tok.kind, p.tok.text)
		}
	}
	return out, p.advance()
}
