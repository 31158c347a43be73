// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package styleconfig

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/renameio/v2"
)

const typeAnnotation = "/** @type {import('tailwindcss').Config} */"

// Render writes cfg as a CommonJS tailwind.config.js. Keys are emitted in a
// stable order so repeated renders are byte-identical.
func Render(w io.Writer, cfg Config) error {
	bw := bufio.NewWriter(w)
	r := &renderer{w: bw}

	r.line(0, typeAnnotation)
	r.line(0, "module.exports = {")

	r.indent(1)
	r.raw(KeyContent + ": ")
	content := make([]any, len(cfg.Content))
	for i, c := range cfg.Content {
		content[i] = c
	}
	r.value(1, content)
	r.raw(",\n")

	r.indent(1)
	r.raw(KeyTheme + ": ")
	r.theme(1, cfg.Theme)
	r.raw(",\n")

	r.indent(1)
	r.raw(KeyPlugins + ": ")
	r.plugins(1, cfg.Plugins)
	r.raw(",\n")

	r.line(0, "}")

	if r.err != nil {
		return r.err
	}
	return bw.Flush()
}

// Bytes renders cfg into memory.
func Bytes(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders cfg to path atomically (temp file, fsync, rename).
func WriteFile(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	data, err := Bytes(cfg)
	if err != nil {
		return fmt.Errorf("render style config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("mkdir style config dir: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write style config: %w", err)
	}
	return nil
}

type renderer struct {
	w   *bufio.Writer
	err error
}

func (r *renderer) raw(s string) {
	if r.err != nil {
		return
	}
	_, r.err = r.w.WriteString(s)
}

func (r *renderer) indent(level int) {
	r.raw(strings.Repeat("  ", level))
}

func (r *renderer) line(level int, s string) {
	r.indent(level)
	r.raw(s)
	r.raw("\n")
}

func (r *renderer) theme(level int, t Theme) {
	keys := make([]string, 0, len(t.Overrides))
	for k := range t.Overrides {
		if k != KeyExtend {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	r.raw("{\n")
	for _, k := range keys {
		r.indent(level + 1)
		r.raw(r.key(k) + ": ")
		r.value(level+1, t.Overrides[k])
		r.raw(",\n")
	}
	r.indent(level + 1)
	r.raw(KeyExtend + ": ")
	extend := t.Extend
	if extend == nil {
		extend = map[string]any{}
	}
	r.value(level+1, extend)
	r.raw(",\n")
	r.indent(level)
	r.raw("}")
}

func (r *renderer) plugins(level int, plugins []Plugin) {
	if len(plugins) == 0 {
		r.raw("[]")
		return
	}
	r.raw("[\n")
	for _, p := range plugins {
		r.indent(level + 1)
		r.raw("require(" + r.str(p.Module) + ")")
		if p.Options != nil {
			r.raw("(")
			r.value(level+1, p.Options)
			r.raw(")")
		}
		r.raw(",\n")
	}
	r.indent(level)
	r.raw("]")
}

func (r *renderer) value(level int, v any) {
	switch val := v.(type) {
	case nil:
		r.raw("null")
	case string:
		r.raw(r.str(val))
	case bool:
		r.raw(strconv.FormatBool(val))
	case float64:
		r.raw(strconv.FormatFloat(val, 'g', -1, 64))
	case float32:
		r.raw(strconv.FormatFloat(float64(val), 'g', -1, 32))
	case int:
		r.raw(strconv.Itoa(val))
	case int64:
		r.raw(strconv.FormatInt(val, 10))
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		r.value(level, items)
	case []any:
		if len(val) == 0 {
			r.raw("[]")
			return
		}
		r.raw("[\n")
		for _, item := range val {
			r.indent(level + 1)
			r.value(level+1, item)
			r.raw(",\n")
		}
		r.indent(level)
		r.raw("]")
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		r.value(level, m)
	case map[string]any:
		if len(val) == 0 {
			r.raw("{}")
			return
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		r.raw("{\n")
		for _, k := range keys {
			r.indent(level + 1)
			r.raw(r.key(k) + ": ")
			r.value(level+1, val[k])
			r.raw(",\n")
		}
		r.indent(level)
		r.raw("}")
	default:
		if r.err == nil {
			r.err = fmt.Errorf("unsupported value type %T", v)
		}
	}
}

// str quotes s, failing the render for invalid UTF-8, which could not be
// read back unchanged.
func (r *renderer) str(s string) string {
	if !utf8.ValidString(s) && r.err == nil {
		r.err = fmt.Errorf("%w: %q", ErrInvalidUTF8, s)
	}
	return jsString(s)
}

func (r *renderer) key(k string) string {
	if !utf8.ValidString(k) && r.err == nil {
		r.err = fmt.Errorf("%w: key %q", ErrInvalidUTF8, k)
	}
	return jsKey(k)
}

// jsString encodes s as a double-quoted literal. JSON strings are valid JavaScript strings.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// jsKey leaves identifier-safe keys bare and quotes everything else.
func jsKey(k string) string {
	if k == "" {
		return `""`
	}
	for i, r := range k {
		if i == 0 && !isIdentStart(r) || i > 0 && !isIdentPart(r) {
			return jsString(k)
		}
	}
	return k
}
