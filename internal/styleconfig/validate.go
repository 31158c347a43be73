// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package styleconfig

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/tunebox/internal/validate"
)

// Validate checks the structural properties of cfg: content is a non-empty
// list of valid glob patterns, every plugin names a module, and all strings
// are valid UTF-8 so the rendered file parses back to cfg.
func Validate(cfg Config) error {
	v := validate.New()

	if len(cfg.Content) == 0 {
		v.AddError(KeyContent, "must list at least one glob pattern", cfg.Content)
	}
	for i, pattern := range cfg.Content {
		v.Glob(fmt.Sprintf("%s[%d]", KeyContent, i), normalizePattern(pattern))
	}
	v.Unique(KeyContent, cfg.Content)

	for k := range cfg.Theme.Overrides {
		if strings.TrimSpace(k) == "" {
			v.AddError(KeyTheme, "theme keys cannot be empty", k)
		}
	}
	for k := range cfg.Theme.Extend {
		if strings.TrimSpace(k) == "" {
			v.AddError(KeyTheme+"."+KeyExtend, "theme keys cannot be empty", k)
		}
	}

	for i, p := range cfg.Plugins {
		field := fmt.Sprintf("%s[%d]", KeyPlugins, i)
		v.NotEmpty(field, p.Module)
		checkUTF8(v, field, p.Module)
		checkUTF8(v, field+".options", p.Options)
	}

	checkUTF8(v, KeyContent, cfg.Content)
	checkUTF8(v, KeyTheme, cfg.Theme.Overrides)
	checkUTF8(v, KeyTheme+"."+KeyExtend, cfg.Theme.Extend)

	return v.Err()
}

// checkUTF8 reports every string in val, keys included, that is not valid UTF-8.
func checkUTF8(v *validate.Validator, field string, val any) {
	switch x := val.(type) {
	case string:
		if !utf8.ValidString(x) {
			v.AddError(field, "must be valid UTF-8", x)
		}
	case []string:
		for i, s := range x {
			checkUTF8(v, fmt.Sprintf("%s[%d]", field, i), s)
		}
	case []any:
		for i, item := range x {
			checkUTF8(v, fmt.Sprintf("%s[%d]", field, i), item)
		}
	case map[string]any:
		for k, item := range x {
			checkUTF8(v, field, k)
			checkUTF8(v, field+"."+k, item)
		}
	case map[string]string:
		for k, item := range x {
			checkUTF8(v, field, k)
			checkUTF8(v, field+"."+k, item)
		}
	}
}
