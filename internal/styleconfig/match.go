// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package styleconfig

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// normalizePattern strips the "./" prefix the build tool accepts but globbing
// against an fs.FS does not.
func normalizePattern(pattern string) string {
	p := strings.ReplaceAll(strings.TrimSpace(pattern), "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

// Match reports whether relPath (slash separated, relative to the project
// root) is selected by any content pattern.
func (c Config) Match(relPath string) bool {
	name := path.Clean(strings.TrimPrefix(strings.ReplaceAll(relPath, "\\", "/"), "./"))
	for _, pattern := range c.Content {
		if ok, err := doublestar.Match(normalizePattern(pattern), name); err == nil && ok {
			return true
		}
	}
	return false
}

// ContentFiles lists the files in fsys the build tool would scan, sorted and
// without duplicates.
func (c Config) ContentFiles(fsys fs.FS) ([]string, error) {
	seen := make(map[string]struct{})
	for _, pattern := range c.Content {
		matches, err := doublestar.Glob(fsys, normalizePattern(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			seen[m] = struct{}{}
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}
