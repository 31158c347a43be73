// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil confines file access to configured music roots.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideRoot is returned when a path, after resolving symlinks, leaves its root.
	ErrOutsideRoot = errors.New("path escapes root")
	// ErrNotRegular is returned for directories, devices and other non-regular files.
	ErrNotRegular = errors.New("not a regular file")
)

// ResolveRoot returns the absolute, symlink-free form of root.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	return filepath.Clean(resolved), nil
}

// ConfineRelPath joins relTarget onto root and returns the resolved path,
// failing if it is absolute, climbs out with "..", contains a backslash or
// resolves through a symlink to somewhere outside root.
func ConfineRelPath(root, relTarget string) (string, error) {
	if strings.Contains(relTarget, "\\") {
		return "", fmt.Errorf("path contains backslash: %s", relTarget)
	}
	cleanRel := filepath.Clean(filepath.FromSlash(relTarget))
	if filepath.IsAbs(cleanRel) {
		return "", fmt.Errorf("target path must be relative: %s", relTarget)
	}
	// segment based so "..foo" stays a valid name
	if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, relTarget)
	}

	realRoot, err := ResolveRoot(root)
	if err != nil {
		return "", err
	}
	return ConfineResolved(realRoot, filepath.Join(realRoot, cleanRel))
}

// ConfineResolved resolves full and checks it against an already resolved root.
// full must exist.
func ConfineResolved(realRoot, full string) (string, error) {
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if !Within(realRoot, resolved) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, resolved)
	}
	return resolved, nil
}

// Within reports whether path equals root or lies underneath it.
// Both must be clean absolute paths.
func Within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsRegularFile checks that path exists and is a regular file.
func IsRegularFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	return info, nil
}
