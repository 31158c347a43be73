// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package library indexes audio files under the configured music
// directories and keeps the index in SQLite.
package library

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// RootStatus represents the runtime state of a library root.
type RootStatus string

const (
	RootStatusNever    RootStatus = "never"    // Not yet scanned
	RootStatusRunning  RootStatus = "running"  // Scan in progress
	RootStatusOK       RootStatus = "ok"       // Last scan successful
	RootStatusDegraded RootStatus = "degraded" // Last scan had partial errors
	RootStatusFailed   RootStatus = "failed"   // Last scan failed completely
)

// String returns the string representation of RootStatus.
func (r RootStatus) String() string {
	return string(r)
}

// AudioExtensions are the file extensions served as music.
var AudioExtensions = []string{".mp3", ".wav", ".ogg", ".flac", ".aac"}

// IsAudioFile reports whether name carries one of AudioExtensions, ignoring case.
func IsAudioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(AudioExtensions, ext)
}

var (
	// ErrRootNotFound signals that a requested library root does not exist.
	ErrRootNotFound = errors.New("root not found")
	// ErrScanRunning is returned when a scan is already in progress.
	ErrScanRunning = errors.New("scan already running")
)

// RootConfig is one configured music directory.
type RootConfig struct {
	ID       string
	Path     string
	MaxDepth int // 0 means unlimited
}

// Root represents a library root with runtime status.
type Root struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Path           string     `json:"path"`
	LastScanTime   *time.Time `json:"last_scan_time,omitempty"`
	LastScanStatus RootStatus `json:"last_scan_status"`
	LastError      string     `json:"last_error,omitempty"`
	TotalItems     int        `json:"total_items"`
}

// Item represents a single audio file in the library.
type Item struct {
	RootID    string    `json:"root_id"`
	RelPath   string    `json:"rel_path"` // slash separated, relative to root
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
	ScanTime  time.Time `json:"scan_time"`
}

// ScanResult represents the outcome of a library root scan.
type ScanResult struct {
	RootID       string
	Started      time.Time
	Finished     time.Time
	TotalScanned int // Audio files indexed
	ItemsSkipped int // Non-audio files, unresolvable links
	ErrorCount   int // Walk, stat and confinement errors
	FinalStatus  RootStatus
	LastError    string
}

// Error returns a human-readable error summary if the scan had issues.
func (s *ScanResult) Error() string {
	if s.ErrorCount == 0 && s.FinalStatus == RootStatusOK {
		return ""
	}
	if s.LastError != "" {
		return fmt.Sprintf("scan finished with %d errors, status=%s: %s", s.ErrorCount, s.FinalStatus, s.LastError)
	}
	return fmt.Sprintf("scan finished with %d errors, status=%s", s.ErrorCount, s.FinalStatus)
}

// RootID derives a stable identifier for dir: a slug of its base name plus
// the first 8 hex digits of the SHA-256 of the cleaned path.
func RootID(dir string) string {
	clean := filepath.Clean(dir)
	sum := sha256.Sum256([]byte(clean))
	return slug(filepath.Base(clean)) + "-" + hex.EncodeToString(sum[:4])
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > 32 {
		out = strings.TrimSuffix(out[:32], "-")
	}
	if out == "" {
		return "root"
	}
	return out
}
