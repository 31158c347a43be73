// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/tunebox/internal/fsutil"
	"github.com/ManuGH/tunebox/internal/log"
	"github.com/ManuGH/tunebox/internal/metrics"
)

// Scanner walks a music directory and indexes its audio files.
type Scanner struct {
	store *Store
}

// NewScanner creates a new filesystem scanner.
func NewScanner(store *Store) *Scanner {
	return &Scanner{store: store}
}

// ScanRoot performs a full scan of a library root and replaces its indexed
// items. Per-entry problems degrade the result; an unreadable root or a
// cancelled context fails it and leaves the previous index untouched.
func (sc *Scanner) ScanRoot(ctx context.Context, cfg RootConfig) (*ScanResult, error) {
	ctx = log.ContextWithRootID(ctx, cfg.ID)
	result := &ScanResult{
		RootID:      cfg.ID,
		Started:     time.Now(),
		FinalStatus: RootStatusOK,
	}
	fail := func(err error) (*ScanResult, error) {
		result.FinalStatus = RootStatusFailed
		result.LastError = err.Error()
		result.Finished = time.Now()
		metrics.RecordScan(cfg.ID, result.FinalStatus.String(), 0, result.Finished.Sub(result.Started))
		return result, err
	}

	root, err := fsutil.ResolveRoot(cfg.Path)
	if err != nil {
		return fail(fmt.Errorf("root path unresolvable: %w", err))
	}
	if info, err := os.Stat(root); err != nil {
		return fail(fmt.Errorf("stat root: %w", err))
	} else if !info.IsDir() {
		return fail(fmt.Errorf("root is not a directory: %s", cfg.Path))
	}

	scanTime := time.Now()
	items := make([]Item, 0, 64)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			result.ErrorCount++
			return nil
		}

		if walkErr != nil {
			if path == root {
				return walkErr
			}
			result.ErrorCount++
			result.LastError = walkErr.Error()
			logScanError(ctx, "walk", walkErr, rel)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			result.ItemsSkipped++
			return nil
		}

		if d.IsDir() {
			if path != root && cfg.MaxDepth > 0 && strings.Count(rel, string(os.PathSeparator)) >= cfg.MaxDepth-1 {
				return fs.SkipDir
			}
			return nil
		}

		if !IsAudioFile(d.Name()) {
			result.ItemsSkipped++
			return nil
		}

		target := path
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := fsutil.ConfineResolved(root, path)
			switch {
			case errors.Is(err, fsutil.ErrOutsideRoot):
				result.ErrorCount++
				result.LastError = "symlink escapes root"
				logScanError(ctx, "confinement", err, rel)
				return nil
			case err != nil:
				result.ItemsSkipped++
				logScanError(ctx, "symlink", err, rel)
				return nil
			}
			target = resolved
		} else if !d.Type().IsRegular() {
			result.ItemsSkipped++
			return nil
		}

		info, err := fsutil.IsRegularFile(target)
		if err != nil {
			if errors.Is(err, fsutil.ErrNotRegular) {
				result.ItemsSkipped++
				return nil
			}
			result.ErrorCount++
			result.LastError = err.Error()
			logScanError(ctx, "stat", err, rel)
			return nil
		}

		items = append(items, Item{
			RootID:    cfg.ID,
			RelPath:   filepath.ToSlash(rel),
			Name:      d.Name(),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
			ScanTime:  scanTime,
		})
		return nil
	})

	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return fail(fmt.Errorf("scan cancelled: %w", walkErr))
		}
		return fail(fmt.Errorf("walk root: %w", walkErr))
	}

	if err := sc.store.ReplaceItems(ctx, cfg.ID, items); err != nil {
		return fail(fmt.Errorf("store items: %w", err))
	}

	result.TotalScanned = len(items)
	if result.ErrorCount > 0 {
		result.FinalStatus = RootStatusDegraded
	}
	result.Finished = time.Now()
	metrics.RecordScan(cfg.ID, result.FinalStatus.String(), result.TotalScanned, result.Finished.Sub(result.Started))
	return result, nil
}

// logScanError logs scan errors with hashed relative paths. The root ID
// comes from ctx.
func logScanError(ctx context.Context, stage string, err error, relPath string) {
	hash := sha256.Sum256([]byte(relPath))

	logger := log.WithComponentFromContext(ctx, "library")
	logger.Warn().
		Str(log.FieldEvent, "library.scan_error").
		Str("stage", stage).
		Str("rel_path_hash", fmt.Sprintf("%x", hash[:5])).
		Err(err).
		Msg("library scan error")
}
