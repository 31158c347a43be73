// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/tunebox/internal/log"
	"github.com/ManuGH/tunebox/internal/metrics"
	"github.com/ManuGH/tunebox/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPageSize applies when Items is called with limit <= 0.
	DefaultPageSize = 100
	// MaxPageSize caps a single Items page.
	MaxPageSize = 1000
	// defaultScanConcurrency bounds ScanAll.
	defaultScanConcurrency = 4
)

// Options tunes a Service.
type Options struct {
	MaxDepth        int // per-root walk depth, 0 = unlimited
	ScanConcurrency int // roots scanned in parallel by ScanAll
}

// Service provides business logic for library operations.
type Service struct {
	store   *Store
	scanner *Scanner
	opts    Options
	logger  zerolog.Logger

	mu      sync.RWMutex
	order   []string
	configs map[string]RootConfig

	// rootID -> struct{} while a scan holds the root
	active sync.Map
}

// NewService creates a library service on top of store.
func NewService(store *Store, opts Options) *Service {
	if opts.ScanConcurrency <= 0 {
		opts.ScanConcurrency = defaultScanConcurrency
	}
	svc := &Service{
		store:   store,
		scanner: NewScanner(store),
		opts:    opts,
		logger:  log.WithComponent("library"),
		configs: make(map[string]RootConfig),
	}
	if err := store.ResetRunning(context.Background()); err != nil {
		svc.logger.Warn().Err(err).Msg("failed to reset interrupted scans")
	}
	return svc
}

// Sync makes the configured roots match dirs: new directories become roots
// in "never" state and roots no longer listed are dropped with their items.
func (s *Service) Sync(ctx context.Context, dirs []string) error {
	order := make([]string, 0, len(dirs))
	configs := make(map[string]RootConfig, len(dirs))
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		id := RootID(dir)
		if _, dup := configs[id]; dup {
			continue
		}
		if err := s.store.UpsertRoot(ctx, id, dir); err != nil {
			return fmt.Errorf("upsert root %s: %w", id, err)
		}
		order = append(order, id)
		configs[id] = RootConfig{ID: id, Path: dir, MaxDepth: s.opts.MaxDepth}
	}

	stale, err := s.store.DeleteRootsExcept(ctx, order)
	if err != nil {
		return fmt.Errorf("prune roots: %w", err)
	}
	for _, id := range stale {
		metrics.ForgetRoot(id)
		s.logger.Info().Str(log.FieldRootID, id).Msg("library root removed")
	}

	s.mu.Lock()
	s.order = order
	s.configs = configs
	s.mu.Unlock()
	return nil
}

// Roots returns the configured roots in configuration order. It never
// blocks on a running scan.
func (s *Service) Roots(ctx context.Context) ([]Root, error) {
	stored, err := s.store.GetRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("get roots: %w", err)
	}
	byID := make(map[string]Root, len(stored))
	for _, r := range stored {
		byID[r.ID] = r
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	roots := make([]Root, 0, len(s.order))
	for _, id := range s.order {
		if r, ok := byID[id]; ok {
			roots = append(roots, r)
		}
	}
	return roots, nil
}

// Root returns one configured root.
func (s *Service) Root(ctx context.Context, rootID string) (*Root, error) {
	if _, ok := s.config(rootID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, rootID)
	}
	return s.store.GetRoot(ctx, rootID)
}

// RootPath returns the directory behind rootID.
func (s *Service) RootPath(rootID string) (string, bool) {
	cfg, ok := s.config(rootID)
	return cfg.Path, ok
}

// Items returns a page of items for a root. A root that was never scanned
// is scanned first; a root with a scan in flight yields ErrScanRunning.
func (s *Service) Items(ctx context.Context, rootID string, limit, offset int) ([]Item, int, error) {
	root, err := s.Root(ctx, rootID)
	if err != nil {
		return nil, 0, err
	}
	if s.scanning(rootID) {
		return nil, 0, ErrScanRunning
	}
	if root.LastScanStatus == RootStatusNever {
		if _, err := s.TriggerScan(ctx, rootID); err != nil && !isScanFailure(err) {
			return nil, 0, err
		}
	}

	limit, offset = ClampPage(limit, offset)
	items, total, err := s.store.GetItems(ctx, rootID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("get items: %w", err)
	}
	return items, total, nil
}

// TriggerScan scans one root now. It returns ErrScanRunning if a scan of
// that root is already in progress.
func (s *Service) TriggerScan(ctx context.Context, rootID string) (*ScanResult, error) {
	cfg, ok := s.config(rootID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, rootID)
	}

	if _, busy := s.active.LoadOrStore(rootID, struct{}{}); busy {
		return nil, ErrScanRunning
	}
	defer s.active.Delete(rootID)

	ctx, span := telemetry.Tracer("tunebox.library").Start(ctx, "library.scan",
		trace.WithAttributes(telemetry.RootAttributes(rootID, cfg.Path)...))
	defer span.End()

	if err := s.store.MarkRunning(ctx, rootID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("mark scan running: %w", err)
	}

	result, scanErr := s.scanner.ScanRoot(ctx, cfg)
	span.SetAttributes(telemetry.ScanAttributes(result.FinalStatus.String(), result.TotalScanned, result.ErrorCount)...)
	if scanErr != nil {
		span.RecordError(scanErr)
		span.SetStatus(codes.Error, "scan failed")
		span.SetAttributes(telemetry.ErrorAttributes("scan_failed")...)
	}

	// Record the outcome even when ctx was cancelled mid-scan.
	statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.UpdateRootScanStatus(statusCtx, rootID, result.FinalStatus, result.Finished, result.TotalScanned, result.LastError); err != nil {
		return result, fmt.Errorf("update scan status: %w", err)
	}

	event := s.logger.Info()
	if scanErr != nil {
		event = s.logger.Error().Err(scanErr)
	}
	event.
		Str(log.FieldEvent, "library.scan_complete").
		Str(log.FieldRootID, rootID).
		Str("status", result.FinalStatus.String()).
		Int("indexed", result.TotalScanned).
		Int("skipped", result.ItemsSkipped).
		Int("errors", result.ErrorCount).
		Dur("duration", result.Finished.Sub(result.Started)).
		Msg("library scan complete")

	if scanErr != nil {
		return result, &ScanError{RootID: rootID, Err: scanErr}
	}
	return result, nil
}

// ScanAll scans every configured root with bounded concurrency. Roots
// already being scanned are skipped. Failures of single roots are recorded
// in their status and joined into the returned error.
func (s *Service) ScanAll(ctx context.Context) error {
	s.mu.RLock()
	ids := append([]string(nil), s.order...)
	s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ScanConcurrency)

	var (
		errMu sync.Mutex
		errs  []error
	)
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.TriggerScan(gctx, id)
			switch {
			case err == nil, errors.Is(err, ErrScanRunning):
				return nil
			case isScanFailure(err):
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
				return nil
			default:
				return err
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (s *Service) config(rootID string) (RootConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[rootID]
	return cfg, ok
}

func (s *Service) scanning(rootID string) bool {
	_, busy := s.active.Load(rootID)
	return busy
}

// ScanError reports a scan that ran but ended in the failed state. The
// root status already reflects it.
type ScanError struct {
	RootID string
	Err    error
}

func (e *ScanError) Error() string { return fmt.Sprintf("scan %s: %v", e.RootID, e.Err) }
func (e *ScanError) Unwrap() error { return e.Err }

func isScanFailure(err error) bool {
	var se *ScanError
	return errors.As(err, &se)
}

// ClampPage applies the page defaults and bounds used by Items.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
