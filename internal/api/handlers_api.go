// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/tunebox/internal/library"
)

type rootsResponse struct {
	Roots []library.Root `json:"roots"`
}

type itemsResponse struct {
	RootID string         `json:"root_id"`
	Items  []library.Item `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type scanResponse struct {
	RootID       string             `json:"root_id"`
	Status       library.RootStatus `json:"status"`
	TotalScanned int                `json:"total_scanned"`
	ItemsSkipped int                `json:"items_skipped"`
	ErrorCount   int                `json:"error_count"`
	DurationMS   int64              `json:"duration_ms"`
	LastError    string             `json:"last_error,omitempty"`
}

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	roots, err := s.deps.Library.Roots(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if roots == nil {
		roots = []library.Root{}
	}
	writeJSON(w, http.StatusOK, rootsResponse{Roots: roots})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	root, err := s.deps.Library.Root(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

// handleItems pages through a root. limit and offset must be non-negative
// integers; the library clamps them to its page bounds.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "id")
	limit, ok := queryInt(w, r, "limit", library.DefaultPageSize)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}

	limit, offset = library.ClampPage(limit, offset)
	items, total, err := s.deps.Library.Items(r.Context(), rootID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{
		RootID: rootID,
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// handleScan rescans a root synchronously. A scan already in flight is a
// conflict; a failed scan still answers 200 with the failure recorded.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "id")
	result, err := s.deps.Library.TriggerScan(r.Context(), rootID)

	var scanErr *library.ScanError
	switch {
	case errors.Is(err, library.ErrScanRunning):
		w.Header().Set("Retry-After", retryAfterScan)
		writeProblem(w, r, http.StatusConflict, "scan_running", err.Error())
		return
	case errors.As(err, &scanErr) && result != nil:
	case err != nil:
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, scanResponse{
		RootID:       result.RootID,
		Status:       result.FinalStatus,
		TotalScanned: result.TotalScanned,
		ItemsSkipped: result.ItemsSkipped,
		ErrorCount:   result.ErrorCount,
		DurationMS:   result.Finished.Sub(result.Started).Milliseconds(),
		LastError:    result.LastError,
	})
}

func (s *Server) handleTunnels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tunnels": s.deps.Tunnels.Status()})
}

// handleStyles exposes the CSS build configuration record.
func (s *Server) handleStyles(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, s.deps.Styles)
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeProblem(w, r, http.StatusBadRequest, "invalid_query", key+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

