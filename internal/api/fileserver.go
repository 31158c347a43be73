// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/tunebox/internal/fsutil"
	"github.com/ManuGH/tunebox/internal/library"
	"github.com/ManuGH/tunebox/internal/log"
	"github.com/ManuGH/tunebox/internal/metrics"
)

// audioContentTypes pins the MIME type for every servable extension so
// responses never depend on the host's mime tables.
var audioContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
}

// handleFile serves one audio file from a library root. Only GET and HEAD
// are allowed; traversal, dotfiles, directories, non-audio files and
// symlinks leaving the root are refused.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "files")
	rootID := chi.URLParam(r, "root")

	deny := func(code int, reason, msg string) {
		logger.Warn().
			Str(log.FieldEvent, "file_req.denied").
			Str(log.FieldRootID, rootID).
			Str(log.FieldPath, r.URL.Path).
			Str("reason", reason).
			Msg(msg)
		metrics.IncFileDenied(reason)
		http.Error(w, http.StatusText(code), code)
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		deny(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/files/"+rootID)
	if isPathTraversal(rel) {
		deny(http.StatusForbidden, "path_escape", "detected traversal sequence")
		return
	}
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || strings.HasSuffix(rel, "/") {
		deny(http.StatusForbidden, "directory_listing", "directory listing forbidden")
		return
	}
	if hasHiddenSegment(rel) {
		deny(http.StatusForbidden, "hidden", "hidden file requested")
		return
	}
	if !library.IsAudioFile(rel) {
		deny(http.StatusForbidden, "not_audio", "file type not served")
		return
	}

	rootPath, ok := s.deps.Library.RootPath(rootID)
	if !ok {
		deny(http.StatusNotFound, "unknown_root", "unknown library root")
		return
	}

	fullPath, err := fsutil.ConfineRelPath(rootPath, rel)
	switch {
	case errors.Is(err, fsutil.ErrOutsideRoot):
		deny(http.StatusForbidden, "path_escape", "path escapes library root")
		return
	case errors.Is(err, fs.ErrNotExist):
		deny(http.StatusNotFound, "not_found", "file not found")
		return
	case err != nil:
		logger.Error().Err(err).Str(log.FieldEvent, "file_req.internal_error").Msg("could not resolve path")
		metrics.IncFileDenied("internal_error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// #nosec G304 -- fullPath is confined to the library root above
	f, err := os.Open(fullPath)
	if err != nil {
		deny(http.StatusNotFound, "not_found", "file vanished before open")
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, fullPath).Msg("failed to close file")
		}
	}()

	info, err := f.Stat()
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "file_req.internal_error").Msg("could not stat opened file")
		metrics.IncFileDenied("internal_error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !info.Mode().IsRegular() {
		deny(http.StatusForbidden, "directory_listing", "resolved path is not a regular file")
		return
	}

	// Weak validator from modtime and size.
	etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		metrics.IncFileCacheHit()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	ext := strings.ToLower(path.Ext(rel))
	if ct, ok := audioContentTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	} else if ct := mime.TypeByExtension(ext); ct != "" {
		w.Header().Set("Content-Type", ct)
	}

	logger.Debug().
		Str(log.FieldEvent, "file_req.allowed").
		Str(log.FieldRootID, rootID).
		Str(log.FieldPath, rel).
		Msg("serving file")
	metrics.IncFileAllowed()
	metrics.IncFileCacheMiss()
	// ServeContent handles Range, HEAD and Last-Modified.
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// etagMatches reports whether an If-None-Match header lists etag.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}

func hasHiddenSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// isPathTraversal decodes p up to three times, normalizes it and looks for
// parent segments, backslashes, NUL bytes and overlong dot encodings at
// every decoding stage.
func isPathTraversal(p string) bool {
	stages := []string{p}
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		} else if d2, err2 := url.QueryUnescape(decoded); err2 == nil {
			decoded = d2
		}
		if decoded == prev {
			break
		}
		stages = append(stages, decoded)
	}

	for _, stage := range stages {
		lower := strings.ToLower(stage)
		for _, pat := range []string{"%00", "%c0%ae", "%e0%80%ae", "\\"} {
			if strings.Contains(lower, pat) {
				return true
			}
		}
		if strings.IndexByte(stage, 0x00) >= 0 {
			return true
		}
	}

	normalized := norm.NFKC.String(decoded)
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
