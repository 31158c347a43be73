// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/library"
	"github.com/ManuGH/tunebox/internal/log"
	"github.com/ManuGH/tunebox/internal/tunnel"
	"github.com/ManuGH/tunebox/internal/validate"
)

type fileView struct {
	Name string
	Href string
}

type directoryView struct {
	ID        string
	Path      string
	Files     []fileView
	Total     int
	Truncated bool
	Error     string
}

type tunnelView struct {
	Domain string
	State  string
}

type indexData struct {
	Directories []directoryView
	Tunnels     []tunnelView
	Scripts     []string
	Version     string
}

// fileHref builds /files/<root>/<rel> with every segment path-escaped.
func fileHref(rootID, rel string) string {
	segs := strings.Split(rel, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return "/files/" + url.PathEscape(rootID) + "/" + strings.Join(segs, "/")
}

// handleIndex renders every root with its files. A root that cannot be
// listed shows an inline error; the page itself still renders.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "api")
	cfg := s.deps.Config.Get()

	roots, err := s.deps.Library.Roots(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list library roots")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := indexData{
		Directories: make([]directoryView, 0, len(roots)),
		Tunnels:     s.tunnelViews(cfg),
		Scripts:     s.scripts(),
		Version:     s.deps.Version,
	}
	for _, root := range roots {
		data.Directories = append(data.Directories, s.directoryView(r, root))
	}

	var buf bytes.Buffer
	if err := s.index.ExecuteTemplate(&buf, indexTemplate, data); err != nil {
		logger.Error().Err(err).Msg("failed to render index")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) directoryView(r *http.Request, root library.Root) directoryView {
	view := directoryView{ID: root.ID, Path: root.Path}

	items, total, err := s.deps.Library.Items(r.Context(), root.ID, library.MaxPageSize, 0)
	switch {
	case errors.Is(err, library.ErrScanRunning):
		view.Error = "scan in progress, reload shortly"
		return view
	case err != nil:
		view.Error = err.Error()
		return view
	}

	// Items may have scanned the root just now.
	if fresh, err := s.deps.Library.Root(r.Context(), root.ID); err == nil {
		root = *fresh
	}
	if root.LastScanStatus == library.RootStatusFailed {
		view.Error = root.LastError
		return view
	}

	view.Total = total
	view.Truncated = total > len(items)
	view.Files = make([]fileView, 0, len(items))
	for _, it := range items {
		view.Files = append(view.Files, fileView{Name: it.Name, Href: fileHref(root.ID, it.RelPath)})
	}
	return view
}

func (s *Server) tunnelViews(cfg config.AppConfig) []tunnelView {
	states := make(map[string]tunnel.State)
	for _, st := range s.deps.Tunnels.Status() {
		states[st.Domain] = st.State
	}
	views := make([]tunnelView, 0, len(cfg.TunnelDomains))
	for _, d := range cfg.TunnelDomains {
		state := string(states[d])
		if state == "" {
			state = "not started"
		}
		views = append(views, tunnelView{Domain: d, State: state})
	}
	return views
}

// scripts collects the bundle URLs of every entry point, deduplicated in
// entry order.
func (s *Server) scripts() []string {
	if s.deps.Assets == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, entry := range s.deps.Assets.Entries() {
		urls, err := s.deps.Assets.Scripts(entry)
		if err != nil {
			continue
		}
		for _, u := range urls {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}

// handleUpdate adds the submitted directory and tunnel domain, reloads the
// config, syncs the library, starts the tunnel and redirects home.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "api")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	directory := strings.TrimSpace(r.PostFormValue("directory"))
	domain := config.NormalizeDomain(r.PostFormValue("ngrok"))

	if domain != "" {
		v := validate.New()
		v.Hostname("ngrok", domain)
		if err := v.Err(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	dirAdded, err := s.deps.Editor.AddDirectory(directory)
	if err != nil {
		logger.Error().Err(err).Msg("failed to save directory")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	domainAdded, err := s.deps.Editor.AddTunnelDomain(domain)
	if err != nil {
		logger.Error().Err(err).Msg("failed to save tunnel domain")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if dirAdded || domainAdded {
		if err := s.deps.Config.Reload(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if err := s.deps.Library.Sync(ctx, s.deps.Config.Get().Directories); err != nil {
			logger.Error().Err(err).Msg("failed to sync library roots")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	if domain != "" {
		// Tunnel failures are visible on the index page; the form still succeeds.
		if err := s.deps.Tunnels.Ensure(ctx, domain); err != nil {
			logger.Warn().Err(err).Str(log.FieldDomain, domain).Msg("tunnel did not start")
		}
	}

	logger.Info().
		Str(log.FieldEvent, "config.updated").
		Bool("directory_added", dirAdded).
		Bool("domain_added", domainAdded).
		Msg("configuration updated from form")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
