// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

//go:embed web/templates/*.html web/static/*
var webFS embed.FS

const indexTemplate = "index.html"

// loadTemplates parses index.html from dir, or the embedded copy when dir
// is empty.
func loadTemplates(dir string) (*template.Template, error) {
	var fsys fs.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(webFS, "web/templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}
	tmpl, err := template.New(indexTemplate).ParseFS(fsys, indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// staticHandler serves dir and falls back to the embedded assets for
// files dir does not have. Directory listings are refused.
func staticHandler(dir string) http.Handler {
	embedded, _ := fs.Sub(webFS, "web/static")
	layers := []fs.FS{embedded}
	if dir != "" {
		layers = append([]fs.FS{os.DirFS(dir)}, layers...)
	}
	return http.FileServerFS(noDirFS{layers: layers})
}

// noDirFS is a read-only overlay: the first layer holding a regular file
// wins, directories are reported as missing.
type noDirFS struct {
	layers []fs.FS
}

func (o noDirFS) Open(name string) (fs.File, error) {
	if name == "." || strings.HasPrefix(path.Base(name), ".") {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	for _, layer := range o.layers {
		f, err := layer.Open(name)
		if err != nil {
			continue
		}
		if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
			return f, nil
		}
		_ = f.Close()
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
