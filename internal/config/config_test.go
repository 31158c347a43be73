// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/tunebox/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestLoad_HistoricalJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{
  "directories": ["/srv/music", "albums", "/srv/music"],
  "ngrok_domains": ["Tunes.NGROK.app"]
}`)

	cfg, err := NewLoader(path, "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/music", filepath.Join(dir, "albums")}, cfg.Directories)
	assert.Equal(t, []string{"tunes.ngrok.app"}, cfg.TunnelDomains)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultStaticDir, cfg.StaticDir)
	assert.Equal(t, DefaultTunnelBin, cfg.TunnelBin)
	assert.True(t, cfg.TunnelsEnabled)
	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunebox.yaml")
	writeFile(t, path, `
directories:
  - /music
ngrok_domains: []
listen_addr: "127.0.0.1:9000"
tunnels_enabled: false
scan_max_depth: 4
server:
  read_timeout: 5s
  shutdown_timeout: 20s
`)

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/music"}, cfg.Directories)
	assert.Empty(t, cfg.TunnelDomains)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.False(t, cfg.TunnelsEnabled)
	assert.Equal(t, 4, cfg.ScanMaxDepth)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_StrictParsing(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{"json unknown field", "c.json", `{"directories":[],"ngrok_domain":[]}`, ErrUnknownConfigField},
		{"yaml unknown field", "c.yaml", "directories: []\nport: 80\n", ErrUnknownConfigField},
		{"json trailing", "c.json", `{"directories":[]} {"directories":[]}`, ErrTrailingContent},
		{"yaml multi doc", "c.yml", "directories: []\n---\ndirectories: []\n", ErrTrailingContent},
		{"unsupported", "c.toml", `directories = []`, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.content)
			_, err := NewLoader(path, "").Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoad_BadServerDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	writeFile(t, path, `{"directories":[],"server":{"idle_timeout":"soon"}}`)
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.idle_timeout")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.json"), "").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"directories":[],"ngrok_domains":[],"listen_addr":":7000","static_dir":"public"}`)

	t.Setenv(EnvListen, ":9999")
	t.Setenv(EnvTunnelsEnabled, "no")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvStaticDir, "")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.False(t, cfg.TunnelsEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
	// empty env falls back to the file value
	assert.Equal(t, "public", cfg.StaticDir)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := NewLoader("", "dev").Load()
	require.NoError(t, err)
	want := Default()
	want.Version = "dev"
	assert.Equal(t, want, cfg)
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, created, err := LoadOrCreate(path, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, cfg.Directories)
	assert.FileExists(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"directories": []`)
	assert.Contains(t, string(data), `"ngrok_domains": []`)

	_, created, err = LoadOrCreate(path, "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestManager_AddDirectoryAndDomain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	m := NewManager(path)
	require.NoError(t, m.Save(Default()))

	changed, err := m.AddDirectory("/srv/music")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = m.AddDirectory("  /srv/music/  ")
	require.NoError(t, err)
	assert.False(t, changed, "duplicate after cleanup")

	changed, err = m.AddDirectory("   ")
	require.NoError(t, err)
	assert.False(t, changed, "blank ignored")

	changed, err = m.AddTunnelDomain("https://Radio.ngrok.app/")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = m.AddTunnelDomain("radio.ngrok.app")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = m.AddTunnelDomain("")
	require.NoError(t, err)
	assert.False(t, changed)

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/music"}, cfg.Directories)
	assert.Equal(t, []string{"radio.ngrok.app"}, cfg.TunnelDomains)
}

func TestManager_AddKeepsEnvOutOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)
	require.NoError(t, m.Save(Default()))

	t.Setenv(EnvListen, ":1234")
	_, err := m.AddDirectory("/music")
	require.NoError(t, err)

	fc, err := LoadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, fc.ListenAddr)
	assert.Equal(t, []string{"/music"}, fc.Directories)
}

func TestManager_AddCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	changed, err := NewManager(path).AddDirectory("/music")
	require.NoError(t, err)
	assert.True(t, changed)

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/music"}, cfg.Directories)
	assert.True(t, cfg.TunnelsEnabled)
}

func TestManager_SaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			in := Default()
			in.Directories = []string{"/a", "/b"}
			in.TunnelDomains = []string{"x.ngrok.app"}
			in.TunnelsEnabled = false
			in.ScanMaxDepth = 3
			in.Server.IdleTimeout = time.Minute

			require.NoError(t, NewManager(path).Save(in))
			out, err := NewLoader(path, "").Load()
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestValidate(t *testing.T) {
	ok := Default()
	ok.Directories = []string{"/music"}
	ok.TunnelDomains = []string{"tunes.ngrok.app"}
	require.NoError(t, Validate(ok))

	bad := ok.Clone()
	bad.ListenAddr = "8080"
	bad.Directories = []string{"relative", "/x", "/x"}
	bad.TunnelDomains = []string{"bad_domain"}
	bad.LogLevel = "loud"
	bad.ScanMaxDepth = -1

	err := Validate(bad)
	require.Error(t, err)
	var verr validate.ValidationError
	require.True(t, errors.As(err, &verr))

	fields := map[string]bool{}
	for _, e := range verr.Errors() {
		fields[e.Field] = true
	}
	for _, f := range []string{"ListenAddr", "Directories[0]", "Directories", "TunnelDomains[0]", "LogLevel", "ScanMaxDepth"} {
		assert.True(t, fields[f], "expected error for %s", f)
	}
}

func TestClone_IsDeep(t *testing.T) {
	a := Default()
	a.Directories = []string{"/a"}
	b := a.Clone()
	b.Directories[0] = "/b"
	assert.Equal(t, "/a", a.Directories[0])
}
