// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureFileServer_Statuses(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.musicDir, ".hidden.mp3"), "secret")
	outside := filepath.Join(t.TempDir(), "outside.mp3")
	writeFile(t, outside, "outside")
	require.NoError(t, os.Symlink(outside, filepath.Join(f.musicDir, "escape.mp3")))
	require.NoError(t, os.Mkdir(filepath.Join(f.musicDir, "album.mp3"), 0o755))

	prefix := "/files/" + f.rootID + "/"
	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"audio file", http.MethodGet, prefix + "a.mp3", http.StatusOK},
		{"nested escaped", http.MethodGet, prefix + "sub/b%20c.flac", http.StatusOK},
		{"head", http.MethodHead, prefix + "a.mp3", http.StatusOK},
		{"post", http.MethodPost, prefix + "a.mp3", http.StatusMethodNotAllowed},
		{"not audio", http.MethodGet, prefix + "notes.txt", http.StatusForbidden},
		{"hidden", http.MethodGet, prefix + ".hidden.mp3", http.StatusForbidden},
		{"encoded traversal", http.MethodGet, prefix + "%2e%2e/secret.mp3", http.StatusForbidden},
		{"double encoded traversal", http.MethodGet, prefix + "%252e%252e/secret.mp3", http.StatusForbidden},
		{"encoded nul", http.MethodGet, prefix + "a.mp3%2500", http.StatusForbidden},
		{"backslash", http.MethodGet, prefix + "sub%5C..%5Ca.mp3", http.StatusForbidden},
		{"fullwidth dots", http.MethodGet, prefix + "%EF%BC%8E%EF%BC%8E/a.mp3", http.StatusForbidden},
		{"directory listing", http.MethodGet, prefix + "sub/", http.StatusForbidden},
		{"directory named like audio", http.MethodGet, prefix + "album.mp3", http.StatusForbidden},
		{"symlink escape", http.MethodGet, prefix + "escape.mp3", http.StatusForbidden},
		{"missing", http.MethodGet, prefix + "nope.mp3", http.StatusNotFound},
		{"unknown root", http.MethodGet, "/files/other-12345678/a.mp3", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSecureFileServer_ContentTypeAndETag(t *testing.T) {
	f := newFixture(t)
	target := "/files/" + f.rootID + "/a.mp3"

	rec := f.get(t, target)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ID3-a-contents", rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Regexp(t, `^W/"[0-9a-f]+-[0-9a-f]+"$`, etag)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("If-None-Match", `"other", `+etag)
	rec = f.do(t, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = f.get(t, "/files/"+f.rootID+"/sub/b%20c.flac")
	assert.Equal(t, "audio/flac", rec.Header().Get("Content-Type"))
}

func TestSecureFileServer_RangeRequests(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/files/"+f.rootID+"/a.mp3", nil)
	req.Header.Set("Range", "bytes=0-2")

	rec := f.do(t, req)
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "ID3", rec.Body.String())
	assert.Equal(t, "bytes 0-2/14", rec.Header().Get("Content-Range"))
}

func TestIsPathTraversal(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"/a.mp3", false},
		{"/..weird.mp3", false},
		{"/sub/song..mp3", false},
		{"/../a.mp3", true},
		{"/%2e%2e/a.mp3", true},
		{"/%252e%252e/a.mp3", true},
		{"/a.mp3%00", true},
		{"/a\x00.mp3", true},
		{"/sub\\..\\a.mp3", true},
		{"/%c0%ae%c0%ae/a.mp3", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isPathTraversal(tt.in), tt.in)
	}
}

func TestFileHref(t *testing.T) {
	assert.Equal(t, "/files/music-1a2b3c4d/sub/b%20c.flac", fileHref("music-1a2b3c4d", "sub/b c.flac"))
	assert.Equal(t, "/files/r/100%25%20%3F.mp3", fileHref("r", "100% ?.mp3"))
}
