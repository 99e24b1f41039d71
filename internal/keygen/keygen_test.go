package keygen

import (
	"testing"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 1, 14, 9, 30, 5, 999, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{"plain", "movie.mkv", "20260114_083005_movie.mkv"},
		{"unix path", "/home/me/data/archive.tar.gz", "20260114_083005_archive.tar.gz"},
		{"windows path", `C:\Users\me\Downloads\testfile.zip`, "20260114_083005_testfile.zip"},
		{"spaces kept", "my file.txt", "20260114_083005_my file.txt"},
		{"empty", "", ""},
		{"trailing separator", "dir/", ""},
		{"dot dot", "..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.fileName, at))
		})
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a.bin", BaseName("x/y\\a.bin"))
	assert.Equal(t, "ab.bin", BaseName("a\x00b.bin"))
	assert.Equal(t, "", BaseName("   "))
}

func TestContentTypeFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", "application/pdf"},
		{"IMAGE.PNG", "image/png"},
		{"data.json", "application/json"},
		{`C:\tmp\page.html`, "text/html; charset=utf-8"},
		{"noext", "application/octet-stream"},
		{"blob.unknownext", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentTypeFromName(tt.name))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	memFS := billy.NewInMemoryFS()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	require.NoError(t, memFS.WriteFile("/upload.bin", png, 0o644))
	require.NoError(t, memFS.WriteFile("/data.json", []byte(`{"name": "test", "value": 123}`), 0o644))
	require.NoError(t, memFS.WriteFile("/empty.pdf", nil, 0o644))
	require.NoError(t, memFS.MkdirAll("/dir.json", 0o755))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"sniffed over extension", "/upload.bin", "image/png"},
		{"json content", "/data.json", "application/json"},
		{"empty file uses extension", "/empty.pdf", "application/pdf"},
		{"missing file uses extension", "/missing.pdf", "application/pdf"},
		{"directory uses extension", "/dir.json", "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(memFS, tt.path))
		})
	}
}
