// Package keygen derives object keys and content types for new upload sessions.
package keygen

import (
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// TimestampLayout is the UTC timestamp prefix of generated object keys.
const TimestampLayout = "20060102_150405"

// sniffLen is how many leading bytes are read for content detection.
const sniffLen = 512

// ObjectKey returns "YYYYMMDD_HHMMSS_<base name>" for a file created at the given time.
// It returns an empty string when fileName has no usable base name.
func ObjectKey(fileName string, at time.Time) string {
	base := BaseName(fileName)
	if base == "" {
		return ""
	}
	return at.UTC().Format(TimestampLayout) + "_" + base
}

// BaseName returns the last element of a client path, accepting both
// slash and backslash separators, with control characters removed.
func BaseName(fileName string) string {
	name := fileName
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// ContentTypeFromName returns the MIME type registered for the file extension,
// or application/octet-stream.
func ContentTypeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(BaseName(name)))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return uploadtypes.DefaultContentType
}

// DetectContentType sniffs the leading bytes of a local file and falls back
// to extension-based detection when the file cannot be read.
func DetectContentType(fsys fs.Filesystem, path string) string {
	info, err := fsys.Stat(path)
	if err != nil || info.IsDir() {
		return ContentTypeFromName(path)
	}

	file, err := fsys.Open(path)
	if err != nil {
		return ContentTypeFromName(path)
	}
	defer file.Close()

	buf := make([]byte, sniffLen)
	n, _ := file.Read(buf)
	if n == 0 {
		return ContentTypeFromName(path)
	}

	// Generic results carry no information beyond the extension.
	mt := mimetype.Detect(buf[:n])
	if mt.Is("application/octet-stream") || mt.Is("text/plain") {
		if byName := ContentTypeFromName(path); byName != uploadtypes.DefaultContentType {
			return byName
		}
	}
	return mt.String()
}
