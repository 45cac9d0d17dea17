package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameBytes bounds stored original filenames; longer names keep
// their extension and lose the end of the stem.
const MaxFileNameBytes = 255

// ErrInvalidFileName reports a name that cannot be stored.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName makes an uploaded filename safe to store and display.
// Separators become underscores, control characters are dropped, and
// traversal patterns are rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) <= MaxFileNameBytes {
		return s, nil
	}
	ext := filepath.Ext(s)
	if len(ext) >= MaxFileNameBytes {
		ext = ""
	}
	stem := s[:MaxFileNameBytes-len(ext)]
	for !utf8.ValidString(stem) {
		stem = stem[:len(stem)-1]
	}
	return stem + ext, nil
}
