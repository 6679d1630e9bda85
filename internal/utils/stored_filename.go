package utils

import (
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"
	"unicode/utf8"
)

// Limits are in bytes so the stored name stays under filesystem limits.
const (
	maxBaseNameLength = 100
	maxExtLength      = 16
)

// StoredFilename builds the server-side name for an upload in the form
// <basename>-<unix millis>-<random 0..1e9><ext>. Directory components of the
// client-supplied name are discarded.
func StoredFilename(original string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(original, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = ""
	}

	ext := path.Ext(name)
	base := sanitize(strings.TrimSuffix(name, ext))
	if base == "" {
		base = "file"
	}
	base = truncate(base, maxBaseNameLength)
	ext = truncate(sanitize(ext), maxExtLength)

	return fmt.Sprintf("%s-%d-%d%s", base, now.UnixMilli(), rand.Intn(1_000_000_000), ext)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// sanitize drops control characters and anything that could act as a
// path separator.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case r == '/', r == '\\', r == ':':
			return '_'
		default:
			return r
		}
	}, s)
}
