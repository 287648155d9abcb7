package remote

import (
	"path/filepath"
	"strings"
)

// Join builds a remote path from its segments.
//
// The result always starts with "/", uses "/" as separator, has runs of
// separators collapsed and no trailing separator, except the root "/".
// Local OS separators in segments are converted first.
func Join(segments ...string) string {
	var b strings.Builder
	b.WriteByte('/')
	for _, seg := range segments {
		b.WriteString(filepath.ToSlash(seg))
		b.WriteByte('/')
	}
	return Clean(b.String())
}

// Clean collapses repeated separators and strips a trailing one.
func Clean(p string) string {
	var b strings.Builder
	b.Grow(len(p) + 1)
	if !strings.HasPrefix(p, "/") {
		b.WriteByte('/')
	}

	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}

	out := b.String()
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}

// Base returns the last segment of a normalized remote path.
func Base(p string) string {
	p = Clean(p)
	return p[strings.LastIndexByte(p, '/')+1:]
}
