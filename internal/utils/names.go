package utils

import (
	"net/url"
	"strings"
)

// MaxFragmentLen bounds the URL-derived part of generated file names.
const MaxFragmentLen = 50

// FilenameFragment turns a URL into a filesystem-safe fragment built from
// host and path: lower-case ASCII letters and digits, everything else
// collapsed into single underscores.
//
//	"https://example.com"            -> "example_com"
//	"https://Example.com/a/b?x=1"    -> "example_com_a_b"
//	"http://localhost:8080/"         -> "localhost_8080"
//
// An empty result falls back to "screenshot".
func FilenameFragment(raw string) string {
	base := strings.TrimSpace(raw)
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		base = u.Host + u.Path
	} else if i := strings.Index(base, "://"); i >= 0 {
		base = base[i+3:]
	}

	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}

	out := strings.Trim(b.String(), "_")
	if len(out) > MaxFragmentLen {
		out = strings.TrimRight(out[:MaxFragmentLen], "_")
	}
	if out == "" {
		out = "screenshot"
	}
	return out
}
