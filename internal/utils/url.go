package utils

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// CanonicalizeOptions controls optional canonicalization policies.
type CanonicalizeOptions struct {
	DefaultScheme  string   // if empty, require scheme in input; otherwise assume this scheme for schemeless URLs
	AllowedSchemes []string // if non-empty, the scheme must be one of these
}

// DefaultCanonicalizeOptions is what capture requests use.
func DefaultCanonicalizeOptions() CanonicalizeOptions {
	return CanonicalizeOptions{
		DefaultScheme:  "https",
		AllowedSchemes: []string{"http", "https"},
	}
}

var (
	ErrEmptyURL          = errors.New("empty url")
	ErrMissingHost       = errors.New("missing host")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// Canonicalize checks raw as a navigation target and normalizes only its
// scheme and host. Path, query and fragment are kept exactly as entered.
//
// Examples (default options):
//
//	"example.com"                -> "https://example.com"
//	"HTTP://Example.COM:80/a/../b" -> "http://example.com:80/a/../b"
//	"https://bücher.de/#top"     -> "https://xn--bcher-kva.de/#top"
func Canonicalize(raw string, opts CanonicalizeOptions) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &url.Error{Op: "parse", URL: raw, Err: ErrEmptyURL}
	}

	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if len(opts.AllowedSchemes) > 0 && !containsFold(opts.AllowedSchemes, u.Scheme) {
		return "", &url.Error{Op: "parse", URL: raw, Err: ErrUnsupportedScheme}
	}

	if u.Hostname() == "" {
		return "", &url.Error{Op: "parse", URL: raw, Err: ErrMissingHost}
	}

	// Lowercase host and convert IDN -> punycode
	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}

	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}

	return u.String(), nil
}

// Hostname returns the lower-cased host of raw without port, or "" if raw
// does not parse.
func Hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
