package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// originPolicy decides which browser origins may use the API. Requests
// without an Origin header come from non-browser clients or same-origin
// navigations and are let through.
type originPolicy struct {
	allowed []glob.Glob
}

func newOriginPolicy(patterns []string) (*originPolicy, error) {
	p := &originPolicy{}
	for _, pat := range patterns {
		g, err := glob.Compile(strings.ToLower(pat))
		if err != nil {
			return nil, fmt.Errorf("allowed origin %q: %w", pat, err)
		}
		p.allowed = append(p.allowed, g)
	}
	return p, nil
}

// sameOrigin reports whether origin names the host r was sent to.
func sameOrigin(origin string, r *http.Request) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// check returns the origin to echo back in CORS headers, or ok=false for a
// foreign origin.
func (p *originPolicy) check(r *http.Request) (origin string, ok bool) {
	origin = r.Header.Get("Origin")
	if origin == "" {
		return "", true
	}
	if sameOrigin(origin, r) {
		return origin, true
	}
	lower := strings.ToLower(origin)
	for _, g := range p.allowed {
		if g.Match(lower) {
			return origin, true
		}
	}
	return origin, false
}

// checkUpgrade is the websocket.Upgrader CheckOrigin hook.
func (p *originPolicy) checkUpgrade(r *http.Request) bool {
	_, ok := p.check(r)
	return ok
}
