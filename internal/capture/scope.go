package capture

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/raysh454/shutter/internal/utils"
)

// Scope decides which hosts may be captured. Patterns are globs over the
// host name with '.' as separator, so "*.example.com" matches one label and
// "**.example.com" any depth. Deny wins over allow; an empty allow list
// allows everything not denied. A nil Scope allows everything.
type Scope struct {
	allow []glob.Glob
	deny  []glob.Glob
}

func NewScope(allow, deny []string) (*Scope, error) {
	s := &Scope{}
	for _, p := range allow {
		g, err := compileHostPattern(p)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern '%s': %w", p, err)
		}
		s.allow = append(s.allow, g)
	}
	for _, p := range deny {
		g, err := compileHostPattern(p)
		if err != nil {
			return nil, fmt.Errorf("invalid denied host pattern '%s': %w", p, err)
		}
		s.deny = append(s.deny, g)
	}
	return s, nil
}

func compileHostPattern(p string) (glob.Glob, error) {
	return glob.Compile(strings.ToLower(strings.TrimSpace(p)), '.')
}

// Check returns ErrTargetDenied when rawURL's host is out of scope.
func (s *Scope) Check(rawURL string) error {
	if s == nil {
		return nil
	}
	host := utils.Hostname(rawURL)
	for _, g := range s.deny {
		if g.Match(host) {
			return fmt.Errorf("%w: host %q is denied", ErrTargetDenied, host)
		}
	}
	if len(s.allow) == 0 {
		return nil
	}
	for _, g := range s.allow {
		if g.Match(host) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %q is not in the allow list", ErrTargetDenied, host)
}
