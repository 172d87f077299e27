// Package admission implements the domain allow-list check performed before
// any network fetch.
package admission

import (
	"net/url"
	"strings"
)

// Gate decides whether a target URL may be fetched. The suffix list is fixed
// at construction and read-only afterwards, so Gate is safe for concurrent
// use without locking.
type Gate struct {
	suffixes []string
}

// NewGate creates a Gate from a list of domain suffixes. An empty list means
// no restriction (development mode); production deployments must configure
// an explicit allow-list.
func NewGate(suffixes []string) *Gate {
	return &Gate{suffixes: suffixes}
}

// Allowed reports whether rawURL may be fetched. With a non-empty suffix
// list, unparseable URLs and URLs without a hostname fail closed. Suffix
// matching means "example.com" also admits "shop.example.com".
func (g *Gate) Allowed(rawURL string) bool {
	if len(g.suffixes) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	hostname := u.Hostname()
	if hostname == "" {
		return false
	}
	for _, suffix := range g.suffixes {
		if strings.HasSuffix(hostname, suffix) {
			return true
		}
	}
	return false
}
