package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe cache keys.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeURL canonicalizes a URL so trivially equivalent spellings of the
// same address derive the same cache key: scheme and host are lowercased,
// default ports and fragments are dropped. Unparseable input is returned
// unchanged; key derivation still works, the key just won't collide with the
// parseable spelling.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	u.Fragment = ""
	return u.String()
}

// SnapshotKeyForURL derives the deterministic cache key for a fetched URL.
// Repeat requests for the same source collide on this key.
func SnapshotKeyForURL(rawURL string) string {
	return "url:" + HashURL(NormalizeURL(rawURL))
}
