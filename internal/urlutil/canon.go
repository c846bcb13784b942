// Package urlutil provides the pure string-surgery operations the filter
// engine needs to canonicalize and compare URLs. It deliberately does not
// use net/url: the grammar it accepts and the normalization rules it applies
// (case folding only on scheme and host, a single-trailing-slash rule,
// tolerance for inputs net/url would reject) are specific to this domain and
// are easier to express, audit, and keep deterministic as a small state
// machine than as a wrapper around a general-purpose URL parser.
package urlutil

import (
	"regexp"
	"strings"
)

// maxURLLength is the longest URL IsValid will accept.
const maxURLLength = 2048

var hostLabel = `[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?`
var validURLPattern = regexp.MustCompile(`(?i)^https?://` + hostLabel + `(\.` + hostLabel + `)*(/.*)?$`)

const schemeSep = "://"

// splitScheme returns the rest of the URL after "://" and whether the
// separator was present.
func splitScheme(url string) (rest string, hadScheme bool) {
	if i := strings.Index(url, schemeSep); i >= 0 {
		return url[i+len(schemeSep):], true
	}
	return url, false
}

// ExtractDomain strips the scheme and truncates at the first /, ?, # or :,
// then lowercases the result. Empty input yields empty output; it never
// fails.
func ExtractDomain(url string) string {
	if url == "" {
		return ""
	}
	rest, _ := splitScheme(url)
	end := strings.IndexAny(rest, "/?#:")
	if end >= 0 {
		rest = rest[:end]
	}
	return strings.ToLower(rest)
}

// ExtractPath returns the substring from the first '/' after the host up to
// but excluding '?' or '#'. If no '/' follows the host, returns "/". Empty
// input returns "", matching the original parser rather than synthesizing a
// root path for a URL that was never present.
func ExtractPath(url string) string {
	if url == "" {
		return ""
	}
	rest, _ := splitScheme(url)
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return "/"
	}
	path := rest[slash:]
	if end := strings.IndexAny(path, "?#"); end >= 0 {
		path = path[:end]
	}
	return path
}

// Normalize lowercases the scheme prefix and the host, leaves path/query/
// fragment case intact, and strips one trailing '/' from whatever follows
// the host (path, query or fragment alike). The '/' that belongs to "://"
// and a sole root "/" are never stripped. Normalize is idempotent except
// when the input ends in more than one '/' after the host: each call strips
// only one, so "/a//" becomes "/a/" and then "/a".
func Normalize(url string) string {
	if url == "" {
		return url
	}

	schemeIdx := strings.Index(url, schemeSep)
	if schemeIdx < 0 {
		return url
	}
	scheme := strings.ToLower(url[:schemeIdx])
	rest := url[schemeIdx+len(schemeSep):]

	hostEnd := strings.IndexByte(rest, '/')
	var host, tail string
	if hostEnd < 0 {
		host = strings.ToLower(rest)
		return scheme + schemeSep + host
	}
	host = strings.ToLower(rest[:hostEnd])
	tail = rest[hostEnd:]

	if tail != "/" && strings.HasSuffix(tail, "/") {
		tail = tail[:len(tail)-1]
	}

	return scheme + schemeSep + host + tail
}

// IsValid reports whether url is at most 2048 bytes and matches
// ^https?://host(.host)*(/.*)?$ with RFC 1123-style host labels.
func IsValid(url string) bool {
	if len(url) > maxURLLength {
		return false
	}
	return validURLPattern.MatchString(url)
}

// DomainMatches reports whether host matches pattern:
//   - exact equality
//   - pattern == "*." + suffix: true iff host ends with "." + suffix
//   - otherwise: true iff host is a strict subdomain of pattern
//     (host longer than pattern and host ends with "." + pattern)
func DomainMatches(host, pattern string) bool {
	if host == pattern {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	return len(host) > len(pattern) && strings.HasSuffix(host, "."+pattern)
}
