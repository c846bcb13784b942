// Package filter implements the rule-compilation-and-matching engine: a
// parser that turns AdBlock/EasyList-style filter list text into compiled
// Rules, and a FilterEngine that evaluates (url, document_url,
// resource_type) triples against the compiled corpus.
package filter

import (
	"regexp"
	"strings"

	"urlfilter/internal/urlutil"
)

// RuleKind is the action a matching rule takes.
type RuleKind int

const (
	// KindBlock denies the request.
	KindBlock RuleKind = iota
	// KindAllow exempts the request from all matching Block rules.
	KindAllow
)

// ResourceType classifies the kind of sub-resource a request is for.
type ResourceType int

const (
	TypeOther ResourceType = iota
	TypeDocument
	TypeScript
	TypeImage
	TypeStylesheet
	TypeObject
	TypeXMLHTTPRequest
	TypeSubdocument
	TypePing
	TypeWebsocket
)

// ParseResourceType maps the query-boundary type string to a ResourceType.
// Anything unrecognized maps to TypeOther.
func ParseResourceType(s string) ResourceType {
	switch s {
	case "script":
		return TypeScript
	case "image":
		return TypeImage
	case "stylesheet":
		return TypeStylesheet
	case "object":
		return TypeObject
	case "xmlhttprequest":
		return TypeXMLHTTPRequest
	case "subdocument":
		return TypeSubdocument
	case "ping":
		return TypePing
	case "websocket":
		return TypeWebsocket
	case "document":
		return TypeDocument
	default:
		return TypeOther
	}
}

// formKind tags which of the four pattern shapes a Rule holds.
type formKind int

const (
	formDomainAnchor formKind = iota
	formRegex
	formWildcardRegex
	formSubstring
)

// patternForm is the tagged union described in the data model: exactly one
// of the four shapes a compiled Rule's pattern can take. The four forms
// share only the ability to test a URL string; everything else about them
// differs, so a tagged struct (rather than an interface hierarchy) keeps
// construction and matching in one place per rule.
type patternForm struct {
	kind    formKind
	host    string         // formDomainAnchor
	re      *regexp.Regexp // formRegex, formWildcardRegex
	literal string         // formSubstring
}

// Rule is the immutable compiled representation of one filter list line.
type Rule struct {
	patternText string
	kind        RuleKind
	form        patternForm
	valid       bool

	includeDomains []string
	excludeDomains []string
	includeTypes   []ResourceType
	excludeTypes   []ResourceType
}

// Valid reports whether the rule compiled successfully.
func (r *Rule) Valid() bool { return r.valid }

// Pattern returns the original pattern text (minus any @@ prefix).
func (r *Rule) Pattern() string { return r.patternText }

// Kind returns the rule's action.
func (r *Rule) Kind() RuleKind { return r.kind }

// AddDomainRestriction scopes the rule to (include=true) or away from
// (include=false) documents whose host matches pattern. The parser never
// populates these from "$domain=" tokens (see ParseRule); this exists so
// restrictions can be attached programmatically and exercised by
// Rule.Matches' domain gate.
func (r *Rule) AddDomainRestriction(pattern string, include bool) {
	if include {
		r.includeDomains = append(r.includeDomains, pattern)
	} else {
		r.excludeDomains = append(r.excludeDomains, pattern)
	}
}

// AddResourceTypeRestriction scopes the rule to (include=true) or away from
// (include=false) the given resource type.
func (r *Rule) AddResourceTypeRestriction(t ResourceType, include bool) {
	if include {
		r.includeTypes = append(r.includeTypes, t)
	} else {
		r.excludeTypes = append(r.excludeTypes, t)
	}
}

// Matches evaluates the rule against one query triple. A rule with
// valid == false never matches; matching proceeds type gate, domain gate,
// then pattern gate, any false short-circuiting to false.
func (r *Rule) Matches(url, docURL string, resType ResourceType) bool {
	if !r.valid || url == "" {
		return false
	}
	if !r.checkResourceType(resType) {
		return false
	}
	if !r.checkDomains(docURL) {
		return false
	}
	return r.matchesPattern(url)
}

func (r *Rule) checkResourceType(resType ResourceType) bool {
	if len(r.includeTypes) == 0 && len(r.excludeTypes) == 0 {
		return true
	}
	for _, t := range r.excludeTypes {
		if t == resType {
			return false
		}
	}
	if len(r.includeTypes) > 0 {
		for _, t := range r.includeTypes {
			if t == resType {
				return true
			}
		}
		return false
	}
	return true
}

func (r *Rule) checkDomains(docURL string) bool {
	if len(r.includeDomains) == 0 && len(r.excludeDomains) == 0 {
		return true
	}
	if docURL == "" {
		return len(r.includeDomains) == 0
	}
	docHost := urlutil.ExtractDomain(docURL)
	for _, pattern := range r.excludeDomains {
		if urlutil.DomainMatches(docHost, pattern) {
			return false
		}
	}
	if len(r.includeDomains) > 0 {
		for _, pattern := range r.includeDomains {
			if urlutil.DomainMatches(docHost, pattern) {
				return true
			}
		}
		return false
	}
	return true
}

func (r *Rule) matchesPattern(url string) bool {
	switch r.form.kind {
	case formDomainAnchor:
		return urlutil.DomainMatches(urlutil.ExtractDomain(url), r.form.host)
	case formRegex, formWildcardRegex:
		return r.form.re.MatchString(url)
	case formSubstring:
		return strings.Contains(url, r.form.literal)
	default:
		return false
	}
}

// convertToRegex escapes regex metacharacters other than * and ^, then
// translates * -> .* and ^ -> [/?&=:], mirroring an AdBlock wildcard pattern.
func convertToRegex(pattern string) string {
	var b strings.Builder
	for _, c := range pattern {
		switch c {
		case '.', '+', '?', '(', ')', '[', ']', '{', '}', '|', '\\', '$':
			b.WriteByte('\\')
			b.WriteRune(c)
		case '*':
			b.WriteString(".*")
		case '^':
			b.WriteString("[/?&=:]")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
