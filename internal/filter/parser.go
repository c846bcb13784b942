package filter

import (
	"regexp"
	"strings"
)

// ParseRule compiles one filter list line into a Rule. It returns nil for
// blank lines, comments (!, #), and cosmetic rules (##, #@#) — none of these
// produce a Rule. Compile failures (bad regex/wildcard) yield a Rule with
// valid == false rather than an error: rule compilation never aborts list
// loading.
//
// Trailing "$modifiers" are not split from the pattern body before form
// detection: a line like "||host/path^$redirect=noopmp4-1s" no longer ends
// in "^" once the modifier is attached, so it falls through to the wildcard
// branch rather than being treated as a domain anchor. This mirrors the
// engine this parser is modeled on, which never special-cased "$" at all;
// $domain=/type-token restrictions remain settable only through the Rule
// API, never populated by this parser.
func ParseRule(line string) *Rule {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "!") || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	kind := KindBlock
	if strings.HasPrefix(trimmed, "@@") {
		kind = KindAllow
		trimmed = trimmed[2:]
	}

	rule := &Rule{patternText: trimmed, kind: kind}

	switch {
	case len(trimmed) >= 2 && strings.HasPrefix(trimmed, "/") && strings.HasSuffix(trimmed, "/"):
		re, err := regexp.Compile("(?i)" + trimmed[1:len(trimmed)-1])
		if err != nil {
			return rule // valid stays false
		}
		rule.form = patternForm{kind: formRegex, re: re}
		rule.valid = true

	case strings.HasPrefix(trimmed, "||") && strings.HasSuffix(trimmed, "^"):
		rule.form = patternForm{kind: formDomainAnchor, host: trimmed[2 : len(trimmed)-1]}
		rule.valid = true

	case strings.ContainsAny(trimmed, "*^"):
		re, err := regexp.Compile("(?i)" + convertToRegex(trimmed))
		if err != nil {
			return rule
		}
		rule.form = patternForm{kind: formWildcardRegex, re: re}
		rule.valid = true

	default:
		rule.form = patternForm{kind: formSubstring, literal: trimmed}
		rule.valid = true
	}

	return rule
}
