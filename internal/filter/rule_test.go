package filter

import "testing"

func TestRuleMatchesDomainAnchor(t *testing.T) {
	r := ParseRule("||doubleclick.net^")
	if !r.Valid() {
		t.Fatal("expected valid rule")
	}
	if !r.Matches("https://doubleclick.net/ads/script.js", "", TypeOther) {
		t.Error("expected match on exact host")
	}
	if !r.Matches("https://ads.doubleclick.net/x", "", TypeOther) {
		t.Error("expected match on subdomain")
	}
	if r.Matches("https://notdoubleclick.net/x", "", TypeOther) {
		t.Error("must not match unrelated host")
	}
}

func TestRuleMatchesSubstring(t *testing.T) {
	r := ParseRule("trackme")
	if !r.Valid() || r.Kind() != KindBlock {
		t.Fatal("expected valid block rule")
	}
	if !r.Matches("https://example.com/trackme/x", "", TypeOther) {
		t.Error("expected substring match")
	}
	if r.Matches("https://example.com/safe", "", TypeOther) {
		t.Error("unexpected match")
	}
}

func TestRuleMatchesWildcard(t *testing.T) {
	r := ParseRule("*ads*")
	if !r.Valid() {
		t.Fatal("expected valid rule")
	}
	if !r.Matches("https://example.com/ads/banner", "", TypeOther) {
		t.Error("expected wildcard match")
	}
}

func TestRuleMatchesRegex(t *testing.T) {
	r := ParseRule("/^https://ads\\./")
	if !r.Valid() {
		t.Fatal("expected valid regex rule")
	}
	if !r.Matches("https://ads.example.com/x", "", TypeOther) {
		t.Error("expected regex match")
	}
	if !r.Matches("HTTPS://ADS.example.com/x", "", TypeOther) {
		t.Error("regex rules are case-insensitive")
	}
}

func TestRuleAllowKind(t *testing.T) {
	r := ParseRule("@@||github.com^")
	if r.Kind() != KindAllow {
		t.Error("expected allow kind")
	}
	if r.Pattern() != "||github.com^" {
		t.Errorf("expected @@ stripped from pattern, got %q", r.Pattern())
	}
}

func TestRuleInvalidRegexIsolated(t *testing.T) {
	r := ParseRule("/[/")
	if r.Valid() {
		t.Fatal("expected invalid rule for bad regex")
	}
	if r.Matches("https://example.com/", "", TypeOther) {
		t.Error("invalid rule must never match")
	}
}

func TestRuleEmptyURLNeverMatches(t *testing.T) {
	r := ParseRule("example")
	if r.Matches("", "", TypeOther) {
		t.Error("empty url must never match")
	}
}

func TestRuleResourceTypeGate(t *testing.T) {
	r := ParseRule("ads")
	r.AddResourceTypeRestriction(TypeScript, true)
	if r.Matches("https://example.com/ads", "", TypeImage) {
		t.Error("include-types should exclude non-listed types")
	}
	if !r.Matches("https://example.com/ads", "", TypeScript) {
		t.Error("include-types should allow listed type")
	}
}

func TestRuleDomainGate(t *testing.T) {
	r := ParseRule("ads")
	r.AddDomainRestriction("example.com", true)
	if !r.Matches("https://cdn.com/ads", "https://example.com/page", TypeOther) {
		t.Error("expected match: doc domain in include list")
	}
	if r.Matches("https://cdn.com/ads", "https://other.com/page", TypeOther) {
		t.Error("expected no match: doc domain not in include list")
	}
	if r.Matches("https://cdn.com/ads", "", TypeOther) {
		t.Error("empty doc url with non-empty include list should not match")
	}
}

func TestParseRuleSkipsCommentsAndBlank(t *testing.T) {
	// Cosmetic rules start with '#', so the comment check catches them too.
	for _, line := range []string{"", "   ", "! comment", "# comment", "##.ad", "#@#.ad"} {
		if r := ParseRule(line); r != nil {
			t.Errorf("ParseRule(%q) = %+v, want nil", line, r)
		}
	}
}

func TestParseRuleModifierSuffixAffectsForm(t *testing.T) {
	r := ParseRule("||googlevideo.com/videoplayback^$redirect=noopmp4-1s")
	if !r.Valid() {
		t.Fatal("expected valid rule")
	}
	if r.form.kind != formWildcardRegex {
		t.Errorf("expected wildcard form once $modifier breaks the trailing ^, got %v", r.form.kind)
	}
}

func TestParseResourceType(t *testing.T) {
	cases := map[string]ResourceType{
		"script":         TypeScript,
		"image":          TypeImage,
		"stylesheet":     TypeStylesheet,
		"document":       TypeDocument,
		"xmlhttprequest": TypeXMLHTTPRequest,
		"bogus":          TypeOther,
		"":               TypeOther,
	}
	for in, want := range cases {
		if got := ParseResourceType(in); got != want {
			t.Errorf("ParseResourceType(%q) = %v, want %v", in, got, want)
		}
	}
}
