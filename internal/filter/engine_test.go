package filter

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"urlfilter/internal/logging"
)

func TestShouldBlockFailsOpenBeforeInit(t *testing.T) {
	e := NewFilterEngine()
	if e.ShouldBlock("https://doubleclick.net/ads", "", "") {
		t.Error("expected fail-open (false) before Initialize")
	}
}

func TestSeedScenarios(t *testing.T) {
	e := NewFilterEngine()
	if !e.Initialize() {
		t.Fatal("Initialize failed")
	}

	if !e.ShouldBlock("https://doubleclick.net/ads/script.js", "", "") {
		t.Error("scenario 1: expected block")
	}
	if e.ShouldBlock("https://github.com/user/repo", "", "") {
		t.Error("scenario 2: expected allow via the @@||github.com^ rule")
	}
	if !e.ShouldBlock("HTTPS://DOUBLECLICK.NET/ads/script.js", "", "") {
		t.Error("scenario 3: expected block, case-insensitive")
	}

	e.ClearFilters()
	if e.ShouldBlock("https://doubleclick.net/ads/script.js", "", "") {
		t.Error("scenario 6: expected allow after clear")
	}
	if e.RuleCount() != 0 {
		t.Errorf("scenario 6: expected 0 rules after clear, got %d", e.RuleCount())
	}
}

func TestWhitelistPrecedence(t *testing.T) {
	e := NewFilterEngine()
	e.Initialize()
	if _, err := e.LoadFilterRules("trusted.example.com"); err != nil {
		t.Fatal(err)
	}
	e.Whitelist("trusted.example.com")
	if e.ShouldBlock("https://trusted.example.com/trusted.example.com", "", "") {
		t.Error("whitelist must override any matching block rule")
	}
}

func TestAllowBeatsBlock(t *testing.T) {
	e := NewFilterEngine()
	e.Initialize()
	if _, err := e.LoadFilterRules("||ads.example.com^\n@@||ads.example.com^"); err != nil {
		t.Fatal(err)
	}
	if e.ShouldBlock("https://ads.example.com/x", "", "") {
		t.Error("an allow rule should defeat a matching block rule")
	}
}

func TestLoadFilterRulesFailsWithNoValidRules(t *testing.T) {
	e := NewFilterEngine()
	_, err := e.LoadFilterRules("! just a comment\n\n# another\n")
	if err == nil {
		t.Error("expected error when zero valid rules are added")
	}
}

func TestInvalidRuleIsolation(t *testing.T) {
	e := NewFilterEngine()
	text := "good1\n/[/\ngood2\ngood3\n"
	n, err := e.LoadFilterRules(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 valid rules added, got %d", n)
	}
}

func TestConcurrentShouldBlock(t *testing.T) {
	e := NewFilterEngine()
	e.Initialize()

	const threads = 4
	const perThread = 100
	var wg sync.WaitGroup
	var blocked int64
	var mu sync.Mutex

	for th := 0; th < threads; th++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			local := 0
			for i := 0; i < perThread; i++ {
				url := fmt.Sprintf("https://test%d-%d.doubleclick.net/ads", t, i)
				if e.ShouldBlock(url, "", "") {
					local++
				}
			}
			mu.Lock()
			blocked += int64(local)
			mu.Unlock()
		}(th)
	}
	wg.Wait()

	if blocked != threads*perThread {
		t.Errorf("expected all %d queries to block, got %d", threads*perThread, blocked)
	}
}

func TestUpdateFiltersRestoresDefaults(t *testing.T) {
	e := NewFilterEngine()
	e.Initialize()
	if _, err := e.LoadFilterRules("||extra.example.com^"); err != nil {
		t.Fatal(err)
	}
	e.Whitelist("trusted.example.com")

	if !e.UpdateFilters() {
		t.Fatal("UpdateFilters failed")
	}
	if e.ShouldBlock("https://extra.example.com/x", "", "") {
		t.Error("expected extra rule gone after UpdateFilters")
	}
	if !e.ShouldBlock("https://doubleclick.net/ads/script.js", "", "") {
		t.Error("expected default list restored")
	}
}

func TestRuleCountReflectsBuiltinList(t *testing.T) {
	e := NewFilterEngine()
	e.Initialize()
	if e.RuleCount() == 0 {
		t.Error("expected non-zero rule count after loading built-in list")
	}
}

func TestLoadFromSourcesDeterministicOrderAndWhitelist(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/b.txt", "||b.example.com^\n")
	writeFile(t, dir+"/a.txt", "||a.example.com^\n")

	e := NewFilterEngine()
	n, err := e.LoadFromSources([]string{dir + "/*.txt"}, []string{"Trusted.Example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 files loaded, got %d", n)
	}
	if len(e.rules) != 2 || e.rules[0].Pattern() != "||a.example.com^" || e.rules[1].Pattern() != "||b.example.com^" {
		t.Errorf("expected rules in sorted-path order (a.txt before b.txt), got %d rule(s)", len(e.rules))
	}
	if !e.Initialized() {
		t.Error("LoadFromSources should mark the engine initialized")
	}
	if e.ShouldBlock("https://trusted.example.com/x", "", "") {
		t.Error("whitelist domains should be case-insensitive")
	}
}

func TestFormCounts(t *testing.T) {
	e := NewFilterEngine()
	if _, err := e.LoadFilterRules("||anchor.example.com^\n/regex-[0-9]+/\n*wild*\nplain-substring\n@@||allowed.example.com^"); err != nil {
		t.Fatal(err)
	}
	c := e.FormCounts()
	if c.DomainAnchor != 2 { // ||anchor.example.com^ and @@||allowed.example.com^
		t.Errorf("expected 2 domain anchors, got %d", c.DomainAnchor)
	}
	if c.Regex != 1 || c.WildcardRegex != 1 || c.Substring != 1 {
		t.Errorf("got regex=%d wildcard=%d substring=%d", c.Regex, c.WildcardRegex, c.Substring)
	}
	if c.Allow != 1 || c.Block != 4 {
		t.Errorf("expected 1 allow, 4 block rules, got allow=%d block=%d", c.Allow, c.Block)
	}
}

func TestDecideReportsDecidingRule(t *testing.T) {
	e := NewFilterEngine()
	e.Initialize()

	blocked, rule, whitelisted := e.Decide("https://doubleclick.net/ads/script.js", "", "")
	if !blocked || rule == "" || whitelisted {
		t.Errorf("got blocked=%v rule=%q whitelisted=%v", blocked, rule, whitelisted)
	}

	e.Whitelist("trusted.example.com")
	blocked, rule, whitelisted = e.Decide("https://trusted.example.com/x", "", "")
	if blocked || rule != "" || !whitelisted {
		t.Errorf("expected whitelist short-circuit, got blocked=%v rule=%q whitelisted=%v", blocked, rule, whitelisted)
	}
}

func TestLoadFilterRulesLogsDiscardsAndCounts(t *testing.T) {
	dir := t.TempDir()
	errLog, err := logging.NewErrorLogger(dir + "/engine-errors.log")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = errLog.Close() }()

	e := NewFilterEngine()
	e.SetLogger(logging.NewComponentLogger("filter", errLog, nil))

	if _, err := e.LoadFilterRules("good1\n/[/\ngood2\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = errLog.Close()

	data, err := os.ReadFile(dir + "/engine-errors.log")
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "discarded rule at line 2") {
		t.Errorf("expected a warning naming the discarded line, got: %s", content)
	}
	if !strings.Contains(content, "added 2 rule(s)") {
		t.Errorf("expected the added-rule count logged, got: %s", content)
	}
}

func TestInitializeLogsLifecycleTransition(t *testing.T) {
	dir := t.TempDir()
	errLog, err := logging.NewErrorLogger(dir + "/engine-errors.log")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = errLog.Close() }()

	e := NewFilterEngine()
	e.SetLogger(logging.NewComponentLogger("filter", errLog, nil))

	if !e.Initialize() {
		t.Fatal("Initialize failed")
	}
	_ = errLog.Close()

	data, err := os.ReadFile(dir + "/engine-errors.log")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "engine initialized") {
		t.Errorf("expected an initialization log entry, got: %s", string(data))
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
