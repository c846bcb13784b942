package facade

import (
	"os"
	"strings"
	"testing"

	"urlfilter/internal/logging"
)

func reset() {
	mu.Lock()
	engine = nil
	mu.Unlock()
}

func TestFilterURLBeforeInit(t *testing.T) {
	reset()
	if FilterURL("https://doubleclick.net/ads") {
		t.Error("expected fail-open before Init")
	}
}

func TestInitAndFilterURL(t *testing.T) {
	reset()
	defer Shutdown()

	if !Init() {
		t.Fatal("Init failed")
	}
	if !FilterURL("https://doubleclick.net/ads/script.js") {
		t.Error("expected block after Init loads default list")
	}
	if FilterURL("") {
		t.Error("empty url must never block")
	}
}

func TestLoadFilterRulesRequiresInit(t *testing.T) {
	reset()
	defer Shutdown()

	if LoadFilterRules("||ads.example.com^") {
		t.Error("expected false before Init")
	}
	Init()
	if !LoadFilterRules("||ads.example.com^") {
		t.Error("expected true after Init")
	}
	if !FilterURL("https://ads.example.com/x") {
		t.Error("expected newly loaded rule to take effect")
	}
}

func TestClearFiltersRequiresInit(t *testing.T) {
	reset()
	defer Shutdown()

	if ClearFilters() {
		t.Error("expected false before Init")
	}
	Init()
	if !ClearFilters() {
		t.Error("expected true after Init")
	}
	if RuleCount() != 0 {
		t.Errorf("expected 0 rules after clear, got %d", RuleCount())
	}
}

func TestNormalizeAndExtractDomain(t *testing.T) {
	if _, ok := NormalizeURL(""); ok {
		t.Error("empty url should report false")
	}
	if norm, ok := NormalizeURL("HTTPS://Example.COM/x"); !ok || norm == "" {
		t.Error("expected normalized, ok result")
	}
	if _, ok := ExtractDomain(""); ok {
		t.Error("empty url should report false")
	}
	if host, ok := ExtractDomain("https://example.com/x"); !ok || host != "example.com" {
		t.Errorf("got %q, %v", host, ok)
	}
}

func TestReloadRequiresInit(t *testing.T) {
	reset()
	defer Shutdown()

	if Reload(nil, nil) {
		t.Error("expected false before Init")
	}

	Init()
	dir := t.TempDir()
	path := dir + "/list.txt"
	if err := os.WriteFile(path, []byte("||reloaded.example.com^\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Reload([]string{path}, []string{"Trusted.com"}) {
		t.Error("expected true after Init")
	}
	if !FilterURL("https://reloaded.example.com/x") {
		t.Error("expected reloaded rule to take effect")
	}
	if FilterURL("https://doubleclick.net/ads") {
		t.Error("Reload should fully replace the prior rule set")
	}
}

func TestReloadAllBuildsDefaultsPlusSources(t *testing.T) {
	reset()
	defer Shutdown()

	dir := t.TempDir()
	path := dir + "/list.txt"
	if err := os.WriteFile(path, []byte("||extra.example.com^\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !ReloadAll(false, []string{path}, []string{"Trusted.com"}) {
		t.Fatal("expected ReloadAll to succeed")
	}
	if !FilterURL("https://doubleclick.net/ads/script.js") {
		t.Error("expected default list rule still present")
	}
	if !FilterURL("https://extra.example.com/x") {
		t.Error("expected configured source rule to take effect")
	}
	if FilterURL("https://trusted.com/x") {
		t.Error("expected config whitelist entry to bypass filtering")
	}
}

func TestReloadAllDisableDefault(t *testing.T) {
	reset()
	defer Shutdown()

	if !ReloadAll(true, nil, nil) {
		t.Fatal("expected ReloadAll to succeed with no sources")
	}
	if FilterURL("https://doubleclick.net/ads/script.js") {
		t.Error("expected default list to be absent when disabled")
	}
}

func TestDecideReportsMatchedRule(t *testing.T) {
	reset()
	defer Shutdown()
	Init()

	blocked, rule, whitelisted := Decide("https://doubleclick.net/ads/script.js", "", "")
	if !blocked || rule == "" || whitelisted {
		t.Errorf("got blocked=%v rule=%q whitelisted=%v", blocked, rule, whitelisted)
	}

	blocked, rule, whitelisted = Decide("https://github.com/user/repo", "", "")
	if blocked || whitelisted || rule == "" {
		t.Errorf("expected github.com to be allowed by its @@ rule, got blocked=%v rule=%q whitelisted=%v", blocked, rule, whitelisted)
	}
}

func TestShutdownResetsState(t *testing.T) {
	reset()
	Init()
	LoadFilterRules("||ads.example.com^")
	Shutdown()
	if RuleCount() != 0 {
		t.Error("expected 0 rule count after Shutdown")
	}
	if FilterURL("https://ads.example.com/x") {
		t.Error("expected fail-open after Shutdown")
	}
}

func TestSetLoggerReportsLifecycleAndLoads(t *testing.T) {
	reset()
	defer Shutdown()
	defer SetLogger(logging.NewComponentLogger("facade", nil, nil))

	dir := t.TempDir()
	errLog, err := logging.NewErrorLogger(dir + "/facade-errors.log")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = errLog.Close() }()

	SetLogger(logging.NewComponentLogger("facade", errLog, nil))

	if !Init() {
		t.Fatal("Init failed")
	}
	if !LoadFilterRules("||ads.example.com^") {
		t.Fatal("LoadFilterRules failed")
	}
	Shutdown()
	_ = errLog.Close()

	data, err := os.ReadFile(dir + "/facade-errors.log")
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "init: facade ready") {
		t.Errorf("expected Init transition logged, got: %s", content)
	}
	if !strings.Contains(content, "added 1 rule(s)") {
		t.Errorf("expected LoadFilterRules count logged via the engine logger, got: %s", content)
	}
	if !strings.Contains(content, "shutdown: facade engine dropped") {
		t.Errorf("expected Shutdown transition logged, got: %s", content)
	}
}
