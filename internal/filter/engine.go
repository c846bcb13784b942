package filter

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"urlfilter/internal/logging"
	"urlfilter/internal/urlutil"
)

//go:embed default_rules.txt
var defaultRulesText string

// FilterEngine holds a compiled rule set and a domain whitelist, and decides
// whether a (url, document_url, resource_type) triple should be blocked.
//
// Reads (ShouldBlock, RuleCount) and writes (LoadFilterRules, ClearFilters,
// UpdateFilters) are serialized against each other with a sync.RWMutex
// rather than one exclusive lock: Rules are immutable once constructed, so
// concurrent readers can safely range over the same rules slice. Writers
// build a new slice and swap engine.rules under the write lock rather than
// mutating it element-wise, so no reader ever observes a partially-updated
// set.
type FilterEngine struct {
	mu                 sync.RWMutex
	rules              []*Rule
	whitelistedDomains map[string]struct{}
	initialized        bool
	logger             *logging.ComponentLogger
}

// NewFilterEngine returns an uninitialized engine. Call Initialize before
// any ShouldBlock query; per the fail-open policy, queries before
// initialization simply return false rather than panicking or erroring.
func NewFilterEngine() *FilterEngine {
	return &FilterEngine{
		whitelistedDomains: make(map[string]struct{}),
		logger:             logging.NewComponentLogger("filter", nil, nil),
	}
}

// SetLogger replaces the engine's ComponentLogger. A nil ComponentLogger
// receiver is safe to call methods on, so callers that never wire a real
// error log or dispatcher can leave the default in place.
func (e *FilterEngine) SetLogger(l *logging.ComponentLogger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = l
}

// log returns the current ComponentLogger under the read lock, so callers
// never race SetLogger.
func (e *FilterEngine) log() *logging.ComponentLogger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.logger
}

// Initialize is idempotent: the first call loads the embedded default list
// and marks the engine initialized; subsequent calls are no-ops that
// return true. Returns false only if the default list somehow yields zero
// rules.
func (e *FilterEngine) Initialize() bool {
	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return true
	}
	e.mu.Unlock()

	if _, err := e.LoadFilterRules(defaultRulesText); err != nil {
		e.log().Warnf("initialize: failed to load default rules: %v", err)
		return false
	}

	e.mu.Lock()
	e.initialized = true
	e.mu.Unlock()
	e.log().Infof("engine initialized")
	return true
}

// LoadFilterRules splits text on newlines, parses each line, and appends
// every valid Rule to the engine's rule set. It fails only if zero new
// valid rules were produced; on success it returns the count added.
func (e *FilterEngine) LoadFilterRules(text string) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("filter: empty filter content")
	}

	logger := e.log()

	var added []*Rule
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		rule := ParseRule(line)
		if rule == nil {
			continue
		}
		if !rule.Valid() {
			logger.Warnf("discarded rule at line %d: %q", i+1, line)
			continue
		}
		added = append(added, rule)
	}

	if len(added) == 0 {
		logger.Warnf("load_filter_rules: no valid rules in filter content")
		return 0, fmt.Errorf("filter: no valid rules in filter content")
	}

	e.mu.Lock()
	e.rules = append(append([]*Rule(nil), e.rules...), added...)
	e.mu.Unlock()

	logger.Infof("load_filter_rules: added %d rule(s)", len(added))
	return len(added), nil
}

// LoadFromSources loads filter list files matched by the glob patterns in
// listPaths (supporting ** via doublestar), in sorted path order so that
// loading is deterministic, and populates the whitelist from
// whitelistDomains. Returns the number of rule files read.
func (e *FilterEngine) LoadFromSources(listPaths []string, whitelistDomains []string) (int, error) {
	var files []string
	seen := make(map[string]struct{})
	for _, pattern := range listPaths {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return 0, fmt.Errorf("filter: invalid list pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)

	filesLoaded := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return filesLoaded, fmt.Errorf("filter: reading %s: %w", path, err)
		}
		if _, err := e.LoadFilterRules(string(data)); err != nil {
			return filesLoaded, fmt.Errorf("filter: loading %s: %w", path, err)
		}
		filesLoaded++
	}

	e.mu.Lock()
	for _, d := range whitelistDomains {
		e.whitelistedDomains[strings.ToLower(d)] = struct{}{}
	}
	e.initialized = true
	e.mu.Unlock()

	return filesLoaded, nil
}

// ShouldBlock reports whether the request should be blocked. It is
// fail-open: an uninitialized engine or an empty url always returns false.
func (e *FilterEngine) ShouldBlock(url, docURL, typeStr string) bool {
	blocked, _, _ := e.Decide(url, docURL, typeStr)
	return blocked
}

// Decide is ShouldBlock plus the diagnostic detail a CLI or decision log
// wants: whether a whitelist entry short-circuited the scan, and the
// pattern text of whichever rule decided the outcome (the allow rule that
// broke the scan, or the last block rule matched; empty if nothing matched).
func (e *FilterEngine) Decide(url, docURL, typeStr string) (blocked bool, matchedRule string, whitelisted bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized || url == "" {
		return false, "", false
	}

	norm := urlutil.Normalize(url)
	host := urlutil.ExtractDomain(norm)

	if _, ok := e.whitelistedDomains[host]; ok {
		return false, "", true
	}

	resType := ParseResourceType(typeStr)

	anyBlock := false
	anyAllow := false
	var decidingRule string
	for _, rule := range e.rules {
		if !rule.Matches(norm, docURL, resType) {
			continue
		}
		if rule.Kind() == KindAllow {
			anyAllow = true
			decidingRule = rule.Pattern()
			break
		}
		anyBlock = true
		decidingRule = rule.Pattern()
	}

	return anyBlock && !anyAllow, decidingRule, false
}

// UpdateFilters clears the rule set and whitelist, then reloads the
// embedded default list.
func (e *FilterEngine) UpdateFilters() bool {
	e.ClearFilters()
	_, err := e.LoadFilterRules(defaultRulesText)
	return err == nil
}

// ClearFilters empties the rule set and whitelist. It leaves the
// initialized flag untouched.
func (e *FilterEngine) ClearFilters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = nil
	e.whitelistedDomains = make(map[string]struct{})
}

// FormCounts summarizes the currently loaded rule set for diagnostics: how
// many rules take each pattern form, and how many are Block vs Allow.
type FormCounts struct {
	DomainAnchor  int
	Regex         int
	WildcardRegex int
	Substring     int
	Block         int
	Allow         int
}

// FormCounts returns a snapshot of the current rule set's shape.
func (e *FilterEngine) FormCounts() FormCounts {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var c FormCounts
	for _, r := range e.rules {
		switch r.form.kind {
		case formDomainAnchor:
			c.DomainAnchor++
		case formRegex:
			c.Regex++
		case formWildcardRegex:
			c.WildcardRegex++
		case formSubstring:
			c.Substring++
		}
		if r.kind == KindAllow {
			c.Allow++
		} else {
			c.Block++
		}
	}
	return c
}

// RuleCount returns the number of compiled rules currently held.
func (e *FilterEngine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Initialized reports whether Initialize or LoadFromSources has run.
func (e *FilterEngine) Initialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized
}

// Whitelist adds a host to the set that always bypasses filtering.
func (e *FilterEngine) Whitelist(host string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.whitelistedDomains[strings.ToLower(host)] = struct{}{}
}
