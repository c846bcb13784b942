// Package facade exposes a small, stable, process-wide API over a single
// filter.FilterEngine, mirroring the native-bridge boundary it is modeled
// on: every call is null-safe and fails open rather than panicking or
// surfacing an error, and lifecycle transitions are serialized behind one
// guard independent of the engine's own locking.
package facade

import (
	"sync"

	"urlfilter/internal/filter"
	"urlfilter/internal/logging"
	"urlfilter/internal/urlutil"
)

var (
	mu     sync.Mutex
	engine *filter.FilterEngine
	logger = logging.NewComponentLogger("facade", nil, nil)
)

// SetLogger replaces the facade's ComponentLogger and, if an engine already
// exists, the engine's as well, so lifecycle and rule-load logging keep
// flowing through whatever error log/dispatcher the caller wires in. A nil
// ComponentLogger receiver is safe to call, so the package-level default
// (no error log, no dispatcher) is a harmless no-op until a caller sets one.
func SetLogger(l *logging.ComponentLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
	if engine != nil {
		engine.SetLogger(logger)
	}
}

// Init creates the process-wide engine if absent and initializes it.
// Idempotent: calling Init again is a no-op that returns true as long as an
// engine already exists.
func Init() bool {
	mu.Lock()
	defer mu.Unlock()

	if engine == nil {
		engine = filter.NewFilterEngine()
		engine.SetLogger(logger)
	}
	ok := engine.Initialize()
	if ok {
		logger.Infof("init: facade ready")
	} else {
		logger.Warnf("init: engine initialization failed")
	}
	return ok
}

// LoadFilterRules loads additional filter list text into the engine.
// Returns false if the facade has not been initialized or if no valid
// rules were added.
func LoadFilterRules(text string) bool {
	mu.Lock()
	e := engine
	mu.Unlock()

	if e == nil || text == "" {
		return false
	}
	_, err := e.LoadFilterRules(text)
	return err == nil
}

// FilterURL reports whether url should be blocked. Returns false
// (fail-open) if the facade has not been initialized or url is empty.
func FilterURL(url string) bool {
	mu.Lock()
	e := engine
	mu.Unlock()

	if e == nil || url == "" {
		return false
	}
	return e.ShouldBlock(url, "", "")
}

// FilterURLWithContext reports whether url should be blocked, given the
// originating document URL and a resource-type string (both may be empty).
// Returns false (fail-open) if the facade has not been initialized or url
// is empty.
func FilterURLWithContext(url, docURL, resType string) bool {
	mu.Lock()
	e := engine
	mu.Unlock()

	if e == nil || url == "" {
		return false
	}
	return e.ShouldBlock(url, docURL, resType)
}

// Decide reports whether url should be blocked, the pattern text of the
// deciding rule (empty if none matched), and whether a whitelist entry
// short-circuited the scan. Fails open (false, "", false) if the facade has
// not been initialized or url is empty.
func Decide(url, docURL, resType string) (blocked bool, matchedRule string, whitelisted bool) {
	mu.Lock()
	e := engine
	mu.Unlock()

	if e == nil || url == "" {
		return false, "", false
	}
	return e.Decide(url, docURL, resType)
}

// ClearFilters empties the engine's rule set and whitelist. Returns false
// if the facade has not been initialized.
func ClearFilters() bool {
	mu.Lock()
	e := engine
	mu.Unlock()

	if e == nil {
		return false
	}
	e.ClearFilters()
	return true
}

// NormalizeURL returns the canonicalized form of url, or "", false if url
// is empty.
func NormalizeURL(url string) (string, bool) {
	if url == "" {
		return "", false
	}
	return urlutil.Normalize(url), true
}

// ExtractDomain returns the host portion of url, or "", false if url is
// empty.
func ExtractDomain(url string) (string, bool) {
	if url == "" {
		return "", false
	}
	return urlutil.ExtractDomain(url), true
}

// Reload atomically replaces the engine: it builds a fresh engine from only
// the given sources (no embedded defaults) and swaps it in. The old rules
// remain visible to concurrent FilterURL callers until the new load
// completes, so there is never a window where ShouldBlock sees a
// half-cleared rule set. Returns false if the facade has not been
// initialized.
func Reload(listPaths []string, whitelistDomains []string) bool {
	mu.Lock()
	e := engine
	l := logger
	mu.Unlock()

	if e == nil {
		return false
	}

	fresh := filter.NewFilterEngine()
	fresh.SetLogger(l)
	if _, err := fresh.LoadFromSources(listPaths, whitelistDomains); err != nil {
		return false
	}

	mu.Lock()
	engine = fresh
	mu.Unlock()
	return true
}

// ReloadAll rebuilds the process-wide engine from scratch: the embedded
// default list (unless disableDefault), followed by every filter list file
// matched by listPaths, followed by whitelistDomains. Unlike Reload (which
// requires an existing engine and replaces it with only the given sources,
// dropping the defaults), ReloadAll can
// also serve as the first build of the engine, which is what the CLI and
// the list watcher want: "defaults plus configured sources", rebuilt
// identically on every call. Returns false if building the fresh engine
// failed: the default list could not be loaded, or a configured glob
// pattern/file could not be read.
func ReloadAll(disableDefault bool, listPaths []string, whitelistDomains []string) bool {
	mu.Lock()
	l := logger
	mu.Unlock()

	fresh := filter.NewFilterEngine()
	fresh.SetLogger(l)
	if !disableDefault && !fresh.Initialize() {
		return false
	}
	if _, err := fresh.LoadFromSources(listPaths, whitelistDomains); err != nil {
		return false
	}

	mu.Lock()
	engine = fresh
	mu.Unlock()
	return true
}

// Shutdown drops the process-wide engine and marks the facade
// uninitialized. Idempotent.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	logger.Infof("shutdown: facade engine dropped")
	engine = nil
}

// RuleCount returns the current engine's rule count, or 0 if uninitialized.
func RuleCount() int {
	mu.Lock()
	e := engine
	mu.Unlock()

	if e == nil {
		return 0
	}
	return e.RuleCount()
}

// Stats returns the current engine's pattern-form/kind breakdown. Returns
// the zero value if uninitialized.
func Stats() filter.FormCounts {
	mu.Lock()
	e := engine
	mu.Unlock()

	if e == nil {
		return filter.FormCounts{}
	}
	return e.FormCounts()
}
