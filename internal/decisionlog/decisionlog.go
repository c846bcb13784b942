// Package decisionlog records one structured entry per filtering decision to
// a rotating, gzip-archiving set of JSON-lines files.
package decisionlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	logFilePrefix = "decisions"
	logFileSuffix = ".jsonl"
	archiveSuffix = ".jsonl.gz"
)

// Action is the outcome recorded for a filtering decision.
type Action string

const (
	ActionBlock Action = "block"
	ActionAllow Action = "allow"
)

// Entry is one filtering decision.
type Entry struct {
	Timestamp    time.Time `json:"ts"`
	RequestID    string    `json:"request_id"`
	URL          string    `json:"url"`
	DocumentURL  string    `json:"document_url,omitempty"`
	ResourceType string    `json:"resource_type,omitempty"`
	Action       Action    `json:"action"`
	MatchedRule  string    `json:"matched_rule,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// Logger writes decision Entries to rotating files under Dir.
type Logger struct {
	w *RotatingFileWriter
}

// NewLogger creates a Logger writing to dir.
func NewLogger(dir string) (*Logger, error) {
	w, err := NewRotatingFileWriter(RotatingFileWriterConfig{
		Dir:           dir,
		Prefix:        logFilePrefix,
		Suffix:        logFileSuffix,
		ArchiveSuffix: archiveSuffix,
	})
	if err != nil {
		return nil, err
	}
	return &Logger{w: w}, nil
}

// Log appends one decision entry, stamping it with a fresh request ID if
// entry.RequestID is empty.
func (l *Logger) Log(entry Entry) error {
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("decisionlog: marshal entry: %w", err)
	}
	data = append(data, '\n')

	_, err = l.w.Write(data)
	return err
}

// CurrentPath returns the path of the active log file.
func (l *Logger) CurrentPath() string {
	return l.w.CurrentPath()
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	return l.w.Close()
}
