package run

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

var traceFileSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// TraceEntry is one JSONL line of a run trace.
type TraceEntry struct {
	Timestamp string         `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Source    string         `json:"source"`
	Stage     string         `json:"stage"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// TraceLogger appends run-scoped entries to <dir>/<run>.jsonl.
type TraceLogger struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func DefaultTraceDir() string {
	return filepath.Join("tmp", "run_logs")
}

func NewTraceLogger(dir string) *TraceLogger {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultTraceDir()
	}
	return &TraceLogger{dir: dir, now: time.Now}
}

func (l *TraceLogger) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

func traceFileName(runID string) string {
	id := traceFileSanitizer.ReplaceAllString(strings.TrimSpace(runID), "_")
	if id == "" || strings.Trim(id, ".") == "" {
		return "unknown.jsonl"
	}
	return id + ".jsonl"
}

// Append writes one entry. A nil logger or an empty run id is a no-op.
func (l *TraceLogger) Append(runID, source, stage string, fields map[string]any) error {
	runID = strings.TrimSpace(runID)
	if l == nil || runID == "" {
		return nil
	}
	entry := TraceEntry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		RunID:     runID,
		Source:    strings.TrimSpace(source),
		Stage:     strings.TrimSpace(stage),
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode trace entry: %w", err)
	}
	raw = append(raw, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create trace dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(l.dir, traceFileName(runID)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(raw); err != nil {
		return fmt.Errorf("write trace file: %w", err)
	}
	return nil
}

// Read returns the entries recorded for runID, oldest first. Lines that do
// not decode are skipped.
func (l *TraceLogger) Read(runID string) ([]TraceEntry, error) {
	if l == nil {
		return nil, nil
	}
	f, err := os.Open(filepath.Join(l.dir, traceFileName(runID)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []TraceEntry{}, nil
		}
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()

	out := make([]TraceEntry, 0, 32)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var entry TraceEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan trace file: %w", err)
	}
	return out, nil
}
