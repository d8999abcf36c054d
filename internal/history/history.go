// Package history maintains a searchable in-memory index over historical
// agent session transcripts.
//
// The corpus layout is owned by the agent CLI: a flat append-only
// history.jsonl of prompt records, plus one transcript file per session
// under projects/<encoded-project>/<session-id>.jsonl, where the encoding
// replaces every path separator in the project path with '-'.
//
// The index is rebuilt lazily and wholesale, never incrementally. A
// rebuild is a critical section: the fresh entry map is swapped in
// atomically at the end of the build, so concurrent searches either see
// the previous complete snapshot or the new one, never a torn map.
package history

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/drydock-sh/drydock/internal/errors"
	"github.com/drydock-sh/drydock/internal/logger"
)

const (
	// HistoryLogName is the append-only prompt log inside the corpus root.
	HistoryLogName = "history.jsonl"
	// projectsDirName holds per-session transcript files.
	projectsDirName = "projects"
	// defaultSlugLength is how much of the session id stands in for a
	// missing slug.
	defaultSlugLength = 8

	// maxLineSize allows large transcript payloads (pasted logs, file
	// contents) without losing the line.
	maxLineSize = 4 * 1024 * 1024
)

// Entry is one indexed session. Entries are owned by the Index and
// replaced wholesale on rebuild; queries hand out copies, never aliases.
type Entry struct {
	SessionID      string
	ProjectPath    string
	Slug           string
	GitBranch      string
	FirstMessage   string
	Summaries      []string
	LastActivityAt time.Time
}

// Index maps session ids to entries built from the on-disk corpus.
type Index struct {
	root string

	// buildMu serializes rebuilds; mu guards the snapshot swap.
	buildMu sync.Mutex
	mu      sync.RWMutex

	entries    map[string]Entry
	built      bool
	lastBuilt  time.Time
	generation uint64
}

// NewIndex creates an index over the corpus rooted at root (typically the
// agent CLI's home directory). No I/O happens until the first rebuild.
func NewIndex(root string) *Index {
	return &Index{root: root}
}

// historyLogPath returns the path of the append-only prompt log.
func (ix *Index) historyLogPath() string {
	return filepath.Join(ix.root, HistoryLogName)
}

// Generation returns the number of completed builds.
func (ix *Index) Generation() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.generation
}

// LastBuilt returns the completion time of the previous build, zero when
// never built.
func (ix *Index) LastBuilt() time.Time {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.lastBuilt
}

// Len returns the number of indexed sessions.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// RebuildIfStale rebuilds when the index has never been built or the
// history log has been modified since the previous build finished.
func (ix *Index) RebuildIfStale() error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	ix.mu.RLock()
	built, lastBuilt := ix.built, ix.lastBuilt
	ix.mu.RUnlock()

	if built {
		st, err := os.Stat(ix.historyLogPath())
		if err != nil {
			// Log gone since the last build; keep serving the previous
			// snapshot rather than dropping sessions mid-flight.
			return nil
		}
		if !st.ModTime().After(lastBuilt) {
			return nil
		}
	}
	return ix.rebuildLocked()
}

// Rebuild unconditionally rebuilds the index.
func (ix *Index) Rebuild() error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()
	return ix.rebuildLocked()
}

// rebuildLocked performs a build. Caller holds buildMu. A failed build
// leaves the previous snapshot in place.
func (ix *Index) rebuildLocked() error {
	start := time.Now()
	entries, err := ix.buildEntries()
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.entries = entries
	ix.built = true
	ix.lastBuilt = time.Now()
	ix.generation++
	gen := ix.generation
	ix.mu.Unlock()

	logger.Info("history: index build #%d complete, %d sessions in %v", gen, len(entries), time.Since(start))
	return nil
}

// historyRecord is one line of history.jsonl. Timestamps are epoch
// milliseconds.
type historyRecord struct {
	Display   string `json:"display"`
	Timestamp int64  `json:"timestamp"`
	Project   string `json:"project"`
	SessionID string `json:"sessionId"`
}

// buildEntries parses the corpus into a fresh entry map. Missing sources
// degrade: an absent log yields an empty index, an unparseable line is
// skipped, a missing transcript leaves the entry with defaults. A log that
// exists but cannot be read is a build failure, not a silently empty
// index.
func (ix *Index) buildEntries() (map[string]Entry, error) {
	entries := make(map[string]Entry)

	f, err := os.Open(ix.historyLogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, errors.IndexBuildFailed(ix.historyLogPath(), err)
	}
	defer f.Close()

	// Group records by session while remembering the earliest record for
	// the first message and the latest for recency.
	type group struct {
		project  string
		earliest historyRecord
		latest   int64
	}
	groups := make(map[string]*group)
	var order []string

	scanner := newLineScanner(f)
	for scanner.Scan() {
		var rec historyRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			logger.Warn("history: skipping malformed history line: %v", err)
			continue
		}
		if rec.SessionID == "" {
			continue
		}
		g, ok := groups[rec.SessionID]
		if !ok {
			g = &group{project: rec.Project, earliest: rec, latest: rec.Timestamp}
			groups[rec.SessionID] = g
			order = append(order, rec.SessionID)
			continue
		}
		if rec.Timestamp < g.earliest.Timestamp {
			g.earliest = rec
		}
		if rec.Timestamp > g.latest {
			g.latest = rec.Timestamp
		}
		if g.project == "" {
			g.project = rec.Project
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IndexBuildFailed(ix.historyLogPath(), err)
	}

	for _, sessionID := range order {
		g := groups[sessionID]
		entry := Entry{
			SessionID:      sessionID,
			ProjectPath:    g.project,
			Slug:           defaultSlug(sessionID),
			FirstMessage:   g.earliest.Display,
			LastActivityAt: time.UnixMilli(g.latest),
		}
		ix.applyTranscript(&entry)
		entries[sessionID] = entry
	}
	return entries, nil
}

// transcriptRecord is one line of a per-session transcript file. Only the
// fields the index cares about are decoded.
type transcriptRecord struct {
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	Slug      string `json:"slug"`
	GitBranch string `json:"gitBranch"`
}

// applyTranscript overlays slug, branch, and summaries from the session's
// transcript file. A missing or unreadable file leaves the defaults in
// place; that is a normal state for sessions whose transcripts were
// cleaned up.
func (ix *Index) applyTranscript(entry *Entry) {
	path := ix.transcriptPath(entry.ProjectPath, entry.SessionID)
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := newLineScanner(f)
	for scanner.Scan() {
		var rec transcriptRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.Slug != "" && entry.Slug == defaultSlug(entry.SessionID) {
			entry.Slug = rec.Slug
		}
		if rec.GitBranch != "" && entry.GitBranch == "" {
			entry.GitBranch = rec.GitBranch
		}
		if rec.Type == "summary" && rec.Summary != "" {
			entry.Summaries = append(entry.Summaries, rec.Summary)
		}
	}
}

// transcriptPath locates a session's transcript by the CLI's deterministic
// project-path encoding: every path separator becomes '-'.
func (ix *Index) transcriptPath(projectPath, sessionID string) string {
	return filepath.Join(ix.root, projectsDirName, EncodeProjectPath(projectPath), sessionID+".jsonl")
}

// EncodeProjectPath converts a project path into the directory name the
// CLI stores its transcripts under.
func EncodeProjectPath(projectPath string) string {
	encoded := strings.ReplaceAll(projectPath, "/", "-")
	return strings.ReplaceAll(encoded, "\\", "-")
}

// defaultSlug is the short session-id prefix used when a transcript
// provides no slug.
func defaultSlug(sessionID string) string {
	if len(sessionID) <= defaultSlugLength {
		return sessionID
	}
	return sessionID[:defaultSlugLength]
}

func newLineScanner(f *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return scanner
}
