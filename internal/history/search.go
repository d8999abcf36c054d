package history

import (
	"sort"
	"strings"
)

// Field names which entry attribute a search hit matched on.
type Field string

const (
	FieldSlug         Field = "slug"
	FieldProjectPath  Field = "project"
	FieldGitBranch    Field = "branch"
	FieldSummary      Field = "summary"
	FieldFirstMessage Field = "message"
)

// SearchResult is a matched entry plus where the match landed. The entry
// is copied out of the index snapshot, so results stay valid across
// rebuilds.
type SearchResult struct {
	Entry
	MatchedField Field
	MatchedText  string
}

// Search returns entries matching query, case-insensitively, against one
// field per entry in priority order: slug, project path, git branch,
// summaries, first message. An entry appears at most once, attributed to
// the highest-priority field that matched.
//
// pathFilter, when non-empty, restricts results to entries whose project
// path contains it (also case-insensitive). An empty query matches
// nothing.
//
// Results are ordered by last activity, most recent first, with session
// id as a deterministic tie-break.
func (ix *Index) Search(query, pathFilter string) []SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	pathFilter = strings.ToLower(strings.TrimSpace(pathFilter))

	ix.mu.RLock()
	snapshot := ix.entries
	ix.mu.RUnlock()

	var results []SearchResult
	for _, entry := range snapshot {
		if pathFilter != "" && !strings.Contains(strings.ToLower(entry.ProjectPath), pathFilter) {
			continue
		}
		field, text, ok := matchEntry(entry, query)
		if !ok {
			continue
		}
		results = append(results, SearchResult{Entry: entry, MatchedField: field, MatchedText: text})
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].LastActivityAt.Equal(results[j].LastActivityAt) {
			return results[i].LastActivityAt.After(results[j].LastActivityAt)
		}
		return results[i].SessionID < results[j].SessionID
	})
	return results
}

// matchEntry checks the entry's fields in priority order and reports the
// first hit.
func matchEntry(entry Entry, query string) (Field, string, bool) {
	if strings.Contains(strings.ToLower(entry.Slug), query) {
		return FieldSlug, entry.Slug, true
	}
	if strings.Contains(strings.ToLower(entry.ProjectPath), query) {
		return FieldProjectPath, entry.ProjectPath, true
	}
	if strings.Contains(strings.ToLower(entry.GitBranch), query) {
		return FieldGitBranch, entry.GitBranch, true
	}
	for _, summary := range entry.Summaries {
		if strings.Contains(strings.ToLower(summary), query) {
			return FieldSummary, summary, true
		}
	}
	if strings.Contains(strings.ToLower(entry.FirstMessage), query) {
		return FieldFirstMessage, entry.FirstMessage, true
	}
	return "", "", false
}
