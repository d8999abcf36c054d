package plan

import (
	"strings"

	"github.com/drydock-sh/drydock/internal/logger"
)

// Marker tags the agent is prompted to wrap plans in.
const (
	OpenMarker  = "<orchestration-plan>"
	CloseMarker = "</orchestration-plan>"
)

// requiredKeys must both appear in a candidate before it is worth a decode
// attempt. This is a cheap structural filter, not validation; decodePlan
// does the real checking.
var requiredKeys = []string{`"modulePath"`, `"sessions"`}

// strategy locates one candidate JSON span in accumulated text. Strategies
// are total: they return "", false rather than failing.
type strategy func(text string) (candidate string, ok bool)

// strategies are tried in order; the first candidate that decodes wins.
var strategies = []struct {
	name string
	fn   strategy
}{
	{"marker", markerCandidate},
	{"fence", fenceCandidate},
	{"brace-scan", braceCandidate},
}

// Extract runs the strategy chain over text and returns the first plan
// that decodes, or nil when the text contains no plan. Decode failures are
// expected (the agent may merely be discussing plans) and never surface as
// errors.
func Extract(text string) *Plan {
	for _, s := range strategies {
		candidate, ok := s.fn(text)
		if !ok {
			continue
		}
		p, err := decodePlan(candidate)
		if err != nil {
			logger.Debug("plan: %s candidate failed decode: %v", s.name, err)
			continue
		}
		logger.Info("plan: extracted via %s strategy, %d sessions", s.name, len(p.Sessions))
		return p
	}
	return nil
}

// Extractor accumulates one assistant turn's text and extracts at most one
// plan per turn. Feeding must follow block order; the extractor assumes
// in-order delivery (see the stream package).
type Extractor struct {
	buf      strings.Builder
	produced bool
}

// NewExtractor returns an extractor positioned at the start of a turn.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// BeginTurn discards the accumulated text and re-arms extraction.
func (e *Extractor) BeginTurn() {
	e.buf.Reset()
	e.produced = false
}

// Append adds the next text block and returns a plan the first time one
// becomes extractable in this turn. Once a plan has been produced, further
// growth of the same turn never yields a second one.
func (e *Extractor) Append(text string) *Plan {
	e.buf.WriteString(text)
	if e.produced {
		return nil
	}
	p := Extract(e.buf.String())
	if p != nil {
		e.produced = true
	}
	return p
}

// Produced reports whether this turn already yielded a plan.
func (e *Extractor) Produced() bool {
	return e.produced
}

// markerCandidate returns the span between the plan markers, with an
// optional surrounding code fence stripped.
func markerCandidate(text string) (string, bool) {
	start := strings.Index(text, OpenMarker)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(OpenMarker):]
	end := strings.Index(rest, CloseMarker)
	if end < 0 {
		return "", false
	}
	return stripFence(rest[:end]), true
}

// fenceCandidate scans markdown code fences for a body that looks like a
// plan object.
func fenceCandidate(text string) (string, bool) {
	for rest := text; ; {
		open := strings.Index(rest, "```")
		if open < 0 {
			return "", false
		}
		rest = rest[open+3:]
		// Skip the info string ("json", "jsonc", ...) on the fence line.
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return "", false
		}
		body := rest[nl+1:]
		closing := strings.Index(body, "```")
		if closing < 0 {
			return "", false
		}
		candidate := strings.TrimSpace(body[:closing])
		if strings.HasPrefix(candidate, "{") && containsRequiredKeys(candidate) {
			return candidate, true
		}
		rest = body[closing+3:]
	}
}

// braceCandidate scans the raw text for a balanced {...} span carrying
// both required keys, without relying on fences or markers. Braces inside
// JSON strings are skipped.
func braceCandidate(text string) (string, bool) {
	for from := 0; ; {
		open := strings.IndexByte(text[from:], '{')
		if open < 0 {
			return "", false
		}
		open += from

		end := matchBrace(text, open)
		if end < 0 {
			// This opener never closes (a stray brace in prose); an
			// opener after it can still balance on its own.
			from = open + 1
			continue
		}
		span := text[open : end+1]
		if containsRequiredKeys(span) {
			return span, true
		}
		from = end + 1
	}
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(text string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func containsRequiredKeys(s string) bool {
	for _, key := range requiredKeys {
		if !strings.Contains(s, key) {
			return false
		}
	}
	return true
}

// stripFence removes a surrounding markdown code fence, if present.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	body := s[nl+1:]
	if closing := strings.LastIndex(body, "```"); closing >= 0 {
		body = body[:closing]
	}
	return strings.TrimSpace(body)
}
