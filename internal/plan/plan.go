// Package plan extracts orchestration plans the agent embeds in its own
// free-form output.
//
// When asked to fan work out across sessions, the agent answers with prose
// that contains, somewhere, a JSON plan describing the sessions to spawn.
// The surrounding text is uncontrolled: the plan may sit between dedicated
// marker tags, inside a markdown code fence, or bare in the prose. A chain
// of extraction strategies is tried in order and the first candidate that
// survives a strict decode wins.
package plan

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// SessionType classifies how an orchestrated session should be run.
type SessionType string

const (
	// SessionParallel is a normal work session, merged when done.
	SessionParallel SessionType = "parallel"
	// SessionPrototype is a throwaway spike; the branch is not merged.
	SessionPrototype SessionType = "prototype"
	// SessionExploration is read-only investigation.
	SessionExploration SessionType = "exploration"
)

// normalize maps absent or unrecognized session types to SessionParallel.
// Unknown types from newer agents degrade gracefully instead of failing
// the whole plan.
func (t SessionType) normalize() SessionType {
	switch t {
	case SessionParallel, SessionPrototype, SessionExploration:
		return t
	default:
		return SessionParallel
	}
}

// Session is one planned agent session. BranchName is the identity key
// within a plan.
type Session struct {
	Description string      `json:"description"`
	BranchName  string      `json:"branchName"`
	SessionType SessionType `json:"sessionType"`
	Prompt      string      `json:"prompt"`
}

// Plan is a multi-session execution plan for one module.
type Plan struct {
	ModulePath string    `json:"modulePath"`
	Sessions   []Session `json:"sessions"`
}

// decodePlan strictly decodes one candidate. The candidate is sanitized
// with jsonc first, since agents occasionally decorate embedded JSON with
// comments or trailing commas. Both top-level keys must be present.
func decodePlan(candidate string) (*Plan, error) {
	data := jsonc.ToJSON([]byte(candidate))

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("plan candidate is not a JSON object: %w", err)
	}
	if _, ok := probe["modulePath"]; !ok {
		return nil, fmt.Errorf("plan candidate missing modulePath")
	}
	if _, ok := probe["sessions"]; !ok {
		return nil, fmt.Errorf("plan candidate missing sessions")
	}

	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	for i := range p.Sessions {
		p.Sessions[i].SessionType = p.Sessions[i].SessionType.normalize()
	}
	return &p, nil
}
