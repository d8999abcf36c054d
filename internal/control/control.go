// Package control tracks the tool-approval handshake layered on the agent
// event stream.
//
// A control_request line asks the host for a decision (may the agent run
// this tool, or run this hook). Each outstanding request moves through a
// two-state machine, Pending then Resolved, correlated by its request id.
// Resolution writes exactly one control_response line to the reply sink;
// a second decision for a given id writes nothing and yields a KindControl
// error (or a panic in strict mode, to make the misuse loud during
// development).
//
// Requests with an unrecognized subtype are auto-denied: silently allowing
// a tool use we cannot even parse is not safe.
package control

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/drydock-sh/drydock/internal/errors"
	"github.com/drydock-sh/drydock/internal/jsonval"
	"github.com/drydock-sh/drydock/internal/logger"
	"github.com/drydock-sh/drydock/internal/protocol"
)

// Behavior is the caller's decision on a can_use_tool request.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorDeny  Behavior = "deny"
)

// interactiveTools always require the user regardless of any auto-approval
// policy, because they exist to ask the user something.
var interactiveTools = map[string]bool{
	"AskUserQuestion": true,
	"ExitPlanMode":    true,
}

// IsInteractiveTool reports whether the named tool requires user
// interaction and must never be auto-approved.
func IsInteractiveTool(name string) bool {
	return interactiveTools[name]
}

// Manager tracks outstanding control requests for one session and writes
// responses to the reply sink (the agent process's stdin).
type Manager struct {
	mu      sync.Mutex
	sink    io.Writer
	pending map[string]*Pending
	strict  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithStrict makes double resolution panic instead of logging a no-op.
// Intended for development and tests.
func WithStrict() Option {
	return func(m *Manager) { m.strict = true }
}

// NewManager creates a Manager writing responses to sink.
func NewManager(sink io.Writer, opts ...Option) *Manager {
	m := &Manager{
		sink:    sink,
		pending: make(map[string]*Pending),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Pending is one outstanding control request awaiting a decision.
type Pending struct {
	m         *Manager
	requestID string
	request   protocol.Request
	resolved  bool
}

// RequestID returns the correlation id supplied by the agent.
func (p *Pending) RequestID() string { return p.requestID }

// Request returns the decoded request payload.
func (p *Pending) Request() protocol.Request { return p.request }

// Handle registers a decoded control request and returns its Pending
// handle. Requests with an unrecognized subtype are denied immediately and
// Handle returns nil.
//
// Request ids only need to be unique among outstanding requests; a
// duplicate id while the first is still pending is a protocol violation
// from the agent and is refused (denied) rather than clobbering state.
func (m *Manager) Handle(ev *protocol.ControlRequestEvent) *Pending {
	if ev == nil {
		return nil
	}

	if unknown, ok := ev.Request.(*protocol.UnknownControlRequest); ok {
		logger.Warn("control: auto-denying: %v", errors.ControlUnknownRequest(ev.RequestID, unknown.Subtype))
		m.writeResponse(ev.RequestID, denyPayload("unrecognized control request subtype"))
		return nil
	}

	m.mu.Lock()
	if _, exists := m.pending[ev.RequestID]; exists {
		m.mu.Unlock()
		logger.Error("control: duplicate outstanding request id %s, denying the newcomer", ev.RequestID)
		m.writeResponse(ev.RequestID, denyPayload("duplicate request id"))
		return nil
	}
	p := &Pending{m: m, requestID: ev.RequestID, request: ev.Request}
	m.pending[ev.RequestID] = p
	m.mu.Unlock()

	logger.Debug("control: request %s pending", ev.RequestID)
	return p
}

// PendingCount returns the number of unresolved requests.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Allow resolves the request permitting the tool use. For can_use_tool
// requests a non-null updatedInput replaces the tool's input.
func (p *Pending) Allow(updatedInput jsonval.Value) error {
	payload := map[string]any{"behavior": string(BehaviorAllow)}
	if !updatedInput.IsNull() {
		payload["updatedInput"] = updatedInput
	}
	return p.resolve(payload)
}

// Deny resolves the request refusing the tool use.
func (p *Pending) Deny(message string) error {
	return p.resolve(denyPayload(message))
}

func denyPayload(message string) map[string]any {
	payload := map[string]any{"behavior": string(BehaviorDeny)}
	if message != "" {
		payload["message"] = message
	}
	return payload
}

// resolve transitions Pending → Resolved, emitting exactly one response.
func (p *Pending) resolve(payload map[string]any) error {
	m := p.m

	m.mu.Lock()
	if p.resolved {
		m.mu.Unlock()
		if m.strict {
			panic(fmt.Sprintf("control: request %s resolved twice", p.requestID))
		}
		err := errors.ControlAlreadyResolved(p.requestID)
		logger.Error("control: ignoring second decision: %v", err)
		return err
	}
	p.resolved = true
	delete(m.pending, p.requestID)
	m.mu.Unlock()

	return m.writeResponse(p.requestID, payload)
}

// writeResponse emits one control_response line onto the reply sink.
func (m *Manager) writeResponse(requestID string, payload map[string]any) error {
	line, err := json.Marshal(map[string]any{
		"type": "control_response",
		"response": map[string]any{
			"subtype":    "success",
			"request_id": requestID,
			"response":   payload,
		},
	})
	if err != nil {
		return fmt.Errorf("control: marshal response for %s: %w", requestID, err)
	}
	line = append(line, '\n')

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.sink.Write(line); err != nil {
		return fmt.Errorf("control: write response for %s: %w", requestID, err)
	}
	logger.Debug("control: request %s resolved", requestID)
	return nil
}

// CancelAll denies every pending request exactly once. It is idempotent
// and safe to call on an already-drained manager, which makes it suitable
// for session cancellation paths that may run more than once.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	var toCancel []*Pending
	for _, p := range m.pending {
		toCancel = append(toCancel, p)
	}
	m.mu.Unlock()

	for _, p := range toCancel {
		if err := p.Deny("session cancelled"); err != nil {
			logger.Warn("control: cancel of request %s failed: %v", p.requestID, err)
		}
	}
}
