// Package protocol decodes the newline-delimited JSON event stream emitted
// by the Claude Code CLI in stream-json mode.
//
// The stream is adversarial: lines may be truncated, garbled, or carry
// message types added after this code was written. Decoding is therefore
// total — DecodeLine never fails and never panics. Anything it cannot
// recognize becomes an UnknownEvent carrying the raw line, and the stream
// keeps going.
package protocol

import (
	"strings"

	"github.com/drydock-sh/drydock/internal/jsonval"
)

// Event is one decoded line of the agent's output stream.
// Concrete types: SystemEvent, AssistantEvent, UserEvent, ToolResultEvent,
// ControlRequestEvent, ResultEvent, UnknownEvent.
type Event interface {
	isEvent()
}

// SystemEvent is an out-of-band status message from the CLI. The "init"
// subtype announces the session id, model, and available tools.
type SystemEvent struct {
	Subtype   string
	SessionID string
	Model     string
	CWD       string
	Tools     []string
}

// AssistantEvent is one assistant message. Content holds the text and
// tool-use blocks in presentation order.
type AssistantEvent struct {
	MessageID  string
	SessionID  string
	Model      string
	StopReason string
	Content    []ContentBlock
}

// Text returns the concatenated text blocks of the message, in order.
func (e *AssistantEvent) Text() string {
	var b strings.Builder
	for _, block := range e.Content {
		if block.Kind == BlockText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// UserEvent is a user-role message echoed on the stream that carries no
// tool results (tool-result-bearing user lines decode as ToolResultEvent).
type UserEvent struct {
	SessionID string
	Content   []ContentBlock
}

// ToolResultEvent is a user-role line whose content reports completed tool
// executions. Results preserve wire order.
type ToolResultEvent struct {
	SessionID string
	Results   []ToolResult
}

// ControlRequestEvent asks the host for a decision, correlated by
// RequestID. The reply goes back on the process's input channel; see the
// control package.
type ControlRequestEvent struct {
	RequestID string
	Request   Request
}

// ResultEvent terminates a turn and reports its outcome.
type ResultEvent struct {
	Subtype      string
	IsError      bool
	Result       string
	Error        string
	SessionID    string
	DurationMs   int
	NumTurns     int
	TotalCostUSD float64
	Usage        Usage
}

// ErrorText returns the most specific error description the result
// carries, preferring the result text.
func (e *ResultEvent) ErrorText() string {
	if e.Result != "" {
		return e.Result
	}
	return e.Error
}

// Usage is the token accounting attached to a result.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// UnknownEvent is any line the decoder could not type: malformed JSON, a
// missing or unrecognized discriminator, or a payload that failed to
// decode. It is a normal, non-error outcome.
type UnknownEvent struct {
	Type string // wire "type" discriminator, if one was readable
	Raw  string // the original line, untouched
}

func (*SystemEvent) isEvent()         {}
func (*AssistantEvent) isEvent()      {}
func (*UserEvent) isEvent()           {}
func (*ToolResultEvent) isEvent()     {}
func (*ControlRequestEvent) isEvent() {}
func (*ResultEvent) isEvent()         {}
func (*UnknownEvent) isEvent()        {}

// BlockKind identifies a content block variant.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
	// BlockOther is a block whose inner type we don't recognize. The rest
	// of the message stays intact.
	BlockOther BlockKind = "other"
)

// ContentBlock is one entry of a message's content array. Exactly the
// field matching Kind is meaningful.
type ContentBlock struct {
	Kind       BlockKind
	Text       string      // BlockText
	ToolUse    *ToolUse    // BlockToolUse
	ToolResult *ToolResult // BlockToolResult
	RawType    string      // wire inner type, kept for BlockOther
}

// ToolUse describes a tool invocation requested by the assistant.
type ToolUse struct {
	ID    string
	Name  string
	Input jsonval.Value // always present, an empty object when the wire omits it
}

// ToolResult reports the outcome of one tool invocation.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// Request is the payload of a control request.
// Concrete types: CanUseToolRequest, HookCallbackRequest,
// UnknownControlRequest.
type Request interface {
	isRequest()
}

// CanUseToolRequest asks whether the agent may run a tool.
type CanUseToolRequest struct {
	ToolName  string
	Input     jsonval.Value
	ToolUseID string // optional; correlates with the tool_use block
}

// HookCallbackRequest asks the host to run a registered hook.
type HookCallbackRequest struct {
	CallbackID string
	Input      jsonval.Value
}

// UnknownControlRequest is a control request with a subtype this code
// doesn't know. Callers must not silently allow it; the control package
// auto-denies.
type UnknownControlRequest struct {
	Subtype string
	Raw     jsonval.Value
}

func (*CanUseToolRequest) isRequest()     {}
func (*HookCallbackRequest) isRequest()   {}
func (*UnknownControlRequest) isRequest() {}
