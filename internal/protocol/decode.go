package protocol

import (
	"encoding/json"
	"strings"

	"github.com/drydock-sh/drydock/internal/jsonval"
	"github.com/drydock-sh/drydock/internal/logger"
)

// wireEnvelope carries only the outer discriminator.
type wireEnvelope struct {
	Type string `json:"type"`
}

// wireSystem mirrors {"type":"system",...}.
type wireSystem struct {
	Subtype   string   `json:"subtype"`
	SessionID string   `json:"session_id"`
	Model     string   `json:"model"`
	CWD       string   `json:"cwd"`
	Tools     []string `json:"tools"`
}

// wireMessage mirrors assistant and user lines.
type wireMessage struct {
	Message struct {
		ID         string      `json:"id"`
		Role       string      `json:"role"`
		Model      string      `json:"model"`
		StopReason string      `json:"stop_reason"`
		Content    []wireBlock `json:"content"`
	} `json:"message"`
	SessionID string `json:"session_id"`
}

// wireBlock is one content-array entry. Which fields are populated depends
// on the inner type; the Claude CLI has emitted both snake_case and
// camelCase tool-use id references, so both are accepted.
type wireBlock struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Text      string          `json:"text,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	ToolUseId string          `json:"toolUseId,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// wireControlRequest mirrors {"type":"control_request",...}.
type wireControlRequest struct {
	RequestID string          `json:"request_id"`
	Request   json.RawMessage `json:"request"`
}

type wireControlBody struct {
	Subtype    string          `json:"subtype"`
	ToolName   string          `json:"tool_name"`
	Input      json.RawMessage `json:"input"`
	ToolUseID  string          `json:"tool_use_id"`
	CallbackID string          `json:"callback_id"`
}

// wireResult mirrors {"type":"result",...}.
type wireResult struct {
	Subtype      string  `json:"subtype"`
	IsError      bool    `json:"is_error"`
	Result       string  `json:"result"`
	Error        string  `json:"error"`
	SessionID    string  `json:"session_id"`
	DurationMs   int     `json:"duration_ms"`
	NumTurns     int     `json:"num_turns"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	Usage        Usage   `json:"usage"`
}

// eventDecoders maps the outer "type" discriminator to its decode func.
// Unlisted types fall through to UnknownEvent, which keeps the decoder
// forward compatible with protocol additions.
var eventDecoders = map[string]func(raw []byte) (Event, error){
	"system":          decodeSystem,
	"assistant":       decodeAssistant,
	"user":            decodeUser,
	"control_request": decodeControlRequest,
	"result":          decodeResult,
}

// DecodeLine turns one line of process output into an Event. It is pure
// and total: malformed or unrecognized input yields UnknownEvent, never an
// error, so one garbled line cannot take down the stream.
func DecodeLine(line string) Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return &UnknownEvent{}
	}

	var env wireEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		logger.Warn("protocol: failed to parse stream line: %v, line=%q", err, truncateForLog(trimmed))
		return &UnknownEvent{Raw: trimmed}
	}
	if env.Type == "" {
		logger.Warn("protocol: stream line has no type discriminator: %q", truncateForLog(trimmed))
		return &UnknownEvent{Raw: trimmed}
	}

	decode, ok := eventDecoders[env.Type]
	if !ok {
		logger.Warn("protocol: unrecognized event type %q", env.Type)
		return &UnknownEvent{Type: env.Type, Raw: trimmed}
	}

	ev, err := decode([]byte(trimmed))
	if err != nil {
		logger.Warn("protocol: failed to decode %q event: %v, line=%q", env.Type, err, truncateForLog(trimmed))
		return &UnknownEvent{Type: env.Type, Raw: trimmed}
	}
	return ev
}

func decodeSystem(raw []byte) (Event, error) {
	var w wireSystem
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &SystemEvent{
		Subtype:   w.Subtype,
		SessionID: w.SessionID,
		Model:     w.Model,
		CWD:       w.CWD,
		Tools:     w.Tools,
	}, nil
}

func decodeAssistant(raw []byte) (Event, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &AssistantEvent{
		MessageID:  w.Message.ID,
		SessionID:  w.SessionID,
		Model:      w.Message.Model,
		StopReason: w.Message.StopReason,
		Content:    decodeBlocks(w.Message.Content),
	}, nil
}

func decodeUser(raw []byte) (Event, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	blocks := decodeBlocks(w.Message.Content)

	// In stream-json mode, user lines are how the CLI reports tool
	// results. A line carrying any tool_result block surfaces as a
	// ToolResultEvent; anything else stays a plain UserEvent.
	var results []ToolResult
	for _, block := range blocks {
		if block.Kind == BlockToolResult && block.ToolResult != nil {
			results = append(results, *block.ToolResult)
		}
	}
	if len(results) > 0 {
		return &ToolResultEvent{SessionID: w.SessionID, Results: results}, nil
	}
	return &UserEvent{SessionID: w.SessionID, Content: blocks}, nil
}

func decodeControlRequest(raw []byte) (Event, error) {
	var w wireControlRequest
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	var body wireControlBody
	if len(w.Request) > 0 {
		if err := json.Unmarshal(w.Request, &body); err != nil {
			return nil, err
		}
	}

	ev := &ControlRequestEvent{RequestID: w.RequestID}
	switch body.Subtype {
	case "can_use_tool":
		ev.Request = &CanUseToolRequest{
			ToolName:  body.ToolName,
			Input:     decodeInput(body.Input),
			ToolUseID: body.ToolUseID,
		}
	case "hook_callback":
		ev.Request = &HookCallbackRequest{
			CallbackID: body.CallbackID,
			Input:      decodeInput(body.Input),
		}
	default:
		ev.Request = &UnknownControlRequest{
			Subtype: body.Subtype,
			Raw:     decodeInput(w.Request),
		}
	}
	return ev, nil
}

func decodeResult(raw []byte) (Event, error) {
	var w wireResult
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &ResultEvent{
		Subtype:      w.Subtype,
		IsError:      w.IsError,
		Result:       w.Result,
		Error:        w.Error,
		SessionID:    w.SessionID,
		DurationMs:   w.DurationMs,
		NumTurns:     w.NumTurns,
		TotalCostUSD: w.TotalCostUSD,
		Usage:        w.Usage,
	}, nil
}

// decodeBlocks resolves each content entry's inner type independently. An
// unrecognized inner type degrades that single block to BlockOther without
// invalidating the rest of the message.
func decodeBlocks(blocks []wireBlock) []ContentBlock {
	out := make([]ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, decodeBlock(b))
	}
	return out
}

func decodeBlock(b wireBlock) ContentBlock {
	switch b.Type {
	case "text":
		return ContentBlock{Kind: BlockText, Text: b.Text}
	case "tool_use":
		return ContentBlock{Kind: BlockToolUse, ToolUse: &ToolUse{
			ID:    b.ID,
			Name:  b.Name,
			Input: decodeInput(b.Input),
		}}
	case "tool_result":
		return ContentBlock{Kind: BlockToolResult, ToolResult: &ToolResult{
			ToolUseID: toolUseID(b),
			Content:   resultContent(b.Content),
			IsError:   b.IsError,
		}}
	default:
		return ContentBlock{Kind: BlockOther, RawType: b.Type}
	}
}

// toolUseID accepts both id spellings the CLI has emitted.
func toolUseID(b wireBlock) string {
	if b.ToolUseID != "" {
		return b.ToolUseID
	}
	return b.ToolUseId
}

// decodeInput decodes a raw payload of unknown shape. A missing or
// unparseable payload yields an empty object so a tool_use input is never
// absent.
func decodeInput(raw json.RawMessage) jsonval.Value {
	if len(raw) == 0 {
		return jsonval.Object(nil)
	}
	v, err := jsonval.Decode(raw)
	if err != nil {
		return jsonval.Object(nil)
	}
	return v
}

// resultContent flattens tool_result content, which the CLI emits either
// as a plain string or as an array of text blocks.
func resultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []wireBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return string(raw)
}

// truncateForLog truncates long lines for log messages.
func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
