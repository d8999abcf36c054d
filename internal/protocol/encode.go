package protocol

import (
	"encoding/json"
	"fmt"
)

// Encode renders an Event back to its wire JSON. It is the inverse of
// DecodeLine for typed events: DecodeLine(Encode(e)) yields an event equal
// to e. UnknownEvent round-trips as its preserved raw line.
func Encode(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case *SystemEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireSystem
		}{"system", wireSystem{
			Subtype:   e.Subtype,
			SessionID: e.SessionID,
			Model:     e.Model,
			CWD:       e.CWD,
			Tools:     e.Tools,
		}})

	case *AssistantEvent:
		var w wireMessage
		w.Message.ID = e.MessageID
		w.Message.Role = "assistant"
		w.Message.Model = e.Model
		w.Message.StopReason = e.StopReason
		w.Message.Content = encodeBlocks(e.Content)
		w.SessionID = e.SessionID
		return marshalMessage("assistant", w)

	case *UserEvent:
		var w wireMessage
		w.Message.Role = "user"
		w.Message.Content = encodeBlocks(e.Content)
		w.SessionID = e.SessionID
		return marshalMessage("user", w)

	case *ToolResultEvent:
		var w wireMessage
		w.Message.Role = "user"
		for _, res := range e.Results {
			w.Message.Content = append(w.Message.Content, encodeToolResult(res))
		}
		w.SessionID = e.SessionID
		return marshalMessage("user", w)

	case *ControlRequestEvent:
		body, err := encodeRequest(e.Request)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type      string          `json:"type"`
			RequestID string          `json:"request_id"`
			Request   json.RawMessage `json:"request"`
		}{"control_request", e.RequestID, body})

	case *ResultEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireResult
		}{"result", wireResult{
			Subtype:      e.Subtype,
			IsError:      e.IsError,
			Result:       e.Result,
			Error:        e.Error,
			SessionID:    e.SessionID,
			DurationMs:   e.DurationMs,
			NumTurns:     e.NumTurns,
			TotalCostUSD: e.TotalCostUSD,
			Usage:        e.Usage,
		}})

	case *UnknownEvent:
		if e.Raw == "" {
			return nil, fmt.Errorf("encode: unknown event has no raw line")
		}
		return []byte(e.Raw), nil

	default:
		return nil, fmt.Errorf("encode: unsupported event %T", ev)
	}
}

func marshalMessage(typ string, w wireMessage) ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		wireMessage
	}{typ, w})
}

func encodeBlocks(blocks []ContentBlock) []wireBlock {
	out := make([]wireBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, encodeBlock(b))
	}
	return out
}

func encodeBlock(b ContentBlock) wireBlock {
	switch b.Kind {
	case BlockText:
		return wireBlock{Type: "text", Text: b.Text}
	case BlockToolUse:
		w := wireBlock{Type: "tool_use"}
		if b.ToolUse != nil {
			w.ID = b.ToolUse.ID
			w.Name = b.ToolUse.Name
			w.Input = json.RawMessage(b.ToolUse.Input.Encode())
		}
		return w
	case BlockToolResult:
		if b.ToolResult != nil {
			return encodeToolResult(*b.ToolResult)
		}
		return wireBlock{Type: "tool_result"}
	default:
		return wireBlock{Type: b.RawType}
	}
}

func encodeToolResult(res ToolResult) wireBlock {
	content, _ := json.Marshal(res.Content)
	return wireBlock{
		Type:      "tool_result",
		ToolUseID: res.ToolUseID,
		Content:   content,
		IsError:   res.IsError,
	}
}

func encodeRequest(req Request) (json.RawMessage, error) {
	switch r := req.(type) {
	case *CanUseToolRequest:
		return json.Marshal(struct {
			Subtype   string          `json:"subtype"`
			ToolName  string          `json:"tool_name"`
			Input     json.RawMessage `json:"input"`
			ToolUseID string          `json:"tool_use_id,omitempty"`
		}{"can_use_tool", r.ToolName, json.RawMessage(r.Input.Encode()), r.ToolUseID})
	case *HookCallbackRequest:
		return json.Marshal(struct {
			Subtype    string          `json:"subtype"`
			CallbackID string          `json:"callback_id"`
			Input      json.RawMessage `json:"input"`
		}{"hook_callback", r.CallbackID, json.RawMessage(r.Input.Encode())})
	case *UnknownControlRequest:
		if !r.Raw.IsNull() || r.Subtype == "" {
			// Best effort: the preserved raw body, which still carries
			// the original subtype.
			return json.RawMessage(r.Raw.Encode()), nil
		}
		return json.Marshal(struct {
			Subtype string `json:"subtype"`
		}{r.Subtype})
	default:
		return nil, fmt.Errorf("encode: unsupported control request %T", req)
	}
}
