package stream

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drydock-sh/drydock/internal/control"
	"github.com/drydock-sh/drydock/internal/plan"
	"github.com/drydock-sh/drydock/internal/protocol"
)

func assistantLine(messageID, text string) string {
	return `{"type":"assistant","message":{"id":"` + messageID + `","content":[{"type":"text","text":` + jsonString(text) + `}]}}`
}

func jsonString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func runPump(t *testing.T, input string, handlers Handlers) *bytes.Buffer {
	t.Helper()
	sink := &bytes.Buffer{}
	p := NewPump(strings.NewReader(input), control.NewManager(sink), handlers)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return sink
}

func TestPumpRoutesEventsInOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"system","subtype":"init","session_id":"s1"}`,
		assistantLine("msg_1", "working on it"),
		`{"type":"result","subtype":"success","session_id":"s1","num_turns":1}`,
	}, "\n")

	var kinds []string
	var results int
	ends := 0
	runPump(t, input, Handlers{
		OnEvent: func(ev protocol.Event) {
			switch ev.(type) {
			case *protocol.SystemEvent:
				kinds = append(kinds, "system")
			case *protocol.AssistantEvent:
				kinds = append(kinds, "assistant")
			case *protocol.ResultEvent:
				kinds = append(kinds, "result")
			default:
				kinds = append(kinds, "other")
			}
		},
		OnResult: func(*protocol.ResultEvent) { results++ },
		OnEnd:    func(err error) { ends++ },
	})

	want := []string{"system", "assistant", "result"}
	if len(kinds) != len(want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event kinds = %v, want %v", kinds, want)
		}
	}
	if results != 1 {
		t.Errorf("OnResult fired %d times, want 1", results)
	}
	if ends != 1 {
		t.Errorf("OnEnd fired %d times, want 1", ends)
	}
}

func TestPumpSurvivesGarbageLines(t *testing.T) {
	input := strings.Join([]string{
		"{{{ not json",
		assistantLine("msg_1", "hello"),
		"",
		`{"type":"result","subtype":"success"}`,
	}, "\n")

	var events int
	runPump(t, input, Handlers{
		OnEvent: func(protocol.Event) { events++ },
	})
	// Every line yields an event; garbage and blanks decode as unknowns.
	if events != 4 {
		t.Errorf("OnEvent fired %d times, want 4", events)
	}
}

func TestPumpExtractsPlanOncePerTurn(t *testing.T) {
	planJSON := `{"modulePath": "github.com/acme/site", "sessions": [{"description": "build", "branchName": "feat/build", "prompt": "go"}]}`
	input := strings.Join([]string{
		assistantLine("msg_1", "Here is the plan:\n<orchestration-plan>\n"+planJSON+"\n</orchestration-plan>"),
		assistantLine("msg_1", "And again:\n<orchestration-plan>\n"+planJSON+"\n</orchestration-plan>"),
	}, "\n")

	var plans []*plan.Plan
	runPump(t, input, Handlers{
		OnPlan: func(p *plan.Plan) { plans = append(plans, p) },
	})
	if len(plans) != 1 {
		t.Fatalf("OnPlan fired %d times for one turn, want 1", len(plans))
	}
	if plans[0].ModulePath != "github.com/acme/site" {
		t.Errorf("ModulePath = %q", plans[0].ModulePath)
	}
}

func TestPumpPlanSpansMessagesWithinTurn(t *testing.T) {
	planJSON := `{"modulePath": "github.com/acme/site", "sessions": [{"description": "build", "branchName": "feat/build", "prompt": "go"}]}`
	input := strings.Join([]string{
		assistantLine("msg_1", "<orchestration-plan>\n"+planJSON[:20]),
		assistantLine("msg_1", planJSON[20:]+"\n</orchestration-plan>"),
	}, "\n")

	var plans int
	runPump(t, input, Handlers{
		OnPlan: func(*plan.Plan) { plans++ },
	})
	if plans != 1 {
		t.Errorf("OnPlan fired %d times for a split plan, want 1", plans)
	}
}

func TestPumpNewMessageIDBeginsNewTurn(t *testing.T) {
	planJSON := `{"modulePath": "github.com/acme/site", "sessions": [{"description": "build", "branchName": "feat/build", "prompt": "go"}]}`
	wrapped := "<orchestration-plan>\n" + planJSON + "\n</orchestration-plan>"
	input := strings.Join([]string{
		assistantLine("msg_1", wrapped),
		assistantLine("msg_2", wrapped),
	}, "\n")

	var plans int
	runPump(t, input, Handlers{
		OnPlan: func(*plan.Plan) { plans++ },
	})
	if plans != 2 {
		t.Errorf("OnPlan fired %d times across two turns, want 2", plans)
	}
}

func TestPumpRoutesControlRequests(t *testing.T) {
	input := `{"type":"control_request","request_id":"req_1","request":{"subtype":"can_use_tool","tool_name":"Bash","input":{"command":"ls"}}}`

	var pending *control.Pending
	sink := runPump(t, input, Handlers{
		OnControlRequest: func(p *control.Pending) { pending = p },
	})
	if pending == nil {
		t.Fatal("OnControlRequest never fired")
	}
	if pending.RequestID() != "req_1" {
		t.Errorf("RequestID = %q, want req_1", pending.RequestID())
	}
	// End of stream abandons the request with a deny response.
	if !strings.Contains(sink.String(), `"request_id":"req_1"`) {
		t.Errorf("no response written for abandoned request: %s", sink.String())
	}
	if !strings.Contains(sink.String(), `"behavior":"deny"`) {
		t.Errorf("abandoned request was not denied: %s", sink.String())
	}
}

func TestPumpCancelIsIdempotent(t *testing.T) {
	pr, pw := io.Pipe()
	sink := &bytes.Buffer{}
	var mu sync.Mutex
	ends := 0
	gotPending := make(chan *control.Pending, 1)

	p := NewPump(pr, control.NewManager(sink), Handlers{
		OnControlRequest: func(pd *control.Pending) { gotPending <- pd },
		OnEnd: func(error) {
			mu.Lock()
			ends++
			mu.Unlock()
		},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(context.Background())
	}()

	line := `{"type":"control_request","request_id":"req_9","request":{"subtype":"can_use_tool","tool_name":"Write","input":{}}}` + "\n"
	if _, err := pw.Write([]byte(line)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-gotPending:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for control request")
	}

	p.Cancel()
	p.Cancel()
	pw.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pump to stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if ends != 1 {
		t.Errorf("OnEnd fired %d times, want 1", ends)
	}
	if got := strings.Count(sink.String(), `"request_id":"req_9"`); got != 1 {
		t.Errorf("pending request answered %d times, want exactly 1:\n%s", got, sink.String())
	}
}

func TestPumpContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ends := 0
	p := NewPump(strings.NewReader(assistantLine("m", "a")+"\n"+assistantLine("m", "b")), control.NewManager(&bytes.Buffer{}), Handlers{
		OnEnd: func(error) { ends++ },
	})
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ends != 1 {
		t.Errorf("OnEnd fired %d times, want 1", ends)
	}
}
