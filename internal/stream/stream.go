// Package stream pumps a line-delimited event stream from a collaborating
// agent process through the protocol layer.
//
// The pump is single-goroutine by design: events are decoded and routed in
// wire order, so handlers observe exactly the sequence the agent emitted.
// The only suspension points are the line read and whatever the caller does
// inside its handlers.
package stream

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/drydock-sh/drydock/internal/control"
	"github.com/drydock-sh/drydock/internal/logger"
	"github.com/drydock-sh/drydock/internal/plan"
	"github.com/drydock-sh/drydock/internal/protocol"
)

// maxLineSize accommodates large tool outputs embedded in single events.
const maxLineSize = 16 * 1024 * 1024

// Handlers receives routed stream traffic. Any handler may be nil.
// Handlers are invoked from the pump goroutine and must not block longer
// than the caller is willing to stall the stream.
type Handlers struct {
	// OnEvent fires for every decoded event, including unknown ones.
	OnEvent func(protocol.Event)
	// OnPlan fires when assistant text yields an orchestration plan, at
	// most once per assistant turn.
	OnPlan func(*plan.Plan)
	// OnControlRequest fires for approval requests that need a caller
	// decision. Auto-resolved requests never reach it.
	OnControlRequest func(*control.Pending)
	// OnResult fires when the agent reports a turn result.
	OnResult func(*protocol.ResultEvent)
	// OnEnd fires exactly once when the stream ends, whether by EOF,
	// read error, or cancellation. err is nil for a clean EOF.
	OnEnd func(err error)
}

// Pump consumes one agent event stream.
type Pump struct {
	r        io.Reader
	ctrl     *control.Manager
	ext      *plan.Extractor
	handlers Handlers

	cancelCh   chan struct{}
	cancelOnce sync.Once
	endOnce    sync.Once

	// turnMessageID tracks the assistant message currently streaming;
	// a new id begins a new extraction turn.
	turnMessageID string
}

// NewPump wires a reader, a control manager, and handlers into a pump.
// The pump does not start reading until Run is called.
func NewPump(r io.Reader, ctrl *control.Manager, handlers Handlers) *Pump {
	return &Pump{
		r:        r,
		ctrl:     ctrl,
		ext:      plan.NewExtractor(),
		handlers: handlers,
		cancelCh: make(chan struct{}),
	}
}

// Run consumes the stream until EOF, a read error, or cancellation. It
// fires OnEnd exactly once before returning. Decode failures are absorbed
// by the protocol layer and never end the stream; the returned error is
// the read error, if any.
//
// Cancellation via ctx or Cancel takes effect at the next line boundary.
// Callers that need an immediate stop should also close the underlying
// reader.
func (p *Pump) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(p.r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			p.Cancel()
			p.finish(nil)
			return nil
		case <-p.cancelCh:
			p.finish(nil)
			return nil
		default:
		}
		p.dispatch(scanner.Text())
	}

	err := scanner.Err()
	if err != nil {
		logger.Warn("stream: read error: %v", err)
	}
	// End of stream abandons any control requests still awaiting a
	// decision; there is no one left to answer them.
	p.ctrl.CancelAll()
	p.finish(err)
	return err
}

// Cancel stops consumption at the next line boundary and denies every
// pending control request. Safe to call from any goroutine, any number of
// times.
func (p *Pump) Cancel() {
	p.cancelOnce.Do(func() {
		close(p.cancelCh)
		p.ctrl.CancelAll()
	})
}

func (p *Pump) finish(err error) {
	p.endOnce.Do(func() {
		if p.handlers.OnEnd != nil {
			p.handlers.OnEnd(err)
		}
	})
}

// dispatch decodes one line and routes the event.
func (p *Pump) dispatch(line string) {
	ev := protocol.DecodeLine(line)

	if p.handlers.OnEvent != nil {
		p.handlers.OnEvent(ev)
	}

	switch e := ev.(type) {
	case *protocol.AssistantEvent:
		p.scanAssistantText(e)
	case *protocol.ControlRequestEvent:
		pending := p.ctrl.Handle(e)
		if pending != nil && p.handlers.OnControlRequest != nil {
			p.handlers.OnControlRequest(pending)
		}
	case *protocol.ResultEvent:
		p.turnMessageID = ""
		if p.handlers.OnResult != nil {
			p.handlers.OnResult(e)
		}
	}
}

// scanAssistantText feeds text blocks, in wire order, into the plan
// extractor. A changed message id marks a fresh assistant turn.
func (p *Pump) scanAssistantText(e *protocol.AssistantEvent) {
	if e.MessageID != p.turnMessageID {
		p.turnMessageID = e.MessageID
		p.ext.BeginTurn()
	}
	for _, block := range e.Content {
		if block.Kind != protocol.BlockText {
			continue
		}
		pl := p.ext.Append(block.Text)
		if pl != nil && p.handlers.OnPlan != nil {
			p.handlers.OnPlan(pl)
		}
	}
}
