package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/chatmesh/core"
)

// StreamEvent is one element of a turn's event stream. Exactly one of the
// three shapes is set: a content fragment, a terminal error, or the Done
// marker. Done is always the last event on the channel.
type StreamEvent struct {
	Content string
	Err     error
	Done    bool
}

// StreamTurn runs one streaming turn. Validation, lock acquisition and
// history loading happen synchronously so callers can map those errors to
// a status code before committing to a streaming response. After that, a
// goroutine owns the upstream stream, persistence and the lock release;
// the returned channel is closed after the Done event.
//
// Cancelling ctx stops delivery of further fragments but does not stop
// accumulation: if the upstream completes despite the cancellation, the
// full reply is still persisted before the lock is released.
func (o *Orchestrator) StreamTurn(ctx context.Context, req TurnRequest) (<-chan StreamEvent, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return nil, core.ErrSessionRequired
	}

	ok, err := o.deps.Lock.Acquire(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, core.ErrTurnInFlight
	}

	prep, err := o.prepare(ctx, req)
	if err != nil {
		o.release(context.WithoutCancel(ctx), req.SessionID)
		return nil, err
	}

	events := make(chan StreamEvent, o.streamBuffer)
	go o.streamTurn(ctx, req, prep, events)
	return events, nil
}

func (o *Orchestrator) streamTurn(ctx context.Context, req TurnRequest, prep *prepared, events chan<- StreamEvent) {
	// Cleanup work must survive a cancelled request context.
	cleanupCtx := context.WithoutCancel(ctx)
	defer close(events)
	defer o.release(cleanupCtx, req.SessionID)

	start := time.Now()
	acc := newStreamAccumulator(events)

	chunks, errs := o.client.CompleteStream(ctx, o.modelRequest(req, prep))
	acc.Consume(ctx, chunks)

	var turnErr error
	defer func() {
		if ml, ok := o.logger.(turnMetricsLogger); ok {
			ml.LogTurn(req.SessionID, time.Since(start), true, turnErr == nil, turnErr)
		}
	}()

	if err := <-errs; err != nil {
		// Abort: nothing the client saw so far is persisted.
		turnErr = fmt.Errorf("%w: %v", core.ErrUpstream, err)
		acc.Fail(ctx, turnErr)
		return
	}

	if err := o.persistPair(cleanupCtx, req, prep, acc.Text()); err != nil {
		turnErr = err
		acc.Fail(ctx, err)
		return
	}
	acc.Finish(ctx)
}

// streamAccumulator forwards fragments to the consumer while building the
// complete reply for persistence. Once the consumer stops listening it keeps
// accumulating silently so the persisted text stays complete.
type streamAccumulator struct {
	events    chan<- StreamEvent
	buf       strings.Builder
	cancelled bool
}

func newStreamAccumulator(events chan<- StreamEvent) *streamAccumulator {
	return &streamAccumulator{events: events}
}

// Consume drains the fragment channel, accumulating and forwarding each
// fragment. It returns when the channel is closed.
func (a *streamAccumulator) Consume(ctx context.Context, chunks <-chan string) {
	for chunk := range chunks {
		a.buf.WriteString(chunk)
		a.emit(ctx, StreamEvent{Content: chunk})
	}
}

// Fail sends a terminal error followed by the Done marker.
func (a *streamAccumulator) Fail(ctx context.Context, err error) {
	a.emit(ctx, StreamEvent{Err: err})
	a.emit(ctx, StreamEvent{Done: true})
}

// Finish sends the Done marker.
func (a *streamAccumulator) Finish(ctx context.Context) {
	a.emit(ctx, StreamEvent{Done: true})
}

// Text returns the full accumulated reply.
func (a *streamAccumulator) Text() string {
	return a.buf.String()
}

func (a *streamAccumulator) emit(ctx context.Context, ev StreamEvent) {
	if a.cancelled {
		return
	}
	select {
	case a.events <- ev:
	case <-ctx.Done():
		a.cancelled = true
	}
}
