package orchestrator

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/firebase/genkit/go/ai"

	"github.com/kratt-ai/kratt/internal/llm"
)

// Run is the caller's handle on one in-flight orchestration. Events are
// delivered in emission order on Events(); the stream ends with exactly
// one terminal event followed by channel close.
type Run struct {
	events chan Event
	stop   atomic.Bool
	done   chan struct{}

	// run-scoped state, touched only by the run goroutine
	buffer  strings.Builder
	tokens  int
	outcome *Outcome
}

func newRun() *Run {
	return &Run{
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// Events returns the run's ordered event stream. The channel is closed
// after the terminal event.
func (r *Run) Events() <-chan Event {
	return r.events
}

// RequestStop sets the cooperative cancellation flag. The run observes it
// at the next checkpoint; an in-flight network call completes first.
func (r *Run) RequestStop() {
	r.stop.Store(true)
}

// Wait blocks until the run terminates and returns its outcome.
func (r *Run) Wait() *Outcome {
	<-r.done
	return r.outcome
}

func (r *Run) stopRequested() bool {
	return r.stop.Load()
}

// emitToken appends text to the response buffer and delivers it as a
// token event.
func (r *Run) emitToken(text string) {
	if text == "" {
		return
	}
	r.buffer.WriteString(text)
	r.tokens++
	r.events <- Event{Kind: EventToken, Text: text}
}

// emitStatus delivers a progress label.
func (r *Run) emitStatus(label string) {
	r.events <- Event{Kind: EventStatus, Text: label}
}

// streamCallback adapts the run to a model stream. Cancellation is checked
// between fragments; a pending fragment is still delivered before the stop
// is observed.
func (r *Run) streamCallback() llm.StreamCallback {
	return func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		if r.stopRequested() {
			return errStopRequested
		}
		r.emitToken(chunk.Text())
		return nil
	}
}
