package orchestrator

import "time"

// eventBufferSize absorbs token bursts while the consumer renders.
// Token ordering is preserved either way; a full buffer blocks the
// producer rather than dropping events.
const eventBufferSize = 100

// EventKind discriminates the three event types a run emits.
type EventKind int

const (
	// EventToken carries a fragment of assistant output text.
	EventToken EventKind = iota
	// EventStatus carries a transient progress label. An empty label
	// clears the previous one.
	EventStatus
	// EventTerminal is the final event of a run. Exactly one is emitted
	// and the event channel is closed after it.
	EventTerminal
)

// Event is one item on a run's ordered event stream. Text holds the token
// fragment or status label; Outcome is set only on terminal events.
type Event struct {
	Kind    EventKind
	Text    string
	Outcome *Outcome
}

// Reason classifies how a run terminated.
type Reason string

const (
	// ReasonCompleted means the strategy ran to its natural end.
	ReasonCompleted Reason = "completed"
	// ReasonStopped means a cancellation request was honored at a
	// checkpoint. Not an error; streamed content remains valid.
	ReasonStopped Reason = "stopped"
	// ReasonErrored means a provider fault ended the run. Partial output
	// streamed before the fault is kept.
	ReasonErrored Reason = "errored"
)

// Outcome summarizes a finished run.
type Outcome struct {
	Reason     Reason
	Response   string // accumulated assistant text, possibly partial
	TokenCount int
	Duration   time.Duration
}
