// Package orchestrator executes one conversation turn at a time. Each turn
// picks exactly one generation strategy (vision, retrieval-augmented, or
// tool-augmented), runs it on a background goroutine, and publishes an
// ordered stream of token, status, and terminal events. Every run
// terminates with exactly one terminal event regardless of faults or
// cancellation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/kratt-ai/kratt/internal/chat"
	"github.com/kratt-ai/kratt/internal/config"
	"github.com/kratt-ai/kratt/internal/llm"
	"github.com/kratt-ai/kratt/internal/log"
	"github.com/kratt-ai/kratt/internal/websearch"
)

// ErrRunActive is returned by Start when a run is already in flight for
// this conversation.
var ErrRunActive = errors.New("a generation run is already active")

// errStopRequested aborts an in-flight stream when cancellation is
// observed between fragments.
var errStopRequested = errors.New("stop requested")

// noContentPlaceholder grounds the final generation when nothing readable
// came out of the retrieval pipeline.
const noContentPlaceholder = "No readable content could be extracted from the search results."

// defaultVisionPrompt is used when an image arrives without any user text.
const defaultVisionPrompt = "Describe this image."

// Generator is the model-call surface the orchestrator needs.
// *llm.Client satisfies it.
type Generator interface {
	GenerateStream(ctx context.Context, msgs []*ai.Message, cb llm.StreamCallback) (*ai.ModelResponse, error)
	GenerateWithTools(ctx context.Context, msgs []*ai.Message, tools []ai.ToolRef) (*ai.ModelResponse, error)
	GenerateText(ctx context.Context, prompt string, opts llm.Options) (string, error)
	GenerateVision(ctx context.Context, imagePath, prompt string, cb llm.StreamCallback) (*ai.ModelResponse, error)
}

// ToolExecutor dispatches model-requested tool calls.
// *tools.Registry satisfies it.
type ToolExecutor interface {
	Refs() []ai.ToolRef
	Execute(ctx context.Context, name string, args map[string]any) string
}

// Searcher is the web search provider. *websearch.Searcher satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []websearch.Result
}

// Fetcher extracts readable text from seed URLs.
// *websearch.Scraper satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, seeds []string) map[string]string
}

// Indexer is one turn's ephemeral retrieval index. *index.Index satisfies
// it.
type Indexer interface {
	Ingest(ctx context.Context, texts map[string]string) bool
	Retrieve(ctx context.Context, query string) string
}

// Request is the immutable dispatch snapshot for one turn. The transcript
// reference is mutated only by the run while it is active.
type Request struct {
	Transcript *chat.Transcript
	UserText   string
	ImagePath  string // non-empty selects the vision strategy
	WebSearch  bool   // with non-empty text, selects the RAG strategy
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Generator Generator
	Tools     ToolExecutor
	Searcher  Searcher
	Fetcher   Fetcher
	NewIndex  func() Indexer // fresh index per retrieval run
	Logger    log.Logger
}

// Orchestrator runs turns for one conversation. At most one run is active
// at a time; Start enforces this. Safe for concurrent use.
type Orchestrator struct {
	deps Deps
	cfg  config.Config

	mu     sync.Mutex
	active *Run
}

// New creates an orchestrator. All Deps fields are required except
// Searcher, Fetcher, and NewIndex, which may be nil when web search is
// never requested.
func New(deps Deps, cfg config.Config) (*Orchestrator, error) {
	if deps.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if deps.Tools == nil {
		return nil, errors.New("tool executor is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Orchestrator{deps: deps, cfg: cfg}, nil
}

// Start begins asynchronous execution of one turn and returns its handle.
// It fails with ErrRunActive when another run is in flight; no run is
// started in that case.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Run, error) {
	if req.Transcript == nil {
		return nil, errors.New("transcript is required")
	}

	o.mu.Lock()
	if o.active != nil {
		o.mu.Unlock()
		return nil, ErrRunActive
	}
	run := newRun()
	o.active = run
	o.mu.Unlock()

	go o.execute(ctx, req, run)
	return run, nil
}

// execute drives one run to its single terminal event. The deferred block
// is the only place terminal events are emitted, so no strategy path can
// double-terminate or leave the run open.
func (o *Orchestrator) execute(ctx context.Context, req Request, run *Run) {
	started := time.Now()
	var outcome *Outcome

	defer func() {
		if r := recover(); r != nil {
			o.deps.Logger.Error("run panic recovered", "panic", r)
			outcome = &Outcome{Reason: ReasonErrored}
		}
		if outcome == nil {
			outcome = &Outcome{Reason: ReasonErrored}
		}
		outcome.Response = run.buffer.String()
		outcome.TokenCount = run.tokens
		outcome.Duration = time.Since(started)

		if outcome.Response != "" {
			req.Transcript.Append(chat.Turn{Role: chat.RoleAssistant, Text: outcome.Response})
		}

		run.outcome = outcome
		run.events <- Event{Kind: EventTerminal, Outcome: outcome}
		close(run.events)
		close(run.done)

		o.mu.Lock()
		if o.active == run {
			o.active = nil
		}
		o.mu.Unlock()

		o.deps.Logger.Info("run terminated",
			"reason", outcome.Reason,
			"tokens", outcome.TokenCount,
			"duration", outcome.Duration)
	}()

	req.Transcript.Append(chat.Turn{
		Role:      chat.RoleUser,
		Text:      req.UserText,
		ImagePath: req.ImagePath,
	})

	switch {
	case req.ImagePath != "":
		outcome = o.runVision(ctx, req, run)
	case req.WebSearch && strings.TrimSpace(req.UserText) != "":
		outcome = o.runRetrieval(ctx, req, run)
	default:
		outcome = o.runAgent(ctx, req, run)
	}
}

// stopped builds the cancellation outcome.
func stopped() *Outcome {
	return &Outcome{Reason: ReasonStopped}
}

// faulted reports a provider fault inline on the token stream, keeping any
// partial content, and builds the errored outcome.
func faulted(run *Run, format string, err error) *Outcome {
	run.emitToken(fmt.Sprintf(format, err))
	return &Outcome{Reason: ReasonErrored}
}

// wasCancelled distinguishes cooperative stops from genuine faults when a
// stream aborts.
func wasCancelled(err error) bool {
	return errors.Is(err, errStopRequested) || errors.Is(err, context.Canceled)
}
