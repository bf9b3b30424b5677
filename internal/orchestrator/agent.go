package orchestrator

import (
	"context"
	"fmt"

	"github.com/kratt-ai/kratt/internal/chat"
)

// maxIterationsMessage is the sentinel emitted when the tool loop hits its
// iteration cap without producing a final answer. The cap is a safety
// valve, so the run still completes normally.
const maxIterationsMessage = "Max iterations reached."

// runAgent executes the tool-augmented loop: dispatch the transcript with
// tool schemas, execute any requested tools, feed results back, and repeat
// until the model answers in plain text or the iteration cap is hit.
func (o *Orchestrator) runAgent(ctx context.Context, req Request, run *Run) *Outcome {
	maxTurns := o.cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}

	for i := 0; i < maxTurns; i++ {
		if run.stopRequested() {
			return stopped()
		}

		resp, err := o.deps.Generator.GenerateWithTools(ctx, req.Transcript.Messages(true), o.deps.Tools.Refs())
		if err != nil {
			if wasCancelled(err) {
				return stopped()
			}
			return faulted(run, "Agent Error: %v", err)
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			run.emitStatus("")
			run.emitToken(resp.Text())
			return &Outcome{Reason: ReasonCompleted}
		}

		for _, tr := range requests {
			run.emitStatus(fmt.Sprintf("Calling %s...", tr.Name))

			args, _ := tr.Input.(map[string]any)
			call := &chat.ToolCall{Name: tr.Name, Args: args}
			req.Transcript.Append(chat.Turn{Role: chat.RoleAssistant, ToolCall: call})

			result := o.deps.Tools.Execute(ctx, tr.Name, args)
			req.Transcript.Append(chat.Turn{Role: chat.RoleTool, Text: result, ToolCall: call})

			if run.stopRequested() {
				return stopped()
			}
		}
		run.emitStatus("Thinking...")
	}

	run.emitStatus("")
	run.emitToken(maxIterationsMessage)
	return &Outcome{Reason: ReasonCompleted}
}
