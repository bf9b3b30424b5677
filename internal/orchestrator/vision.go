package orchestrator

import (
	"context"
	"strings"
)

// runVision streams a single vision-model call over the attached image.
// The user's text is the prompt; an image with no text gets a default
// description prompt.
func (o *Orchestrator) runVision(ctx context.Context, req Request, run *Run) *Outcome {
	if run.stopRequested() {
		return stopped()
	}

	prompt := strings.TrimSpace(req.UserText)
	if prompt == "" {
		prompt = defaultVisionPrompt
	}

	if _, err := o.deps.Generator.GenerateVision(ctx, req.ImagePath, prompt, run.streamCallback()); err != nil {
		if wasCancelled(err) {
			return stopped()
		}
		return faulted(run, "Vision error: %v", err)
	}
	return &Outcome{Reason: ReasonCompleted}
}
