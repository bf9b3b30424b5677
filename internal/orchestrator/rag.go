package orchestrator

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"

	"github.com/kratt-ai/kratt/internal/websearch"
)

// runRetrieval executes the retrieval-augmented pipeline: rewrite the
// user's text into a search query, search, filter, fetch, index, and
// stream a generation grounded in the retrieved context. Each stage
// boundary is a cancellation checkpoint. An empty search result set falls
// back to the tool-augmented strategy rather than failing.
func (o *Orchestrator) runRetrieval(ctx context.Context, req Request, run *Run) *Outcome {
	if o.deps.Searcher == nil || o.deps.Fetcher == nil || o.deps.NewIndex == nil {
		o.deps.Logger.Warn("web search requested but retrieval is not wired, using tools")
		return o.runAgent(ctx, req, run)
	}
	if run.stopRequested() {
		return stopped()
	}

	run.emitStatus("Optimizing query...")
	query := websearch.RewriteQuery(ctx, o.deps.Generator, req.UserText, o.deps.Logger)
	if run.stopRequested() {
		return stopped()
	}

	run.emitStatus("Searching...")
	results := o.deps.Searcher.Search(ctx, query, o.cfg.Search.MaxResults)
	if len(results) == 0 {
		run.emitToken("No search results found.")
		return o.runAgent(ctx, req, run)
	}

	filtered := websearch.FilterRelevant(ctx, o.deps.Generator, req.UserText, results, o.deps.Logger)
	if len(filtered) == 0 {
		filtered = results
	}
	maxSources := o.cfg.Search.MaxSources
	if maxSources <= 0 {
		maxSources = 3
	}
	if len(filtered) > maxSources {
		filtered = filtered[:maxSources]
	}
	urls := make([]string, 0, len(filtered))
	for _, r := range filtered {
		urls = append(urls, r.URL)
	}
	if run.stopRequested() {
		return stopped()
	}

	run.emitStatus("Reading content...")
	pages := o.deps.Fetcher.Fetch(ctx, urls)
	if run.stopRequested() {
		return stopped()
	}

	run.emitStatus("Analyzing content...")
	grounding := ""
	if len(pages) > 0 {
		idx := o.deps.NewIndex()
		if idx.Ingest(ctx, pages) {
			// retrieval runs on the original user text, not the
			// rewritten search query
			grounding = idx.Retrieve(ctx, req.UserText)
		}
	}
	if grounding == "" {
		grounding = noContentPlaceholder
	}

	run.emitStatus("Generating response...")
	system := fmt.Sprintf(
		"%s\n\nCONTEXT FROM WEB SEARCH:\n%s\n\n"+
			"INSTRUCTION: Answer based on the context above. Do not provide citations or URLs.",
		req.Transcript.SystemPrompt(), grounding)

	msgs := make([]*ai.Message, 0, req.Transcript.Len()+1)
	msgs = append(msgs, ai.NewSystemMessage(ai.NewTextPart(system)))
	msgs = append(msgs, req.Transcript.Messages(false)...)

	if _, err := o.deps.Generator.GenerateStream(ctx, msgs, run.streamCallback()); err != nil {
		if wasCancelled(err) {
			return stopped()
		}
		return faulted(run, "RAG Generation Error: %v", err)
	}
	run.emitStatus("")
	return &Outcome{Reason: ReasonCompleted}
}
