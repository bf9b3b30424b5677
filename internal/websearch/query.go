package websearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kratt-ai/kratt/internal/llm"
	"github.com/kratt-ai/kratt/internal/log"
)

// fallbackResults bounds how many unfiltered hits survive when the
// relevance filter rejects everything.
const fallbackResults = 3

// TextGenerator is the constrained one-shot generation call the query
// helpers need. *llm.Client satisfies it.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// RewriteQuery converts conversational user text into a short keyword-style
// search query. The generation is pinned to zero temperature with stop
// sequences that force a single line. On any failure the raw user text is
// returned unchanged.
func RewriteQuery(ctx context.Context, gen TextGenerator, userText string, logger log.Logger) string {
	year := time.Now().Year()
	prompt := fmt.Sprintf(
		"Instruction: Generate 3-5 keywords for a Google search.\n"+
			"Reference Year: %d\n\n"+
			"Input: Who is the CEO of Apple?\n"+
			"Output: Apple CEO %d\n\n"+
			"Input: %s\n"+
			"Output:", year, year, userText)

	out, err := gen.GenerateText(ctx, prompt, llm.Options{
		Temperature:     0,
		MaxOutputTokens: 15,
		StopSequences:   []string{"\n", "Input:"},
	})
	if err != nil {
		logger.Warn("query rewrite failed, using raw text", "error", err)
		return userText
	}

	query := strings.Trim(strings.TrimSpace(out), `"'`)
	if query == "" {
		return userText
	}
	logger.Debug("rewrote search query", "query", query)
	return query
}

// FilterRelevant keeps the hits the model judges relevant to the user's
// question. Two or fewer hits pass through unfiltered. Each judgment is a
// binary YES/NO call with a two-token budget; a failed call keeps its hit.
// If the model rejects everything, the first few unfiltered hits are kept
// so the pipeline never starves on an overzealous judge.
func FilterRelevant(ctx context.Context, gen TextGenerator, userText string, results []Result, logger log.Logger) []Result {
	if len(results) <= 2 {
		return results
	}

	var kept []Result
	for _, r := range results {
		prompt := fmt.Sprintf(
			"Instruction: Answer YES or NO if the result is relevant.\n"+
				"Query: %s\n"+
				"Result: %s\n"+
				"Relevant:", userText, formatResult(r))

		out, err := gen.GenerateText(ctx, prompt, llm.Options{
			Temperature:     0,
			MaxOutputTokens: 2,
			StopSequences:   []string{"\n"},
		})
		if err != nil {
			logger.Warn("relevance judgment failed, keeping result", "url", r.URL, "error", err)
			kept = append(kept, r)
			continue
		}
		if strings.Contains(strings.ToUpper(strings.TrimSpace(out)), "YES") {
			kept = append(kept, r)
		}
	}

	if len(kept) == 0 {
		n := min(fallbackResults, len(results))
		logger.Debug("relevance filter rejected all results, keeping unfiltered head", "kept", n)
		return results[:n]
	}
	return kept
}
