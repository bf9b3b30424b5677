// Package index builds an ephemeral similarity index over fetched page
// text. The index lives for one retrieval-augmented turn: Ingest rebuilds
// it from scratch, Retrieve reads it, and nothing persists across turns.
package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/kratt-ai/kratt/internal/config"
	"github.com/kratt-ai/kratt/internal/log"
)

// collectionName identifies the single working collection. The database is
// in-memory and rebuilt per ingest, so one name is enough.
const collectionName = "web-context"

// NewEmbeddingFunc bridges a Genkit embedder to chromem-go's embedding
// callback. chromem-go normalizes vectors itself.
func NewEmbeddingFunc(embedder ai.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
			Input: []*ai.Document{ai.DocumentFromText(text, nil)},
		})
		if err != nil {
			return nil, fmt.Errorf("embed failed: %w", err)
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned")
		}
		return resp.Embeddings[0].Embedding, nil
	}
}

// Index is a per-turn vector index over source-attributed text. Not safe
// for concurrent use; a turn owns its index exclusively.
type Index struct {
	embedFn      chromem.EmbeddingFunc
	chunkSize    int
	chunkOverlap int
	topK         int
	logger       log.Logger

	col *chromem.Collection // nil until a successful Ingest
}

// New creates an empty index using the given embedder and chunking limits.
func New(embedder ai.Embedder, cfg config.RAGConfig, logger log.Logger) *Index {
	return &Index{
		embedFn:      NewEmbeddingFunc(embedder),
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		topK:         cfg.TopK,
		logger:       logger,
	}
}

// Ingest chunks and embeds each source's text into a fresh in-memory
// collection, replacing whatever the index held before. It reports whether
// the index is usable afterwards; empty input and embedding failures
// return false without raising.
func (ix *Index) Ingest(ctx context.Context, texts map[string]string) bool {
	if len(texts) == 0 {
		return false
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, ix.embedFn)
	if err != nil {
		ix.logger.Warn("creating index collection failed", "error", err)
		return false
	}

	added := 0
	for source, text := range texts {
		for _, chunk := range splitText(text, ix.chunkSize, ix.chunkOverlap) {
			doc := chromem.Document{
				ID:       uuid.NewString(),
				Content:  chunk,
				Metadata: map[string]string{"source": source},
			}
			if err := col.AddDocument(ctx, doc); err != nil {
				ix.logger.Warn("indexing chunk failed", "source", source, "error", err)
				return false
			}
			added++
		}
	}
	if added == 0 {
		return false
	}

	ix.col = col
	ix.logger.Debug("built retrieval index", "sources", len(texts), "chunks", added)
	return true
}

// Retrieve returns the top chunks most similar to query, each prefixed
// with its source attribution, concatenated in rank order. An unbuilt
// index or a failed query yields an empty string.
func (ix *Index) Retrieve(ctx context.Context, query string) string {
	if ix.col == nil {
		return ""
	}

	k := ix.topK
	if count := ix.col.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return ""
	}

	results, err := ix.col.Query(ctx, query, k, nil, nil)
	if err != nil {
		ix.logger.Warn("index query failed", "error", err)
		return ""
	}

	var b strings.Builder
	for i, r := range results {
		source := r.Metadata["source"]
		if source == "" {
			source = "unknown"
		}
		content := strings.ReplaceAll(r.Content, "\n", " ")
		fmt.Fprintf(&b, "[Source %d: %s]\n%s\n\n", i+1, source, content)
	}
	return b.String()
}
