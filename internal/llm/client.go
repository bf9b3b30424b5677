// Package llm wraps the local model runtime behind a small client.
//
// The runtime is treated as an opaque streaming text-generation service:
// kratt registers the configured chat, vision, and embedding models with
// Genkit's Ollama plugin and exposes the handful of call shapes the
// orchestrator needs (streaming chat, constrained one-shot generation,
// tool-calling dispatch, vision, embedding).
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/ollama"
	"golang.org/x/time/rate"

	"github.com/kratt-ai/kratt/internal/log"
)

// providerPrefix qualifies model names registered by the Ollama plugin.
const providerPrefix = "ollama/"

// Config holds the runtime connection and model selection.
type Config struct {
	Host          string // runtime address, e.g. http://localhost:11434
	MainModel     string // chat + tool-calling model
	VisionModel   string // image-capable model
	EmbedderModel string // embedding model for retrieval
}

// StreamCallback receives each chunk of a streaming response. Returning an
// error aborts the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Options constrains a single generation call.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
	StopSequences   []string
}

// Client is the generation-service boundary used by the orchestrator.
// It is safe for concurrent use; all state is read-only after construction.
type Client struct {
	g           *genkit.Genkit
	mainModel   string // provider-qualified
	visionModel string // provider-qualified
	embedder    ai.Embedder
	limiter     *rate.Limiter
	retry       RetryConfig
	logger      log.Logger
}

// New initializes Genkit with the Ollama plugin and registers the
// configured models. Ollama requires explicit registration; there is no
// auto-discovery.
func New(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("runtime host is required")
	}
	if cfg.MainModel == "" || cfg.VisionModel == "" {
		return nil, errors.New("main and vision model names are required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	plugin := &ollama.Ollama{ServerAddress: cfg.Host}
	g := genkit.Init(ctx, genkit.WithPlugins(plugin))
	if g == nil {
		return nil, errors.New("initializing genkit with ollama provider")
	}

	plugin.DefineModel(g, ollama.ModelDefinition{Name: cfg.MainModel, Type: "chat"}, nil)
	plugin.DefineModel(g, ollama.ModelDefinition{Name: cfg.VisionModel, Type: "chat"}, nil)

	var embedder ai.Embedder
	if cfg.EmbedderModel != "" {
		plugin.DefineEmbedder(g, cfg.Host, cfg.EmbedderModel, nil)
		embedder = ollama.Embedder(g, cfg.Host)
	}

	logger.Info("initialized model runtime",
		"host", cfg.Host,
		"main_model", cfg.MainModel,
		"vision_model", cfg.VisionModel,
		"embedder_model", cfg.EmbedderModel)

	return &Client{
		g:           g,
		mainModel:   providerPrefix + cfg.MainModel,
		visionModel: providerPrefix + cfg.VisionModel,
		embedder:    embedder,
		// 10 req/sec sustained, burst of 30: generous for a local runtime
		// while still smoothing pathological call loops.
		limiter: rate.NewLimiter(10, 30),
		retry:   DefaultRetryConfig(),
		logger:  logger,
	}, nil
}

// Genkit exposes the underlying Genkit instance for tool registration.
func (c *Client) Genkit() *genkit.Genkit {
	return c.g
}

// Embedder returns the embedding handle, or nil when no embedding model is
// configured.
func (c *Client) Embedder() ai.Embedder {
	return c.embedder
}

// GenerateStream runs a streaming chat generation over msgs against the
// main model. cb is invoked per chunk in generation order.
func (c *Client) GenerateStream(ctx context.Context, msgs []*ai.Message, cb StreamCallback) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.mainModel),
		ai.WithMessages(msgs...),
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(ai.ModelStreamCallback(cb)))
	}
	return c.generateWithRetry(ctx, opts)
}

// GenerateWithTools dispatches msgs with the given tool declarations and
// returns without executing any requested tools; the caller owns the tool
// loop.
func (c *Client) GenerateWithTools(ctx context.Context, msgs []*ai.Message, tools []ai.ToolRef) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.mainModel),
		ai.WithMessages(msgs...),
		ai.WithTools(tools...),
		ai.WithReturnToolRequests(true),
	}
	return c.generateWithRetry(ctx, opts)
}

// GenerateText runs a constrained one-shot generation over a bare prompt.
// Used for query rewriting and relevance judgments where the output must be
// short and deterministic.
func (c *Client) GenerateText(ctx context.Context, prompt string, genOpts Options) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.mainModel),
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     genOpts.Temperature,
			MaxOutputTokens: genOpts.MaxOutputTokens,
			StopSequences:   genOpts.StopSequences,
		}),
	}
	resp, err := c.generateWithRetry(ctx, opts)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GenerateVision runs a streaming generation against the vision model with
// a single user message carrying the image and prompt.
func (c *Client) GenerateVision(ctx context.Context, imagePath, prompt string, cb StreamCallback) (*ai.ModelResponse, error) {
	imagePart, err := imagePart(imagePath)
	if err != nil {
		return nil, fmt.Errorf("preparing image: %w", err)
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(c.visionModel),
		ai.WithMessages(ai.NewUserMessage(imagePart, ai.NewTextPart(prompt))),
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(ai.ModelStreamCallback(cb)))
	}
	return c.generateWithRetry(ctx, opts)
}
