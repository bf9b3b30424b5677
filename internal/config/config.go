// Package config manages kratt settings with multi-source priority.
//
// Settings sources (highest to lowest priority):
//  1. Environment variables (KRATT_ prefix, runtime override)
//  2. Settings file (~/.kratt/settings.json)
//  3. Compiled-in defaults
//
// A missing settings file, or one containing invalid JSON, silently yields
// the defaults; the user is never blocked on a broken settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"
)

// Sentinel errors for settings validation.
var (
	// ErrInvalidModel indicates an empty or malformed model name.
	ErrInvalidModel = errors.New("invalid model name")

	// ErrInvalidHost indicates the runtime host URL is malformed.
	ErrInvalidHost = errors.New("invalid runtime host")

	// ErrInvalidChunking indicates chunk size/overlap values are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking configuration")
)

// Default model identifiers for the local runtime.
const (
	DefaultMainModel     = "qwen2.5:7b"
	DefaultVisionModel   = "moondream:latest"
	DefaultEmbedderModel = "nomic-embed-text"

	// DefaultHost is the local model runtime address.
	DefaultHost = "http://localhost:11434"
)

// DefaultSystemPrompt is the compiled-in assistant persona.
const DefaultSystemPrompt = `You are Kratt, a helpful desktop assistant. Your role is to assist and engage in conversation while being helpful, respectful, and accurate.

CORE BEHAVIOR:
- Be concise and direct.
- If a question is vague, ask for clarification.
- Admit when you don't know something.

TOOLS:
- You have access to file system tools. Use them when asked to search or locate files.
- If you lack information, you may suggest performing a web search (if enabled).

FORMATTING:
- Use Markdown (headers, lists, bold).
- Use code blocks with language identifiers.`

// SearchConfig tunes the web-search stage of the retrieval pipeline.
type SearchConfig struct {
	MaxResults int `mapstructure:"max_results" json:"max_results"` // results requested from the provider
	MaxSources int `mapstructure:"max_sources" json:"max_sources"` // URLs carried into fetching
}

// ScraperConfig tunes the page fetcher.
type ScraperConfig struct {
	MaxPagesPerSite int `mapstructure:"max_pages_per_site" json:"max_pages_per_site"`
	DelayMs         int `mapstructure:"delay_ms" json:"delay_ms"`
	TimeoutMs       int `mapstructure:"timeout_ms" json:"timeout_ms"`
	Parallelism     int `mapstructure:"parallelism" json:"parallelism"`
}

// RAGConfig tunes chunking and retrieval.
type RAGConfig struct {
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	TopK         int `mapstructure:"top_k" json:"top_k"`
}

// Config stores the application settings.
type Config struct {
	MainModel     string `mapstructure:"main_model" json:"main_model"`
	VisionModel   string `mapstructure:"vision_model" json:"vision_model"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	SystemPrompt  string `mapstructure:"system_prompt" json:"system_prompt"`
	Host          string `mapstructure:"host" json:"host"`
	MaxTurns      int    `mapstructure:"max_turns" json:"max_turns"`

	Search  SearchConfig  `mapstructure:"search" json:"search"`
	Scraper ScraperConfig `mapstructure:"scraper" json:"scraper"`
	RAG     RAGConfig     `mapstructure:"rag" json:"rag"`
}

// Delay returns the inter-page fetch delay as a duration.
func (c ScraperConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// Timeout returns the per-page fetch timeout as a duration.
func (c ScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Dir returns the kratt settings directory (~/.kratt), creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".kratt")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating settings directory: %w", err)
	}
	return dir, nil
}

// Load reads settings from the default location, merged over defaults.
func Load(logger *slog.Logger) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "settings.json"), logger)
}

// LoadFrom reads settings from path, merged over defaults. A missing or
// unparsable file yields the defaults.
func LoadFrom(path string, logger *slog.Logger) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("KRATT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Defaults cover every key; a broken or absent file is not fatal.
		var notFound viper.ConfigFileNotFoundError
		if os.IsNotExist(err) || errors.As(err, &notFound) {
			logger.Debug("settings file not found, using defaults", "path", path)
		} else {
			logger.Warn("settings file unreadable, using defaults", "path", path, "error", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Warn("settings file malformed, using defaults", "path", path, "error", err)
		cfg = defaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes settings as JSON to the default location. A file lock guards
// against concurrent writers (e.g. two kratt processes saving settings).
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "settings.json")

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking settings file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Validate checks settings ranges. Called after every load.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.MainModel) == "" {
		return fmt.Errorf("%w: main_model is empty", ErrInvalidModel)
	}
	if strings.TrimSpace(c.VisionModel) == "" {
		return fmt.Errorf("%w: vision_model is empty", ErrInvalidModel)
	}
	if !strings.HasPrefix(c.Host, "http://") && !strings.HasPrefix(c.Host, "https://") {
		return fmt.Errorf("%w: %q", ErrInvalidHost, c.Host)
	}
	if c.RAG.ChunkSize <= 0 || c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunking, c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := defaults()
	v.SetDefault("main_model", d.MainModel)
	v.SetDefault("vision_model", d.VisionModel)
	v.SetDefault("embedder_model", d.EmbedderModel)
	v.SetDefault("system_prompt", d.SystemPrompt)
	v.SetDefault("host", d.Host)
	v.SetDefault("max_turns", d.MaxTurns)

	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.max_sources", d.Search.MaxSources)

	v.SetDefault("scraper.max_pages_per_site", d.Scraper.MaxPagesPerSite)
	v.SetDefault("scraper.delay_ms", d.Scraper.DelayMs)
	v.SetDefault("scraper.timeout_ms", d.Scraper.TimeoutMs)
	v.SetDefault("scraper.parallelism", d.Scraper.Parallelism)

	v.SetDefault("rag.chunk_size", d.RAG.ChunkSize)
	v.SetDefault("rag.chunk_overlap", d.RAG.ChunkOverlap)
	v.SetDefault("rag.top_k", d.RAG.TopK)
}

func defaults() Config {
	return Config{
		MainModel:     DefaultMainModel,
		VisionModel:   DefaultVisionModel,
		EmbedderModel: DefaultEmbedderModel,
		SystemPrompt:  DefaultSystemPrompt,
		Host:          DefaultHost,
		MaxTurns:      5,
		Search: SearchConfig{
			MaxResults: 10,
			MaxSources: 3,
		},
		Scraper: ScraperConfig{
			MaxPagesPerSite: 1,
			DelayMs:         500,
			TimeoutMs:       15000,
			Parallelism:     2,
		},
		RAG: RAGConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
			TopK:         4,
		},
	}
}
