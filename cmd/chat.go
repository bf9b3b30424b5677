package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kratt-ai/kratt/internal/chat"
	"github.com/kratt-ai/kratt/internal/config"
	"github.com/kratt-ai/kratt/internal/index"
	"github.com/kratt-ai/kratt/internal/llm"
	"github.com/kratt-ai/kratt/internal/log"
	"github.com/kratt-ai/kratt/internal/orchestrator"
	"github.com/kratt-ai/kratt/internal/tools"
	"github.com/kratt-ai/kratt/internal/websearch"
)

// session holds the interactive-mode state that survives across turns.
type session struct {
	orch       *orchestrator.Orchestrator
	transcript *chat.Transcript
	cfg        *config.Config
	webSearch  bool
	imagePath  string // consumed by the next turn
}

func runChat(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := llm.New(ctx, llm.Config{
		Host:          cfg.Host,
		MainModel:     cfg.MainModel,
		VisionModel:   cfg.VisionModel,
		EmbedderModel: cfg.EmbedderModel,
	}, logger)
	if err != nil {
		return fmt.Errorf("connecting to model runtime: %w", err)
	}

	registry, err := tools.NewRegistry(client.Genkit(), logger)
	if err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Generator: client,
		Tools:     registry,
		Searcher:  websearch.NewSearcher(logger),
		Fetcher:   websearch.NewScraper(cfg.Scraper, logger),
		NewIndex: func() orchestrator.Indexer {
			return index.New(client.Embedder(), cfg.RAG, logger)
		},
		Logger: logger,
	}, *cfg)
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	s := &session{
		orch:       orch,
		transcript: chat.NewTranscript(cfg.SystemPrompt),
		cfg:        cfg,
	}

	fmt.Printf("Kratt %s (model: %s)\n", AppVersion, cfg.MainModel)
	fmt.Println("Type /help for commands, /exit to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(line); quit {
				return nil
			}
			continue
		}
		s.runTurn(ctx, line)
	}
}

// handleCommand processes a slash command and reports whether the REPL
// should exit.
func (s *session) handleCommand(line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit", "/quit":
		return true
	case "/new":
		s.transcript.Reset(s.cfg.SystemPrompt)
		s.imagePath = ""
		fmt.Println("Started a new chat.")
	case "/web":
		s.webSearch = !s.webSearch
		if s.webSearch {
			fmt.Println("Web search enabled.")
		} else {
			fmt.Println("Web search disabled.")
		}
	case "/image":
		if arg == "" {
			fmt.Println("Usage: /image <path>")
			break
		}
		if _, err := os.Stat(arg); err != nil {
			fmt.Printf("Cannot read image: %v\n", err)
			break
		}
		s.imagePath = arg
		fmt.Println("Image attached to the next message.")
	case "/version":
		fmt.Printf("Kratt %s\n", AppVersion)
	case "/help":
		printChatHelp()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
	}
	return false
}

// runTurn dispatches one turn and renders its event stream. Ctrl+C during
// a turn requests a cooperative stop instead of killing the process.
func (s *session) runTurn(ctx context.Context, text string) {
	run, err := s.orch.Start(ctx, orchestrator.Request{
		Transcript: s.transcript,
		UserText:   text,
		ImagePath:  s.imagePath,
		WebSearch:  s.webSearch,
	})
	if err != nil {
		fmt.Printf("Cannot start turn: %v\n", err)
		return
	}
	s.imagePath = ""

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			run.RequestStop()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		signal.Stop(sigCh)
	}()

	statusShown := false
	for ev := range run.Events() {
		switch ev.Kind {
		case orchestrator.EventToken:
			if statusShown {
				fmt.Println()
				statusShown = false
			}
			fmt.Print(ev.Text)
		case orchestrator.EventStatus:
			if ev.Text != "" {
				fmt.Printf("\r\033[K[%s]", ev.Text)
				statusShown = true
			} else if statusShown {
				fmt.Print("\r\033[K")
				statusShown = false
			}
		case orchestrator.EventTerminal:
			fmt.Println()
			switch ev.Outcome.Reason {
			case orchestrator.ReasonStopped:
				fmt.Println("(stopped)")
			case orchestrator.ReasonErrored:
				fmt.Println("(generation failed)")
			default:
				fmt.Printf("(%d tokens in %.1fs)\n",
					ev.Outcome.TokenCount, ev.Outcome.Duration.Seconds())
			}
		}
	}
}

// newLogger builds the process logger. DEBUG in the environment raises the
// level; logs go to stderr so they never interleave with streamed output.
func newLogger() log.Logger {
	return log.New(log.Config{Level: logLevel()})
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func printChatHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /new             Start a new chat (clears history)")
	fmt.Println("  /web             Toggle web search for following messages")
	fmt.Println("  /image <path>    Attach an image to the next message")
	fmt.Println("  /version         Show version")
	fmt.Println("  /exit, /quit     Exit")
	fmt.Println()
	fmt.Println("Ctrl+C during a response requests a graceful stop.")
}
