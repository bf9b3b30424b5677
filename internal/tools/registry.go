package tools

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kratt-ai/kratt/internal/log"
)

// Registry manages tool lookup and execution. The declarations it holds
// are introspectable without executing anything (Definitions), and
// execution never surfaces an error: all failures become the returned
// string so the result can always be appended to the transcript as a tool
// turn.
//
// Thread safety: read-only after construction.
type Registry struct {
	tools  map[string]*Tool
	order  []string // registration order, kept stable for exports
	refs   []ai.ToolRef
	logger log.Logger
}

// NewRegistry creates a registry holding the file-search tools. When g is
// non-nil the tools are also registered with Genkit so their schemas reach
// the model's tool-calling interface.
func NewRegistry(g *genkit.Genkit, logger log.Logger) (*Registry, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	ft, err := NewFileToolset(logger)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
	for _, t := range ft.Tools() {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}

	if g != nil {
		r.refs = registerWithGenkit(g, r, ft)
	}

	return r, nil
}

// registerWithGenkit declares the tools with typed handlers so Genkit
// derives parameter schemas from the input structs.
func registerWithGenkit(g *genkit.Genkit, r *Registry, ft *FileToolset) []ai.ToolRef {
	searchTool := genkit.DefineTool(g, ToolSearchFiles,
		r.tools[ToolSearchFiles].Definition().Description,
		func(tc *ai.ToolContext, input SearchFilesInput) (string, error) {
			return ft.SearchFiles(tc.Context, input), nil
		})
	findTool := genkit.DefineTool(g, ToolFindFiles,
		r.tools[ToolFindFiles].Definition().Description,
		func(tc *ai.ToolContext, input FindFilesInput) (string, error) {
			return ft.FindFiles(tc.Context, input), nil
		})
	return []ai.ToolRef{searchTool, findTool}
}

// Definitions returns the declarations of all registered tools in
// registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Refs returns the Genkit tool references for passing to a tool-calling
// generation. Empty when the registry was built without a Genkit instance.
func (r *Registry) Refs() []ai.ToolRef {
	return r.refs
}

// Execute dispatches to the named tool. Unknown names and malformed
// arguments become message strings, not errors.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Unknown tool: %s", name)
	}
	return t.Run(ctx, args)
}
