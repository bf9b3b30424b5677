// Package tools declares the callable tools exposed to the model and
// executes them on its behalf.
//
// Tools are total functions over their inputs: every failure mode becomes a
// returned message string, never an error or panic, so a misbehaving tool
// call can always be fed back to the model as a tool result.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Definition is the introspectable declaration of one tool, shaped for
// export to a tool-calling model interface.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool pairs a declaration with its execution logic. Input decoding is
// type-erased so heterogeneous tools can live in one registry while
// handlers stay typed.
type Tool struct {
	def     Definition
	handler func(context.Context, map[string]any) string
}

// Definition returns the tool's declaration.
func (t *Tool) Definition() Definition {
	return t.def
}

// Name returns the tool's unique identifier.
func (t *Tool) Name() string {
	return t.def.Name
}

// Run executes the tool with raw argument values.
func (t *Tool) Run(ctx context.Context, args map[string]any) string {
	return t.handler(ctx, args)
}

// New creates a tool with a typed handler. Arguments arrive from the model
// as a loose map and are decoded via a JSON round-trip into In; malformed
// arguments become a message string before the handler is reached.
func New[In any](def Definition, handler func(context.Context, In) string) *Tool {
	return &Tool{
		def: def,
		handler: func(ctx context.Context, args map[string]any) string {
			var input In
			if args != nil {
				raw, err := json.Marshal(args)
				if err != nil {
					return fmt.Sprintf("Error: invalid arguments for %s: %v", def.Name, err)
				}
				if err := json.Unmarshal(raw, &input); err != nil {
					return fmt.Sprintf("Error: invalid arguments for %s: %v", def.Name, err)
				}
			}
			return handler(ctx, input)
		},
	}
}

// stringParam builds one string property for a parameter schema.
func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// intParam builds one integer property for a parameter schema.
func intParam(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// objectSchema builds a JSON-schema-shaped parameter object.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
