// Package chat defines the conversation transcript shared between the
// caller and the orchestrator.
//
// Ownership contract: while a run is active the transcript is mutated only
// by that run (the user turn at dispatch, tool exchanges during the loop,
// and the final assistant turn at termination); between runs the caller
// owns it. Order is append-only for the lifetime of a session; Reset is
// the only operation that replaces history, and it leaves exactly one
// fresh system turn.
package chat

import (
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// Role identifies the author of a turn.
type Role string

// Turn roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the model. Arguments are the
// raw values decoded from the model's structured output.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Turn is one exchange unit in a conversation.
type Turn struct {
	Role      Role
	Text      string
	ImagePath string    // optional, set on user turns carrying an image
	ToolCall  *ToolCall // set on tool turns: the call whose result Text holds
}

// Transcript is the ordered sequence of turns for one session. The first
// turn is always the system prompt.
type Transcript struct {
	turns []Turn
}

// NewTranscript creates a transcript seeded with the system prompt.
func NewTranscript(systemPrompt string) *Transcript {
	return &Transcript{turns: []Turn{{Role: RoleSystem, Text: systemPrompt}}}
}

// Append adds a turn to the end of the transcript.
func (t *Transcript) Append(turn Turn) {
	t.turns = append(t.turns, turn)
}

// Reset replaces all history with a single fresh system turn.
func (t *Transcript) Reset(systemPrompt string) {
	t.turns = []Turn{{Role: RoleSystem, Text: systemPrompt}}
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of the turn sequence.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// SystemPrompt returns the text of the leading system turn, or "" when the
// transcript is empty.
func (t *Transcript) SystemPrompt() string {
	if len(t.turns) == 0 || t.turns[0].Role != RoleSystem {
		return ""
	}
	return t.turns[0].Text
}

// Messages converts the transcript to model messages. Tool turns become
// tool-response messages; the system turn is skipped when includeSystem is
// false (the orchestrator substitutes its own system message for RAG runs).
func (t *Transcript) Messages(includeSystem bool) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(t.turns))
	for _, turn := range t.turns {
		if msg := turn.Message(includeSystem); msg != nil {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// Message converts a single turn to a model message, or nil when the turn
// has no model-facing representation.
func (turn Turn) Message(includeSystem bool) *ai.Message {
	switch turn.Role {
	case RoleSystem:
		if !includeSystem || strings.TrimSpace(turn.Text) == "" {
			return nil
		}
		return ai.NewSystemMessage(ai.NewTextPart(turn.Text))
	case RoleUser:
		return ai.NewUserMessage(ai.NewTextPart(turn.Text))
	case RoleAssistant:
		if turn.ToolCall != nil {
			return ai.NewModelMessage(ai.NewToolRequestPart(&ai.ToolRequest{
				Name:  turn.ToolCall.Name,
				Input: turn.ToolCall.Args,
			}))
		}
		return ai.NewModelMessage(ai.NewTextPart(turn.Text))
	case RoleTool:
		name := ""
		if turn.ToolCall != nil {
			name = turn.ToolCall.Name
		}
		return ai.NewMessage(ai.RoleTool, nil, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   name,
			Output: turn.Text,
		}))
	}
	return nil
}
