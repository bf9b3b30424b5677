package chat

import (
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestNewTranscriptSeedsSystemTurn(t *testing.T) {
	t.Parallel()

	tr := NewTranscript("be helpful")
	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}
	if got := tr.SystemPrompt(); got != "be helpful" {
		t.Errorf("SystemPrompt() = %q, want %q", got, "be helpful")
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	t.Parallel()

	tr := NewTranscript("sys")
	tr.Append(Turn{Role: RoleUser, Text: "first"})
	tr.Append(Turn{Role: RoleAssistant, Text: "second"})
	tr.Append(Turn{Role: RoleUser, Text: "third"})

	turns := tr.Turns()
	want := []string{"sys", "first", "second", "third"}
	if len(turns) != len(want) {
		t.Fatalf("Len() = %d, want %d", len(turns), len(want))
	}
	for i, text := range want {
		if turns[i].Text != text {
			t.Errorf("turns[%d].Text = %q, want %q", i, turns[i].Text, text)
		}
	}
}

func TestResetLeavesSingleSystemTurn(t *testing.T) {
	t.Parallel()

	tr := NewTranscript("old prompt")
	tr.Append(Turn{Role: RoleUser, Text: "hello"})
	tr.Append(Turn{Role: RoleAssistant, Text: "hi"})

	tr.Reset("new prompt")

	if tr.Len() != 1 {
		t.Fatalf("Len() after Reset = %d, want 1", tr.Len())
	}
	if got := tr.SystemPrompt(); got != "new prompt" {
		t.Errorf("SystemPrompt() after Reset = %q, want %q", got, "new prompt")
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	t.Parallel()

	tr := NewTranscript("sys")
	tr.Append(Turn{Role: RoleUser, Text: "hello"})

	snapshot := tr.Turns()
	tr.Append(Turn{Role: RoleAssistant, Text: "hi"})

	if len(snapshot) != 2 {
		t.Errorf("len(snapshot) = %d, want 2 (unaffected by later appends)", len(snapshot))
	}
	if tr.Len() != 3 {
		t.Errorf("tr.Len() = %d, want 3", tr.Len())
	}
}

func TestMessagesRoleMapping(t *testing.T) {
	t.Parallel()

	call := &ToolCall{Name: "search_files", Args: map[string]any{"pattern": "main"}}

	tr := NewTranscript("sys")
	tr.Append(Turn{Role: RoleUser, Text: "find main"})
	tr.Append(Turn{Role: RoleAssistant, ToolCall: call})
	tr.Append(Turn{Role: RoleTool, Text: "1. main.go:1:package main", ToolCall: call})
	tr.Append(Turn{Role: RoleAssistant, Text: "It is in main.go."})

	msgs := tr.Messages(true)
	wantRoles := []ai.Role{ai.RoleSystem, ai.RoleUser, ai.RoleModel, ai.RoleTool, ai.RoleModel}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("Messages(true) len = %d, want %d", len(msgs), len(wantRoles))
	}
	for i, role := range wantRoles {
		if msgs[i].Role != role {
			t.Errorf("msgs[%d].Role = %q, want %q", i, msgs[i].Role, role)
		}
	}

	// The assistant tool-call turn carries a tool request part.
	if req := msgs[2].Content[0].ToolRequest; req == nil || req.Name != "search_files" {
		t.Errorf("msgs[2] tool request = %+v, want search_files", req)
	}
	// The tool turn carries the result as a tool response part.
	if resp := msgs[3].Content[0].ToolResponse; resp == nil || resp.Output != "1. main.go:1:package main" {
		t.Errorf("msgs[3] tool response = %+v, want the tool result", resp)
	}
}

func TestMessagesExcludesSystem(t *testing.T) {
	t.Parallel()

	tr := NewTranscript("sys")
	tr.Append(Turn{Role: RoleUser, Text: "hello"})

	msgs := tr.Messages(false)
	if len(msgs) != 1 {
		t.Fatalf("Messages(false) len = %d, want 1", len(msgs))
	}
	if msgs[0].Role != ai.RoleUser {
		t.Errorf("msgs[0].Role = %q, want user", msgs[0].Role)
	}
}
