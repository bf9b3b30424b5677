package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kratt-ai/kratt/internal/log"
)

func newTestToolset(t *testing.T) *FileToolset {
	t.Helper()
	ft, err := NewFileToolset(log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return ft
}

// writeFiles creates a small tree under a fresh temp dir.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestSearchFilesFindsMatches(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"main.go":       "package main\n\nfunc main() {}\n",
		"sub/helper.go": "package sub\n// helper for main\n",
		"notes.txt":     "main is the entry point\n",
	})

	ft := newTestToolset(t)
	out := ft.SearchFiles(context.Background(), SearchFilesInput{
		Pattern:     "func main",
		Path:        dir,
		FilePattern: "*.go",
	})

	if !strings.HasPrefix(out, "Search results:\n") {
		t.Fatalf("output %q does not start with the results header", out)
	}
	if !strings.Contains(out, "main.go:3:func main() {}") {
		t.Errorf("output missing formatted match line:\n%s", out)
	}
	if strings.Contains(out, "notes.txt") {
		t.Errorf("output matched a file excluded by file_pattern:\n%s", out)
	}
}

func TestSearchFilesNoMatches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ft := newTestToolset(t)

	out := ft.SearchFiles(context.Background(), SearchFilesInput{
		Pattern: "missing_pattern_xyz",
		Path:    dir,
	})
	if !strings.HasPrefix(out, "No matches found for pattern 'missing_pattern_xyz'") {
		t.Errorf("output = %q, want a no-matches message", out)
	}
}

func TestSearchFilesEmptyPattern(t *testing.T) {
	t.Parallel()

	ft := newTestToolset(t)
	out := ft.SearchFiles(context.Background(), SearchFilesInput{Pattern: "   "})
	if out != "Error: Search pattern cannot be empty." {
		t.Errorf("output = %q, want the empty-pattern message", out)
	}
}

func TestSearchFilesInvalidDirectory(t *testing.T) {
	t.Parallel()

	ft := newTestToolset(t)
	out := ft.SearchFiles(context.Background(), SearchFilesInput{
		Pattern: "x",
		Path:    filepath.Join(t.TempDir(), "does-not-exist"),
	})
	if !strings.HasPrefix(out, "Error: '") || !strings.Contains(out, "is not a valid directory.") {
		t.Errorf("output = %q, want an invalid-directory message", out)
	}
}

func TestSearchFilesInvalidRegexFallsBackToLiteral(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"code.go": "value := m[key](\n",
	})

	ft := newTestToolset(t)
	out := ft.SearchFiles(context.Background(), SearchFilesInput{
		Pattern: "m[key](", // does not compile as a regex
		Path:    dir,
	})
	if !strings.Contains(out, "code.go:1:") {
		t.Errorf("literal fallback did not match:\n%s", out)
	}
}

func TestSearchFilesRespectsMaxResults(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"data.txt": strings.Repeat("needle\n", 10),
	})

	ft := newTestToolset(t)
	out := ft.SearchFiles(context.Background(), SearchFilesInput{
		Pattern:    "needle",
		Path:       dir,
		MaxResults: 3,
	})

	if !strings.Contains(out, "(Showing 3 results. Adjust max_results to see more.)") {
		t.Errorf("output missing truncation note:\n%s", out)
	}
	if strings.Contains(out, "4. ") {
		t.Errorf("output has more than 3 results:\n%s", out)
	}
}

func TestFindFiles(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"main.go":      "package main\n",
		"sub/util.go":  "package sub\n",
		"sub/data.txt": "text\n",
	})

	ft := newTestToolset(t)
	out := ft.FindFiles(context.Background(), FindFilesInput{
		NamePattern: "*.go",
		Path:        dir,
	})

	if !strings.HasPrefix(out, "Found files:\n") {
		t.Fatalf("output %q does not start with the found-files header", out)
	}
	if !strings.Contains(out, "main.go") || !strings.Contains(out, "util.go") {
		t.Errorf("output missing expected files:\n%s", out)
	}
	if strings.Contains(out, "data.txt") {
		t.Errorf("output matched a non-Go file:\n%s", out)
	}
}

func TestFindFilesNoMatches(t *testing.T) {
	t.Parallel()

	ft := newTestToolset(t)
	out := ft.FindFiles(context.Background(), FindFilesInput{
		NamePattern: "*.nothing",
		Path:        t.TempDir(),
	})
	if !strings.HasPrefix(out, "No files found matching '*.nothing'") {
		t.Errorf("output = %q, want a no-files message", out)
	}
}

func TestToolDefinitionsIntrospectable(t *testing.T) {
	t.Parallel()

	ft := newTestToolset(t)
	for _, tool := range ft.Tools() {
		def := tool.Definition()
		if def.Name == "" || def.Description == "" {
			t.Errorf("tool %+v has an incomplete declaration", def)
		}
		params, ok := def.Parameters["properties"].(map[string]any)
		if !ok || len(params) == 0 {
			t.Errorf("tool %s has no parameter properties", def.Name)
		}
		if req, ok := def.Parameters["required"].([]string); !ok || len(req) == 0 {
			t.Errorf("tool %s has no required parameters", def.Name)
		}
	}
}
