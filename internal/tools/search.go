package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kratt-ai/kratt/internal/log"
)

// Tool name constants. Single source of truth for registration and lookup.
const (
	ToolSearchFiles = "search_files"
	ToolFindFiles   = "find_files"
)

// Search defaults applied when the model omits optional arguments.
const (
	defaultSearchPath  = "."
	defaultFilePattern = "*"
	defaultMaxResults  = 20

	// maxLineLength bounds a single reported line so one pathological file
	// cannot blow up the tool result fed back to the model.
	maxLineLength = 500
)

// SearchFilesInput defines the arguments for search_files.
type SearchFilesInput struct {
	Pattern     string `json:"pattern"`
	Path        string `json:"path,omitempty"`
	FilePattern string `json:"file_pattern,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

// FindFilesInput defines the arguments for find_files.
type FindFilesInput struct {
	NamePattern string `json:"name_pattern"`
	Path        string `json:"path,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

// FileToolset provides the file-search tools.
type FileToolset struct {
	logger log.Logger
}

// NewFileToolset creates the file-search toolset.
func NewFileToolset(logger log.Logger) (*FileToolset, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &FileToolset{logger: logger}, nil
}

// Tools returns the tools provided by this toolset.
func (ft *FileToolset) Tools() []*Tool {
	return []*Tool{
		New(Definition{
			Name:        ToolSearchFiles,
			Description: "Search for text patterns in files within a directory. Useful for finding code, logs, or specific content in files.",
			Parameters: objectSchema(map[string]any{
				"pattern":      stringParam("Text or regex pattern to search for in files. Example: 'func main', 'error', 'TODO'"),
				"path":         stringParam("Directory path to search in. Can be relative or absolute. Defaults to current directory."),
				"file_pattern": stringParam("File glob pattern to filter by (e.g., '*.go', '*.txt'). Defaults to '*' (all files)."),
				"max_results":  intParam("Maximum number of results to return. Defaults to 20."),
			}, "pattern"),
		}, ft.SearchFiles),
		New(Definition{
			Name:        ToolFindFiles,
			Description: "Find files by name pattern within a directory. Useful for locating specific files or exploring directory structure.",
			Parameters: objectSchema(map[string]any{
				"name_pattern": stringParam("Filename pattern to search for (supports wildcards). Example: '*.go', 'config*'"),
				"path":         stringParam("Directory path to search in. Can be relative or absolute. Defaults to current directory."),
				"max_results":  intParam("Maximum number of results to return. Defaults to 20."),
			}, "name_pattern"),
		}, ft.FindFiles),
	}
}

// SearchFiles searches file contents under a directory for a pattern.
// The pattern is compiled as a regular expression; if it does not compile
// it is matched literally.
func (ft *FileToolset) SearchFiles(_ context.Context, input SearchFilesInput) string {
	ft.logger.Info("search_files called", "pattern", input.Pattern, "path", input.Path)

	if strings.TrimSpace(input.Pattern) == "" {
		return "Error: Search pattern cannot be empty."
	}

	searchPath, ok := resolveDir(input.Path)
	if !ok {
		return fmt.Sprintf("Error: '%s' is not a valid directory.", input.Path)
	}

	filePattern := input.FilePattern
	if filePattern == "" {
		filePattern = defaultFilePattern
	}
	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	re, err := regexp.Compile(input.Pattern)
	if err != nil {
		re = regexp.MustCompile(regexp.QuoteMeta(input.Pattern))
	}

	var results []string
	_ = filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if len(results) >= maxResults {
			return filepath.SkipAll
		}
		if d.IsDir() {
			return nil
		}
		if matched, _ := filepath.Match(filePattern, d.Name()); !matched {
			return nil
		}

		rel, err := filepath.Rel(searchPath, path)
		if err != nil {
			rel = path
		}
		results = append(results, grepFile(path, rel, re, maxResults-len(results))...)
		return nil
	})

	if len(results) == 0 {
		return fmt.Sprintf("No matches found for pattern '%s' in %s", input.Pattern, searchPath)
	}

	var sb strings.Builder
	sb.WriteString("Search results:\n")
	for i, line := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, line)
	}
	if len(results) >= maxResults {
		fmt.Fprintf(&sb, "\n(Showing %d results. Adjust max_results to see more.)", maxResults)
	}
	return sb.String()
}

// FindFiles locates files by name glob under a directory.
func (ft *FileToolset) FindFiles(_ context.Context, input FindFilesInput) string {
	ft.logger.Info("find_files called", "name_pattern", input.NamePattern, "path", input.Path)

	if strings.TrimSpace(input.NamePattern) == "" {
		return "Error: File name pattern cannot be empty."
	}

	searchPath, ok := resolveDir(input.Path)
	if !ok {
		return fmt.Sprintf("Error: '%s' is not a valid directory.", input.Path)
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	var results []string
	_ = filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if len(results) >= maxResults {
			return filepath.SkipAll
		}
		if d.IsDir() {
			return nil
		}
		if matched, _ := filepath.Match(input.NamePattern, d.Name()); matched {
			results = append(results, path)
		}
		return nil
	})

	if len(results) == 0 {
		return fmt.Sprintf("No files found matching '%s' in %s", input.NamePattern, searchPath)
	}

	var sb strings.Builder
	sb.WriteString("Found files:\n")
	for i, path := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, path)
	}
	if len(results) >= maxResults {
		fmt.Fprintf(&sb, "\n(Showing %d results. Adjust max_results to see more.)", maxResults)
	}
	return sb.String()
}

// grepFile returns up to limit matching lines from one file, formatted as
// "<relative-path>:<line-number>:<line-content>". Unreadable files yield
// no results.
func grepFile(path, rel string, re *regexp.Regexp, limit int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() && len(out) < limit {
		lineNum++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		line = strings.TrimRight(line, " \t\r")
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		out = append(out, fmt.Sprintf("%s:%d:%s", rel, lineNum, line))
	}
	return out
}

// resolveDir expands ~ and resolves the path to an absolute directory.
// Returns ok=false when the path does not name a directory.
func resolveDir(path string) (string, bool) {
	if path == "" {
		path = defaultSearchPath
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return abs, true
}
