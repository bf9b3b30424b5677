package index

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTextEmpty(t *testing.T) {
	t.Parallel()

	if got := splitText("", 500, 50); got != nil {
		t.Errorf("splitText(empty) = %v, want nil", got)
	}
	if got := splitText("   \n\t  ", 500, 50); got != nil {
		t.Errorf("splitText(whitespace) = %v, want nil", got)
	}
}

func TestSplitTextShortInputSingleChunk(t *testing.T) {
	t.Parallel()

	got := splitText("a short document", 500, 50)
	if len(got) != 1 || got[0] != "a short document" {
		t.Errorf("splitText(short) = %v, want one unchanged chunk", got)
	}
}

func TestSplitTextBoundsChunkSize(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 400) // ~2000 chars
	chunks := splitText(text, 500, 50)

	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want several for a 2000-char input", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 500 {
			t.Errorf("chunks[%d] length = %d, want <= 500", i, len(c))
		}
	}
}

func TestSplitTextCoversWholeInput(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("alpha beta gamma delta. ", 100)
	chunks := splitText(text, 200, 20)

	joined := strings.Join(chunks, " ")
	for _, word := range []string{"alpha", "beta", "gamma", "delta"} {
		if !strings.Contains(joined, word) {
			t.Errorf("chunks are missing %q", word)
		}
	}
	// Tail of the input must survive splitting.
	if !strings.Contains(chunks[len(chunks)-1], "delta.") {
		t.Errorf("last chunk %q does not reach the end of the input", chunks[len(chunks)-1])
	}
}

func TestSplitTextPrefersParagraphBreaks(t *testing.T) {
	t.Parallel()

	para1 := strings.Repeat("x", 300)
	para2 := strings.Repeat("y", 300)
	chunks := splitText(para1+"\n\n"+para2, 500, 0)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2 (split at the paragraph break)", len(chunks))
	}
	if strings.Contains(chunks[0], "y") {
		t.Errorf("first chunk crosses the paragraph boundary: %q", chunks[0][:50])
	}
}

func TestSplitTextUnbrokenRunHardCut(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("z", 1200)
	chunks := splitText(text, 500, 50)

	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want at least 3 hard-cut chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 500 {
			t.Errorf("chunks[%d] length = %d, want <= 500", i, len(c))
		}
	}
}

func TestSplitTextMultibyteHardCut(t *testing.T) {
	t.Parallel()

	// 600 runes, no spaces or newlines, 3 bytes per rune.
	text := strings.Repeat("世界和平与发展是当今时代的主题", 40)
	chunks := splitText(text, 500, 50)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunks[%d] is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(c); n > 500 {
			t.Errorf("chunks[%d] rune count = %d, want <= 500", i, n)
		}
	}
	if !strings.HasSuffix(chunks[len(chunks)-1], "主题") {
		t.Errorf("last chunk does not reach the end of the input")
	}
}

func TestSplitTextOverlapCarriesContext(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("q", 1000)
	chunks := splitText(text, 500, 50)

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	// Overlap duplicates content, so the chunk total exceeds the input.
	if total <= len(text) {
		t.Errorf("total chunk length = %d, want > %d with overlap", total, len(text))
	}
}
