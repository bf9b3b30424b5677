package index

import "strings"

// splitText breaks text into chunks of at most size runes with the given
// overlap carried between consecutive chunks. Break points prefer
// paragraph boundaries, then line breaks, then word boundaries, falling
// back to a hard cut for unbroken runs. Offsets are rune-based so a cut
// never lands inside a multibyte character.
func splitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if size <= 0 {
		size = len(runes)
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint finds the best cut position in runes[start:end], scanning
// backwards but never past the window's midpoint so chunks stay close to
// the target size.
func breakPoint(runes []rune, start, end int) int {
	window := runes[start:end]
	floor := len(window) / 2

	for i := len(window) - 1; i > floor; i-- {
		if window[i] == '\n' && window[i-1] == '\n' {
			return start + i + 1
		}
	}
	for i := len(window) - 1; i > floor; i-- {
		if window[i] == '\n' {
			return start + i + 1
		}
	}
	for i := len(window) - 1; i > floor; i-- {
		if window[i] == ' ' {
			return start + i + 1
		}
	}
	return end
}
