package usecases

import (
	"strings"
	"unicode"
)

const (
	defaultChunkSize     = 1000
	defaultChunkOverlap  = 200
	defaultMinTextLength = 50

	// boundaryWindow is how far back from a window's end a break point is searched.
	boundaryWindow = 200
)

// ChunkText splits text into overlapping chunks of at most size runes.
// Each cut prefers, within the last boundaryWindow runes of the window, a
// paragraph break, then a sentence end, then any whitespace. Text shorter
// than minLen runes yields no chunks.
func ChunkText(text string, size, overlap, minLen int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) == 0 || len(runes) < minLen {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			searchStart := end - boundaryWindow
			if searchStart < start {
				searchStart = start
			}
			if cut := breakPoint(runes[searchStart:end]); cut > 0 {
				end = searchStart + cut
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
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

// breakPoint returns the offset just past the best boundary in window, or 0.
func breakPoint(window []rune) int {
	if i := lastParagraphBreak(window); i > 0 {
		return i
	}
	if i := lastSentenceEnd(window); i > 0 {
		return i
	}
	for i := len(window) - 1; i >= 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return 0
}

func lastParagraphBreak(window []rune) int {
	for i := len(window) - 2; i >= 0; i-- {
		if window[i] == '\n' && window[i+1] == '\n' {
			return i + 2
		}
	}
	return 0
}

func lastSentenceEnd(window []rune) int {
	for i := len(window) - 2; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?', '।':
			if unicode.IsSpace(window[i+1]) {
				return i + 2
			}
		}
	}
	return 0
}
