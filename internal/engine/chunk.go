package engine

import (
	"strings"
	"unicode"
)

// isSentencePunct reports whether a rune ends a sentence-like run
func isSentencePunct(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':':
		return true
	}
	return false
}

// splitChunks divides text into pieces of at most maxRunes characters,
// preferring to cut after sentence punctuation, then at a space. A single
// token longer than the limit is cut hard. Chunks are trimmed and never
// empty; word boundaries are preserved otherwise.
func splitChunks(text string, maxRunes int) []string {
	var chunks []string
	runes := []rune(strings.TrimSpace(text))

	for len(runes) > maxRunes {
		punct, space := -1, -1
		for i := 0; i < maxRunes; i++ {
			switch {
			case isSentencePunct(runes[i]):
				punct = i + 1
			case unicode.IsSpace(runes[i]):
				space = i + 1
			}
		}

		cut := punct
		if cut <= 0 {
			cut = space
		}
		if cut <= 0 {
			cut = maxRunes
		}

		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = runes[cut:]
		for len(runes) > 0 && unicode.IsSpace(runes[0]) {
			runes = runes[1:]
		}
	}

	if rest := strings.TrimSpace(string(runes)); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}
