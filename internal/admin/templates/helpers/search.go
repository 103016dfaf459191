package helpers

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// HighlightSegment represents a split section of text with optional emphasis.
type HighlightSegment struct {
	Text  string
	Match bool
	Empty bool
}

// HighlightSegments splits text into segments with case-insensitive matches of term marked.
// Matching walks whole runes of text, so every segment is a valid slice of the original.
func HighlightSegments(text, term string) []HighlightSegment {
	if term = strings.TrimSpace(term); term == "" {
		if text == "" {
			return nil
		}
		return []HighlightSegment{{Text: text}}
	}
	if text == "" {
		return []HighlightSegment{{Text: text}}
	}

	needle := []rune(term)
	var segments []HighlightSegment
	plain := 0
	for i := 0; i < len(text); {
		if n := foldPrefixLen(text[i:], needle); n > 0 {
			if plain < i {
				segments = append(segments, HighlightSegment{Text: text[plain:i]})
			}
			segments = append(segments, HighlightSegment{Text: text[i : i+n], Match: true})
			i += n
			plain = i
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	if plain < len(text) {
		segments = append(segments, HighlightSegment{Text: text[plain:]})
	}
	return segments
}

// foldPrefixLen returns the byte length of the prefix of s equal to needle under simple case
// folding, or 0 when s does not start with needle.
func foldPrefixLen(s string, needle []rune) int {
	n := 0
	for _, want := range needle {
		if n >= len(s) {
			return 0
		}
		r, size := utf8.DecodeRuneInString(s[n:])
		if !foldEqual(r, want) {
			return 0
		}
		n += size
	}
	return n
}

func foldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	for f := unicode.SimpleFold(a); f != a; f = unicode.SimpleFold(f) {
		if f == b {
			return true
		}
	}
	return false
}
