package helpers

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestHighlightSegmentsMarksEveryMatch(t *testing.T) {
	t.Parallel()

	require.Equal(t, []HighlightSegment{
		{Text: "Ear"},
		{Text: "ring", Match: true},
		{Text: "s and "},
		{Text: "RING", Match: true},
	}, HighlightSegments("Earrings and RING", " ring "))

	require.Equal(t, []HighlightSegment{{Text: "Gold Chain"}}, HighlightSegments("Gold Chain", "pearl"))
	require.Equal(t, []HighlightSegment{{Text: "Gold Chain"}}, HighlightSegments("Gold Chain", "  "))
	require.Nil(t, HighlightSegments("", ""))
}

func TestHighlightSegmentsKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	// The Kelvin sign lowercases to a one-byte k, which shifts byte offsets.
	segments := HighlightSegments("\u212Aab", "ab")
	require.Equal(t, []HighlightSegment{{Text: "\u212A"}, {Text: "ab", Match: true}}, segments)

	require.Equal(t, []HighlightSegment{{Text: "\u212Aab", Match: true}}, HighlightSegments("\u212Aab", "kab"))

	segments = HighlightSegments("\u00c9CLAT Ring, \u00e9clat", "\u00e9clat")
	require.Equal(t, []HighlightSegment{
		{Text: "\u00c9CLAT", Match: true},
		{Text: " Ring, "},
		{Text: "\u00e9clat", Match: true},
	}, segments)

	for _, text := range []string{"\u0130stanbul ring", "Stra\u00dfe", "\u212A\u212Aring"} {
		for _, seg := range HighlightSegments(text, "ring") {
			require.True(t, utf8.ValidString(seg.Text), "%q split inside a rune", text)
		}
	}
}
