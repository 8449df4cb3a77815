package vt

import (
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

const (
	zeroWidthJoiner rune = 0x200d
	vs15            rune = 0xfe0e
	vs16            rune = 0xfe0f
)

// Graphemes splits s into grapheme clusters.
func Graphemes(s string) []string {
	var out []string
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		out = append(out, cluster)
	}
	return out
}

// GraphemeWidth computes the display width of a single grapheme cluster
// with wcswidth-style semantics: East Asian Wide and Fullwidth code
// points occupy two columns, Ambiguous one; joiners, combining marks and
// variation selectors occupy zero. An emoji presentation selector (VS16)
// or a ZWJ-joined emoji sequence forces width 2, so that sequences like
// a heart plus VS16 render as one double-width glyph.
func GraphemeWidth(g string) int {
	if g == "" {
		return 0
	}

	width := 0
	for _, r := range g {
		switch {
		case r == vs16:
			// Emoji presentation: the whole cluster is wide.
			return 2
		case r == zeroWidthJoiner:
			// A ZWJ sequence collapses to a single wide glyph.
			return 2
		case r == vs15 || isZeroWidth(r):
			// contributes nothing
		default:
			if w := runewidth.RuneWidth(r); w > width {
				width = w
			}
		}
	}
	return width
}

func isZeroWidth(r rune) bool {
	return unicode.In(r, unicode.Mn, unicode.Me, unicode.Cf)
}

// extendsPrevious reports whether the grapheme begins with a code point
// that joins onto preceding output rather than starting a new glyph.
// Chunked reads can split a cluster so that its extending code points
// arrive on their own; such fragments are folded into the cell written
// just before them.
func extendsPrevious(g string) bool {
	for _, r := range g {
		switch {
		case r == vs15 || r == vs16 || r == zeroWidthJoiner:
			return true
		case unicode.In(r, unicode.Mn, unicode.Me):
			return true
		case r >= 0x1f3fb && r <= 0x1f3ff: // emoji skin tone modifiers
			return true
		}
		return false
	}
	return false
}
