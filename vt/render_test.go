package vt

import (
	"strings"
	"testing"

	"github.com/pborman/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLine_PlainTextHasNoEscapes(t *testing.T) {
	s := NewScreen(10, 2, 0)
	feed(t, s, "hello")

	line := s.RenderLine(0)
	assert.Equal(t, "hello     ", line)
}

func TestRenderLine_EmitsPenTransitionsAndFinalReset(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(10, 2, 0)
	feed(t, s, "a\x1b[31mb\x1b[0mc")

	line := s.RenderLine(0)
	assert.Equal("a\x1b[0;31mb\x1b[0mc"+strings.Repeat(" ", 7)+"\x1b[0m", line)
}

func TestRenderLine_CompactAndExtendedColorForms(t *testing.T) {
	tests := []struct {
		name  string
		pen   string
		wants string
	}{
		{"base 16", "\x1b[34;42m", "\x1b[0;34;42m"},
		{"bright", "\x1b[95m", "\x1b[0;95m"},
		{"256", "\x1b[38;5;200m", "\x1b[0;38;5;200m"},
		{"truecolor", "\x1b[48;2;1;2;3m", "\x1b[0;48;2;1;2;3m"},
		{"attrs before colors", "\x1b[1;4;7;31m", "\x1b[0;1;4;7;31m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScreen(4, 1, 0)
			feed(t, s, tt.pen+"x")
			line := s.RenderLine(0)
			assert.True(t, strings.HasPrefix(line, tt.wants+"x"), "got %q", line)
			assert.True(t, strings.HasSuffix(line, "\x1b[0m"))
		})
	}
}

func TestRenderLine_WideGlyphSpansBothColumns(t *testing.T) {
	s := NewScreen(6, 1, 0)
	feed(t, s, "🐛ab")

	assert.Equal(t, "🐛ab  ", s.RenderLine(0), "the continuation cell emits nothing")
}

// TestRenderLines_StripRoundTrip checks the rendered output against an
// independent ANSI parser: stripping the escapes must yield exactly the
// plain rows.
func TestRenderLines_StripRoundTrip(t *testing.T) {
	inputs := []string{
		"plain text",
		"\x1b[31mred\x1b[0m then \x1b[1;44mbold on blue",
		"mixed 🐛 wide \x1b[38;5;99mand❤️colored",
		"\x1b[7minverse\x1b[27m normal \x1b[4munderline",
	}
	for _, in := range inputs {
		s := NewScreen(40, 3, 0)
		feed(t, s, in)
		for r := 0; r < s.Rows(); r++ {
			stripped, err := ansi.Strip([]byte(s.RenderLine(r)))
			require.NoError(t, err)
			assert.Equal(t, s.PlainRow(r), string(stripped), "row %d of %q", r, in)
		}
	}
}

func TestRenderLines_BlankRowsRenderAsSpaces(t *testing.T) {
	s := NewScreen(5, 3, 0)
	feed(t, s, "a\r\nb")

	lines := s.RenderLines()
	require.Len(t, lines, 3)
	assert.Equal(t, "a    ", lines[0])
	assert.Equal(t, "b    ", lines[1])
	assert.Equal(t, "     ", lines[2])
}
