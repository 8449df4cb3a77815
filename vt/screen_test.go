package vt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(t *testing.T, s *Screen, input string) {
	t.Helper()
	p := NewParser(s, nil)
	n := p.Feed([]byte(input))
	require.Equal(t, len(input), n, "input should be fully consumable")
}

// checkGrid asserts the two grid invariants: the cursor is in bounds and
// every row's cell widths sum to the column count.
func checkGrid(t *testing.T, s *Screen) {
	t.Helper()
	col, row := s.Cursor()
	assert.GreaterOrEqual(t, col, 0)
	assert.Less(t, col, s.Cols())
	assert.GreaterOrEqual(t, row, 0)
	assert.Less(t, row, s.Rows())
	for r := 0; r < s.Rows(); r++ {
		sum := 0
		for _, c := range s.Row(r) {
			sum += c.Width
			if c.Width == 0 {
				assert.Empty(t, c.Content, "continuation cells carry no content")
			}
		}
		assert.Equal(t, s.Cols(), sum, "row %d widths must sum to cols", r)
	}
}

func trimmedRow(s *Screen, r int) string {
	return strings.TrimRight(s.PlainRow(r), " ")
}

func TestScreen_CursorAddressedEmojiPlacement(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(80, 24, 0)
	feed(t, s, "abcdefg\x1b[1;2H🐛")

	assert.Equal("a", s.CellAt(0, 0).Content)
	assert.Equal("🐛", s.CellAt(1, 0).Content)
	assert.Equal(2, s.CellAt(1, 0).Width)
	assert.True(s.CellAt(2, 0).IsContinuation(), "col 2 is the wide glyph's right half")
	assert.Equal("d", s.CellAt(3, 0).Content)
	assert.Equal("g", s.CellAt(6, 0).Content)
	assert.Equal("a🐛defg", trimmedRow(s, 0))
	checkGrid(t, s)
}

func TestScreen_VS16HeartCoalesced(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(80, 24, 0)
	feed(t, s, "abcdefg\x1b[1;2H❤️")

	cell := s.CellAt(1, 0)
	assert.Equal("❤️", cell.Content, "heart and VS16 form one grapheme")
	assert.Equal(2, cell.Width)
	assert.True(s.CellAt(2, 0).IsContinuation())
	assert.Equal("d", s.CellAt(3, 0).Content)
	checkGrid(t, s)
}

func TestScreen_EndOfRowWideWriteAfterAbsoluteMove(t *testing.T) {
	assert := assert.New(t)

	const cols = 80
	s := NewScreen(cols, 24, 0)
	feed(t, s, strings.Repeat("-", cols)+"\x1b[1;5H🐛")

	assert.Equal("-", s.CellAt(3, 0).Content)
	assert.Equal("🐛", s.CellAt(4, 0).Content)
	assert.True(s.CellAt(5, 0).IsContinuation())
	assert.Equal("-", s.CellAt(6, 0).Content)
	assert.Equal("", trimmedRow(s, 1), "absolute move cleared the pending wrap")
	checkGrid(t, s)
}

func TestScreen_WideGlyphAtStartThenOverwrite(t *testing.T) {
	assert := assert.New(t)

	const cols = 80
	s := NewScreen(cols, 24, 0)
	feed(t, s, "🐛"+strings.Repeat("-", cols-2)+"\x1b[;5H aaron ")

	assert.Equal("🐛", s.CellAt(0, 0).Content)
	assert.True(s.CellAt(1, 0).IsContinuation())
	assert.Equal("-", s.CellAt(2, 0).Content)
	assert.Equal("-", s.CellAt(3, 0).Content)
	assert.Equal("🐛-- aaron "+strings.Repeat("-", cols-11), s.PlainRow(0))
	checkGrid(t, s)
}

func TestScreen_OverwriteContinuationBreaksGlyph(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(80, 24, 0)
	feed(t, s, "❤️a\x1b[2D.\n..")

	// the dot lands on the heart's continuation cell, so the heart
	// collapses to a blank
	assert.Equal(" ", s.CellAt(0, 0).Content)
	assert.Equal(".", s.CellAt(1, 0).Content)
	assert.Equal("a", s.CellAt(2, 0).Content)

	// LF keeps the column, so the dots start where the first one ended
	assert.Equal(".", s.CellAt(2, 1).Content)
	assert.Equal(".", s.CellAt(3, 1).Content)
	checkGrid(t, s)
}

func TestScreen_WideGlyphWrapsWholeAtRightEdge(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(10, 4, 0)
	feed(t, s, "abcdefghi🐛")

	assert.Equal("i", s.CellAt(8, 0).Content)
	assert.Equal(" ", s.CellAt(9, 0).Content, "last column stays blank; wide glyphs never split")
	assert.Equal("🐛", s.CellAt(0, 1).Content)
	assert.True(s.CellAt(1, 1).IsContinuation())
	checkGrid(t, s)
}

func TestScreen_WrapPendingDefersUntilNextPrintable(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(5, 3, 0)
	feed(t, s, "abcde")

	col, row := s.Cursor()
	assert.Equal(4, col, "cursor holds the last column until the next printable")
	assert.Equal(0, row)

	feed(t, s, "f")
	col, row = s.Cursor()
	assert.Equal(1, col)
	assert.Equal(1, row)
	assert.Equal("f", s.CellAt(0, 1).Content)
	checkGrid(t, s)
}

func TestScreen_ScrollbackRetainsScrolledRows(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := NewScreen(10, 2, 3)
	feed(t, s, "one\r\ntwo\r\nthree\r\nfour")

	sb := s.Scrollback()
	require.Len(sb, 2)
	assert.Equal("three", trimmedRow(s, 0))
	assert.Equal("four", trimmedRow(s, 1))

	lines := s.RenderScrollbackLines()
	require.Len(lines, 2)
	assert.Equal("one", strings.TrimRight(lines[0], " "))
	assert.Equal("two", strings.TrimRight(lines[1], " "))
}

func TestScreen_ScrollbackCapDropsOldest(t *testing.T) {
	s := NewScreen(10, 1, 2)
	feed(t, s, "a\r\nb\r\nc\r\nd")

	sb := s.Scrollback()
	require.Len(t, sb, 2)
	assert.Equal(t, "b", strings.TrimRight(rowString(sb[0]), " "))
	assert.Equal(t, "c", strings.TrimRight(rowString(sb[1]), " "))
}

func rowString(row []Cell) string {
	var b strings.Builder
	for _, c := range row {
		if c.IsContinuation() {
			continue
		}
		b.WriteString(c.Content)
	}
	return b.String()
}

func TestScreen_EraseInLineAndDisplay(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(10, 3, 0)
	feed(t, s, "aaaaa\r\nbbbbb\r\nccccc\x1b[2;3H")

	feed(t, s, "\x1b[K") // cursor to end of line
	assert.Equal("bb", trimmedRow(s, 1))

	feed(t, s, "\x1b[1J") // start of display to cursor
	assert.Equal("", trimmedRow(s, 0))
	assert.Equal("", trimmedRow(s, 1))
	assert.Equal("ccccc", trimmedRow(s, 2))

	feed(t, s, "\x1b[2J")
	for r := 0; r < 3; r++ {
		assert.Equal("", trimmedRow(s, r))
	}
	checkGrid(t, s)
}

func TestScreen_EraseDetachesStraddlingWideGlyph(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(10, 2, 0)
	feed(t, s, "🐛ab\x1b[1;2H\x1b[K")

	// erasing from the continuation cell blanks the left half too
	assert.Equal(" ", s.CellAt(0, 0).Content)
	assert.False(s.CellAt(1, 0).IsContinuation())
	checkGrid(t, s)
}

func TestScreen_ResizePreservesIntersection(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(10, 4, 0)
	feed(t, s, "hello\r\nworld")

	s.Resize(3, 2)
	assert.Equal("hel", s.PlainRow(0))
	assert.Equal("wor", s.PlainRow(1))
	checkGrid(t, s)

	s.Resize(8, 3)
	assert.Equal("hel", trimmedRow(s, 0))
	checkGrid(t, s)
}

func TestScreen_ResizeBlanksHalvedWideGlyph(t *testing.T) {
	s := NewScreen(4, 1, 0)
	feed(t, s, "a🐛")

	s.Resize(2, 1)
	assert.Equal(t, " ", s.CellAt(1, 0).Content, "a wide glyph cut by the new edge becomes blank")
	checkGrid(t, s)
}

// TestScreen_InvariantsUnderHostileInput throws structurally nasty
// streams at the grid and checks the bounds invariants after each.
func TestScreen_InvariantsUnderHostileInput(t *testing.T) {
	inputs := []string{
		strings.Repeat("🐛", 100),
		strings.Repeat("x\b", 50),
		"\x1b[999;999H*",
		"\x1b[0;0Hq",
		strings.Repeat("line\r\n", 40),
		"\x1b[5Dback",
		"tab\there\tand\tmore\t\t\t",
		"❤️❤️❤️\x1b[1;1H..",
		strings.Repeat("ab❤️", 30),
		"\x1b[2J\x1b[1;1H🐛🐛🐛🐛🐛",
	}
	for _, in := range inputs {
		s := NewScreen(7, 3, 5)
		feed(t, s, in)
		checkGrid(t, s)
	}
}

func TestScreen_SplitGraphemeFragmentMergesRetroactively(t *testing.T) {
	assert := assert.New(t)

	s := NewScreen(10, 2, 0)
	p := NewParser(s, nil)

	// the heart arrives alone, then its VS16 in a later feed
	n := p.Feed([]byte("❤"))
	require.Equal(t, len("❤"), n)
	assert.Equal(1, s.CellAt(0, 0).Width)

	n = p.Feed([]byte("️"))
	require.Equal(t, len("️"), n)
	cell := s.CellAt(0, 0)
	assert.Equal("❤️", cell.Content)
	assert.Equal(2, cell.Width, "merging the VS16 grows the cell to width 2")
	assert.True(s.CellAt(1, 0).IsContinuation())
	checkGrid(t, s)
}
