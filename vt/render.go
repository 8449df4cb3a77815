package vt

import (
	"strconv"
	"strings"
)

// RenderLine encodes row r as text with the minimal SGR transitions
// needed to reproduce each cell's pen, ending with a reset when any
// attribute was emitted. Continuation cells contribute nothing; their
// wide neighbor already spans both columns.
func (s *Screen) RenderLine(r int) string {
	if r < 0 || r >= s.rows {
		return ""
	}
	return renderCells(s.cells[r])
}

// RenderLines encodes every row of the grid, top to bottom.
func (s *Screen) RenderLines() []string {
	out := make([]string, s.rows)
	for r := 0; r < s.rows; r++ {
		out[r] = renderCells(s.cells[r])
	}
	return out
}

// RenderScrollbackLines encodes the retained scrolled-off rows, oldest
// first.
func (s *Screen) RenderScrollbackLines() []string {
	out := make([]string, len(s.scrollback))
	for i, row := range s.scrollback {
		out[i] = renderCells(row)
	}
	return out
}

func renderCells(row []Cell) string {
	var b strings.Builder
	cur := Pen{}
	dirty := false
	for _, c := range row {
		if c.IsContinuation() {
			continue
		}
		if c.Pen != cur {
			writeSGR(&b, c.Pen)
			cur = c.Pen
			dirty = dirty || !c.Pen.IsDefault()
		}
		b.WriteString(c.Content)
	}
	if dirty || !cur.IsDefault() {
		b.WriteString("\x1b[0m")
	}
	return b.String()
}

// writeSGR emits one CSI m sequence that takes the terminal from any
// state to pen: a leading 0 clears everything, then each set attribute
// follows.
func writeSGR(b *strings.Builder, p Pen) {
	b.WriteString("\x1b[0")
	if p.Bold {
		b.WriteString(";1")
	}
	if p.Underline {
		b.WriteString(";4")
	}
	if p.Inverse {
		b.WriteString(";7")
	}
	writeColor(b, p.FG, 38, 30, 90)
	writeColor(b, p.BG, 48, 40, 100)
	b.WriteByte('m')
}

// writeColor appends the parameters for one color. base16 and
// base16Bright produce the compact 30-37/90-97 forms for the first
// sixteen indexed colors; everything else uses the extended form.
func writeColor(b *strings.Builder, c Color, extended, base16, base16Bright int) {
	switch c.Kind {
	case ColorDefault:
	case ColorIndexed:
		switch {
		case c.Index < 8:
			b.WriteByte(';')
			b.WriteString(strconv.Itoa(base16 + int(c.Index)))
		case c.Index < 16:
			b.WriteByte(';')
			b.WriteString(strconv.Itoa(base16Bright + int(c.Index) - 8))
		default:
			b.WriteByte(';')
			b.WriteString(strconv.Itoa(extended))
			b.WriteString(";5;")
			b.WriteString(strconv.Itoa(int(c.Index)))
		}
	case ColorRGB:
		b.WriteByte(';')
		b.WriteString(strconv.Itoa(extended))
		b.WriteString(";2;")
		b.WriteString(strconv.Itoa(int(c.R)))
		b.WriteByte(';')
		b.WriteString(strconv.Itoa(int(c.G)))
		b.WriteByte(';')
		b.WriteString(strconv.Itoa(int(c.B)))
	}
}
