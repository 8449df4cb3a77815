package vt

import (
	"log/slog"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// maxSequenceLen bounds how many bytes an unterminated escape sequence
// may accumulate before it is dropped.
const maxSequenceLen = 4096

// Parser consumes a byte stream of printable text and ANSI escape
// sequences and applies it to a Screen. Feed returns how many bytes were
// consumed; an incomplete trailing escape sequence or UTF-8 rune is left
// unconsumed so the caller can carry it into the next feed. Malformed
// sequences are dropped whole and never corrupt subsequent output.
type Parser struct {
	screen *Screen
	logger *slog.Logger
}

// NewParser returns a parser writing into screen.
func NewParser(screen *Screen, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{screen: screen, logger: logger}
}

// Screen returns the screen the parser writes into.
func (p *Parser) Screen() *Screen { return p.screen }

// Feed applies as much of data as possible and returns the number of
// bytes consumed. The unconsumed tail, if any, is an incomplete escape
// sequence or UTF-8 rune that should be retried with more bytes appended.
func (p *Parser) Feed(data []byte) int {
	i := 0
	for i < len(data) {
		b := data[i]
		switch {
		case b == 0x1b:
			n, ok := p.consumeEscape(data[i:])
			if !ok {
				if len(data)-i > maxSequenceLen {
					p.logger.Debug("dropping oversized escape sequence", "len", len(data)-i)
					return len(data)
				}
				return i
			}
			i += n
		case b == '\n':
			p.screen.lineFeed()
			i++
		case b == '\r':
			p.screen.carriageReturn()
			i++
		case b == '\b':
			p.screen.backspace()
			i++
		case b == '\t':
			p.screen.horizontalTab()
			i++
		case b < 0x20 || b == 0x7f:
			// other C0 controls and DEL are ignored
			i++
		default:
			n, done := p.consumeText(data[i:])
			i += n
			if !done {
				return i
			}
		}
	}
	return i
}

// consumeText writes the maximal printable run starting at data[0].
// done is false when the run ends in an incomplete UTF-8 rune at the end
// of data, which the caller should carry.
func (p *Parser) consumeText(data []byte) (n int, done bool) {
	end := 0
	for end < len(data) {
		b := data[end]
		if b == 0x1b || b == 0x7f || (b < 0x20) {
			break
		}
		end++
	}

	run := data[:end]
	carry := 0
	if end == len(data) {
		carry = incompleteTailLen(run)
		run = run[:len(run)-carry]
	}

	state := -1
	rest := string(run)
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		p.screen.writeGrapheme(cluster)
	}

	return len(run), carry == 0
}

// incompleteTailLen returns the length of a truncated UTF-8 sequence at
// the end of b, or 0 when b ends on a rune boundary.
func incompleteTailLen(b []byte) int {
	for back := 1; back <= utf8.UTFMax && back <= len(b); back++ {
		c := b[len(b)-back]
		if c&0xc0 != 0x80 { // found a start byte
			if c < 0x80 {
				return 0
			}
			want := 0
			switch {
			case c&0xe0 == 0xc0:
				want = 2
			case c&0xf0 == 0xe0:
				want = 3
			case c&0xf8 == 0xf0:
				want = 4
			default:
				return 0 // invalid start byte; let the decoder replace it
			}
			if back < want {
				return back
			}
			return 0
		}
	}
	return 0
}

// consumeEscape parses one escape sequence beginning at data[0] == ESC.
// ok is false when the sequence is incomplete. Recognized sequences are
// applied; everything else is parsed to completion and discarded.
func (p *Parser) consumeEscape(data []byte) (n int, ok bool) {
	if len(data) < 2 {
		return 0, false
	}
	switch data[1] {
	case '[':
		return p.consumeCSI(data)
	case ']':
		return p.consumeString(data, true)
	case 'P', '^', '_', 'X':
		// DCS, PM, APC, SOS: swallowed up to ST
		return p.consumeString(data, false)
	case '7':
		p.screen.saveCursor(true)
		return 2, true
	case '8':
		p.screen.restoreCursor(true)
		return 2, true
	case '(', ')', '#', '%':
		// charset designation and friends take one more byte
		if len(data) < 3 {
			return 0, false
		}
		return 3, true
	default:
		p.logger.Debug("ignoring escape", "final", string(data[1]))
		return 2, true
	}
}

// consumeCSI parses ESC [ params intermediates final.
func (p *Parser) consumeCSI(data []byte) (n int, ok bool) {
	i := 2
	private := false
	paramStart := i
	for i < len(data) {
		b := data[i]
		switch {
		case b >= '0' && b <= '9' || b == ';':
			i++
		case b == '?' || b == '<' || b == '=' || b == '>' || b == ':':
			private = true
			i++
		case b >= 0x20 && b <= 0x2f: // intermediates
			private = true // none of the supported finals take intermediates
			i++
		case b >= 0x40 && b <= 0x7e:
			if !private {
				p.dispatchCSI(b, string(data[paramStart:i]))
			} else {
				p.logger.Debug("ignoring private CSI", "final", string(b))
			}
			return i + 1, true
		default:
			// A stray control aborts the sequence; ground resumes at it.
			p.logger.Debug("malformed CSI", "byte", b)
			return i, true
		}
	}
	return 0, false
}

// consumeString swallows an OSC (or DCS-like) string terminated by ST or,
// when belAllowed, by BEL.
func (p *Parser) consumeString(data []byte, belAllowed bool) (n int, ok bool) {
	for i := 2; i < len(data); i++ {
		switch data[i] {
		case 0x07:
			if belAllowed {
				return i + 1, true
			}
		case 0x1b:
			if i+1 < len(data) && data[i+1] == '\\' {
				return i + 2, true
			}
			if i+1 >= len(data) {
				return 0, false
			}
		case 0x9c: // 8-bit ST
			return i + 1, true
		}
	}
	return 0, false
}

func (p *Parser) dispatchCSI(final byte, rawParams string) {
	params := parseParams(rawParams)
	switch final {
	case 'A':
		p.screen.moveCursor(0, -count(params, 0))
	case 'B':
		p.screen.moveCursor(0, count(params, 0))
	case 'C':
		p.screen.moveCursor(count(params, 0), 0)
	case 'D':
		p.screen.moveCursor(-count(params, 0), 0)
	case 'H', 'f':
		row := count(params, 0)
		col := count(params, 1)
		p.screen.setCursor(col-1, row-1)
	case 'J':
		p.screen.eraseInDisplay(param(params, 0, 0))
	case 'K':
		p.screen.eraseInLine(param(params, 0, 0))
	case 'm':
		p.applySGR(params)
	case 's':
		p.screen.saveCursor(false)
	case 'u':
		p.screen.restoreCursor(false)
	default:
		p.logger.Debug("ignoring CSI", "final", string(final))
	}
}

// parseParams splits "1;2;3" into ints; empty fields become -1 (missing).
func parseParams(raw string) []int {
	if raw == "" {
		return nil
	}
	var out []int
	val, has := 0, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == ';' {
			if has {
				out = append(out, val)
			} else {
				out = append(out, -1)
			}
			val, has = 0, false
			continue
		}
		val = val*10 + int(c-'0')
		has = true
	}
	if has {
		out = append(out, val)
	} else {
		out = append(out, -1)
	}
	return out
}

// param returns params[i], or def when missing.
func param(params []int, i, def int) int {
	if i >= len(params) || params[i] < 0 {
		return def
	}
	return params[i]
}

// count returns params[i] as a movement count: missing and 0 both mean 1.
func count(params []int, i int) int {
	v := param(params, i, 1)
	if v < 1 {
		return 1
	}
	return v
}

func (p *Parser) applySGR(params []int) {
	if len(params) == 0 {
		p.screen.pen = Pen{}
		return
	}
	for i := 0; i < len(params); i++ {
		v := params[i]
		if v < 0 {
			v = 0
		}
		switch {
		case v == 0:
			p.screen.pen = Pen{}
		case v == 1:
			p.screen.pen.Bold = true
		case v == 4:
			p.screen.pen.Underline = true
		case v == 7:
			p.screen.pen.Inverse = true
		case v == 22:
			p.screen.pen.Bold = false
		case v == 24:
			p.screen.pen.Underline = false
		case v == 27:
			p.screen.pen.Inverse = false
		case v >= 30 && v <= 37:
			p.screen.pen.FG = Indexed(uint8(v - 30))
		case v == 38:
			c, skip := extendedColor(params[i+1:])
			if skip == 0 {
				return // malformed; drop the rest
			}
			p.screen.pen.FG = c
			i += skip
		case v == 39:
			p.screen.pen.FG = Color{}
		case v >= 40 && v <= 47:
			p.screen.pen.BG = Indexed(uint8(v - 40))
		case v == 48:
			c, skip := extendedColor(params[i+1:])
			if skip == 0 {
				return
			}
			p.screen.pen.BG = c
			i += skip
		case v == 49:
			p.screen.pen.BG = Color{}
		case v >= 90 && v <= 97:
			p.screen.pen.FG = Indexed(uint8(v - 90 + 8))
		case v >= 100 && v <= 107:
			p.screen.pen.BG = Indexed(uint8(v - 100 + 8))
		default:
			// unknown subcode: ignored
		}
	}
}

// extendedColor decodes the tail of 38;5;n or 38;2;r;g;b. skip is how
// many parameters were consumed, or 0 when the form is malformed.
func extendedColor(rest []int) (Color, int) {
	if len(rest) == 0 {
		return Color{}, 0
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return Color{}, 0
		}
		return Indexed(uint8(param(rest, 1, 0))), 2
	case 2:
		if len(rest) < 4 {
			return Color{}, 0
		}
		return RGB(
			uint8(param(rest, 1, 0)),
			uint8(param(rest, 2, 0)),
			uint8(param(rest, 3, 0)),
		), 4
	default:
		return Color{}, 0
	}
}
