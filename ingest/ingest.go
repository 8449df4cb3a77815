package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/devmux/devmux"
	uio "github.com/devmux/devmux/io"
	"github.com/devmux/devmux/vt"
)

// Ingestor turns a child's chunked output stream into screen mutations.
// Reads are delivered in chunks of at most devmux.PTYChunkSize bytes; a
// chunk that fills that size exactly is assumed to be a partial delivery
// and is held back whole until a shorter chunk completes it, so escape
// sequences and multi-byte characters are never parsed across a phantom
// boundary. Raw bytes are additionally retained in a replay buffer and
// fanned out to any attached taps.
//
// An Ingestor is not safe for concurrent use; it belongs to the single
// loop that reads its child.
type Ingestor struct {
	parser *vt.Parser
	raw    *RawBuffer
	taps   *uio.MultiWriter
	carry  []byte
	logger *slog.Logger
}

// NewIngestor returns an ingestor feeding parser and retaining
// devmux.RawBufferCap bytes of raw output.
func NewIngestor(parser *vt.Parser, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		parser: parser,
		raw:    NewRawBuffer(devmux.RawBufferCap),
		taps:   uio.NewMultiWriter(),
		logger: logger,
	}
}

// Raw returns the replay buffer of retained output bytes.
func (in *Ingestor) Raw() *RawBuffer { return in.raw }

// Tap attaches w to the raw output stream. The most recent chunk is
// replayed to it immediately.
func (in *Ingestor) Tap(w io.Writer) error { return in.taps.Append(w) }

// Untap detaches w.
func (in *Ingestor) Untap(w io.Writer) { in.taps.Remove(w) }

// Pending returns the number of carried bytes awaiting more input.
func (in *Ingestor) Pending() int { return len(in.carry) }

// HandleChunk ingests one read's worth of output. The chunk is recorded
// raw, then either held back (a full-size read) or parsed together with
// any carried prefix. The unparsed tail of an incomplete trailing
// sequence becomes the next carry.
func (in *Ingestor) HandleChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	in.raw.Write(chunk)
	if _, err := in.taps.Write(chunk); err != nil {
		in.logger.Debug("raw tap write failed", "err", err)
	}

	if len(chunk) == devmux.PTYChunkSize {
		in.carry = append(in.carry, chunk...)
		return
	}

	data := append(in.carry, chunk...)
	n := in.parser.Feed(data)
	in.carry = append(in.carry[:0], data[n:]...)
}

// Flush parses any carried bytes and discards what still cannot be
// consumed. Call it when the stream has ended and no completing chunk
// can arrive.
func (in *Ingestor) Flush() {
	if len(in.carry) == 0 {
		return
	}
	n := in.parser.Feed(in.carry)
	if n < len(in.carry) {
		in.logger.Debug("discarding incomplete trailing sequence", "len", len(in.carry)-n)
	}
	in.carry = in.carry[:0]
}

// Pump drains r chunk by chunk until EOF or ctx is done, flushing the
// carry at the end. It returns nil on EOF.
func (in *Ingestor) Pump(ctx context.Context, r io.Reader) error {
	cr := uio.NewContextReader(ctx, r)
	buf := make([]byte, devmux.PTYChunkSize)
	for {
		n, err := cr.Read(buf)
		if n > 0 {
			in.HandleChunk(buf[:n])
		}
		if err != nil {
			in.Flush()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
