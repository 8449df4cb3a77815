package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawBuffer_BytesBeforeWrap(t *testing.T) {
	b := NewRawBuffer(10)
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("def"))

	assert.Equal(t, []byte("abcdef"), b.Bytes())
	assert.Equal(t, uint64(6), b.TotalWritten())
}

func TestRawBuffer_WrapKeepsNewest(t *testing.T) {
	b := NewRawBuffer(8)
	_, _ = b.Write([]byte("0123456789")) // 10 bytes into 8

	assert.Equal(t, []byte("23456789"), b.Bytes())
	assert.Equal(t, uint64(10), b.TotalWritten())
}

func TestRawBuffer_OversizedWriteKeepsTail(t *testing.T) {
	b := NewRawBuffer(4)
	_, _ = b.Write([]byte("abcdefghij"))

	assert.Equal(t, []byte("ghij"), b.Bytes())
}

func TestRawBuffer_Since(t *testing.T) {
	assert := assert.New(t)

	b := NewRawBuffer(8)
	_, _ = b.Write([]byte("abcd"))
	_, _ = b.Write([]byte("efgh"))

	assert.Equal([]byte("cdefgh"), b.Since(2))
	assert.Nil(b.Since(8), "an offset at the end has nothing newer")
	assert.Nil(b.Since(100))

	_, _ = b.Write([]byte("ij")) // pushes a, b out
	assert.Equal([]byte("cdefghij"), b.Since(0), "older offsets clamp to the retained window")
}
