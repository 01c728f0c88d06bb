// Package testutil provides shared test helpers and log fixtures.
package testutil

import (
	"testing"

	"github.com/banshee-data/phobos/internal/cobs"
	"github.com/banshee-data/phobos/internal/delimited"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// LogBuilder assembles a raw log the way the firmware writes one.
type LogBuilder struct {
	buf []byte
}

// Delimited appends a COBS frame holding a length-prefixed payload.
func (b *LogBuilder) Delimited(payload []byte) *LogBuilder {
	b.buf = cobs.AppendFrame(b.buf, delimited.Append(nil, payload))
	return b
}

// Packed appends a COBS frame holding payload as is.
func (b *LogBuilder) Packed(payload []byte) *LogBuilder {
	b.buf = cobs.AppendFrame(b.buf, payload)
	return b
}

// Raw appends bytes without any encoding, for corrupt or truncated frames.
func (b *LogBuilder) Raw(p ...byte) *LogBuilder {
	b.buf = append(b.buf, p...)
	return b
}

// Delimiters appends n frame delimiters, producing n-1 empty frames after
// any frame already terminated.
func (b *LogBuilder) Delimiters(n int) *LogBuilder {
	for range n {
		b.buf = append(b.buf, cobs.Delimiter)
	}
	return b
}

// Bytes returns the log built so far.
func (b *LogBuilder) Bytes() []byte {
	return b.buf
}

// CorruptFrame is a COBS run whose code byte points past the end of the run,
// followed by a delimiter.
func CorruptFrame() []byte {
	return []byte{0x05, 0x11, 0x22, cobs.Delimiter}
}
