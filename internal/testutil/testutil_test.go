package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/phobos/internal/cobs"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

// fakeTB records failures instead of stopping the test.
type fakeTB struct {
	testing.TB
	failures []string
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Fatal(args ...any) { f.failures = append(f.failures, fmt.Sprint(args...)) }

func (f *fakeTB) Fatalf(format string, args ...any) {
	f.failures = append(f.failures, fmt.Sprintf(format, args...))
}

func TestAssertNoError_Fails(t *testing.T) {
	t.Parallel()

	var tb fakeTB
	AssertNoError(&tb, errors.New("boom"))
	assert.Equal(t, []string{"unexpected error: boom"}, tb.failures)

	tb.failures = nil
	AssertNoError(&tb, nil)
	assert.Empty(t, tb.failures)
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.New("boom"))

	var tb fakeTB
	AssertError(&tb, nil)
	assert.Equal(t, []string{"expected error, got nil"}, tb.failures)
}

func TestLogBuilder(t *testing.T) {
	t.Parallel()

	raw := new(LogBuilder).
		Delimited([]byte{0xAA, 0x00}).
		Packed([]byte("abc")).
		Delimiters(2).
		Raw(CorruptFrame()...).
		Bytes()

	frames := cobs.Split(raw)
	require.Len(t, frames, 5)

	first, err := cobs.Decode(frames[0].Data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0xAA, 0x00}, first)

	second, err := cobs.Decode(frames[1].Data)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(second))

	assert.True(t, frames[2].Empty())
	assert.True(t, frames[3].Empty())

	_, err = cobs.Decode(frames[4].Data)
	assert.ErrorIs(t, err, cobs.ErrTruncated)
}
