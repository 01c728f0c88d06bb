package delimited

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringCodec(payload []byte) (string, error) {
	if bytes.HasPrefix(payload, []byte("bad")) {
		return "", errors.New("bad payload")
	}
	return string(payload), nil
}

func TestDecode(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte{'x'}, 300)

	tests := []struct {
		name    string
		frame   []byte
		want    string
		wantErr error
	}{
		{"short message", Append(nil, []byte("hello")), "hello", nil},
		{"empty payload", []byte{0x00}, "", nil},
		{"two byte varint", Append(nil, long), string(long), nil},
		{"empty frame", []byte{}, "", ErrBadLength},
		{"unterminated varint", []byte{0x80, 0x80}, "", ErrBadLength},
		{"overlong varint", bytes.Repeat([]byte{0xFF}, 11), "", ErrBadLength},
		{"declared length too long", []byte{0x05, 'a', 'b'}, "", ErrShortPayload},
		{"trailing bytes", []byte{0x01, 'a', 'b'}, "", ErrTrailingBytes},
		{"codec rejects", Append(nil, []byte("bad!")), "", ErrCodec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(tt.frame, stringCodec)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				var de *DecodeError
				assert.True(t, errors.As(err, &de))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodecErrorIsWrapped(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("schema violation")
	_, err := Decode(Append(nil, []byte{1}), func([]byte) (int, error) { return 0, sentinel })
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, err, ErrCodec)
}

func TestPayloadAliasesFrame(t *testing.T) {
	t.Parallel()

	frame := Append(nil, []byte{7, 8, 9})
	p, err := Payload(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 8, 9}, p)
	assert.Equal(t, &frame[1], &p[0])
}
