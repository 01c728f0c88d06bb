// Package delimited decodes length-delimited messages: a base-128 varint
// length prefix followed by exactly that many payload bytes, the layout
// written by the firmware's encode_delimited.
package delimited

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrBadLength     = errors.New("delimited: length prefix cannot be parsed")
	ErrShortPayload  = errors.New("delimited: frame shorter than declared length")
	ErrTrailingBytes = errors.New("delimited: trailing bytes after declared length")
	ErrCodec         = errors.New("delimited: payload rejected by codec")
)

// Codec turns a raw payload into a structured value. The payload slice is only
// valid for the duration of the call; codecs must copy anything they retain.
type Codec[T any] func(payload []byte) (T, error)

// DecodeError reports a frame that could not be interpreted as a
// length-delimited message.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Payload validates the length prefix of frame and returns the payload it
// delimits. The result aliases frame.
func Payload(frame []byte) ([]byte, error) {
	n, w := protowire.ConsumeVarint(frame)
	if w < 0 {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrBadLength, protowire.ParseError(w))}
	}
	rest := frame[w:]
	switch {
	case n > uint64(len(rest)):
		return nil, &DecodeError{Err: fmt.Errorf("%w: want %d bytes, have %d", ErrShortPayload, n, len(rest))}
	case n < uint64(len(rest)):
		return nil, &DecodeError{Err: fmt.Errorf("%w: %d extra", ErrTrailingBytes, uint64(len(rest))-n)}
	}
	return rest, nil
}

// Decode unwraps the length prefix of frame and hands the payload to codec.
func Decode[T any](frame []byte, codec Codec[T]) (T, error) {
	var zero T
	payload, err := Payload(frame)
	if err != nil {
		return zero, err
	}
	v, err := codec(payload)
	if err != nil {
		return zero, &DecodeError{Err: fmt.Errorf("%w: %w", ErrCodec, err)}
	}
	return v, nil
}

// Append writes the varint length of payload followed by payload to dst.
func Append(dst, payload []byte) []byte {
	dst = protowire.AppendVarint(dst, uint64(len(payload)))
	return append(dst, payload...)
}
