// Package cobs implements Consistent Overhead Byte Stuffing, the framing used
// by the firmware to delimit packets on the USB serial stream, and the frame
// assembler that splits a captured log on the delimiter byte.
package cobs

import (
	"errors"
	"fmt"
)

// Delimiter is the reserved byte value that terminates every encoded frame.
// It never appears inside an encoded run.
const Delimiter byte = 0x00

// maxBlock is the largest code byte value. A block with this code carries 254
// data bytes and no implied zero.
const maxBlock = 0xFF

var (
	// ErrZeroByte is returned when an encoded run contains the delimiter value.
	ErrZeroByte = errors.New("cobs: delimiter byte inside encoded run")
	// ErrTruncated is returned when a code byte points past the end of the run.
	ErrTruncated = errors.New("cobs: code byte references bytes past end of run")
)

// FramingError reports an encoded run whose stuffing structure cannot be
// reversed. It identifies one bad frame and is never fatal for a log.
type FramingError struct {
	// Offset is the position of the offending code byte within the run.
	Offset int
	Err    error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing error at byte %d: %v", e.Offset, e.Err)
}

func (e *FramingError) Unwrap() error {
	return e.Err
}

// MaxEncodedLen returns the worst case encoded size of n input bytes,
// excluding the trailing delimiter.
func MaxEncodedLen(n int) int {
	return n + n/254 + 1
}

// Decode reverses the stuffing transform of a single run (delimiter not
// included) into a newly allocated slice. The input is never modified.
func Decode(run []byte) ([]byte, error) {
	return AppendDecode(make([]byte, 0, len(run)), run)
}

// AppendDecode appends the de-stuffed contents of run to dst and returns the
// extended slice. On error dst is returned truncated to its original length.
func AppendDecode(dst, run []byte) ([]byte, error) {
	start := len(dst)
	i := 0
	for i < len(run) {
		code := run[i]
		if code == Delimiter {
			return dst[:start], &FramingError{Offset: i, Err: ErrZeroByte}
		}
		n := int(code) - 1
		if i+1+n > len(run) {
			return dst[:start], &FramingError{Offset: i, Err: ErrTruncated}
		}
		block := run[i+1 : i+1+n]
		for j, b := range block {
			if b == Delimiter {
				return dst[:start], &FramingError{Offset: i + 1 + j, Err: ErrZeroByte}
			}
		}
		dst = append(dst, block...)
		i += 1 + n
		// every block except a full one, and except the last, implies a zero
		if code != maxBlock && i < len(run) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}

// Encode stuffs data so it contains no delimiter bytes. The returned run does
// not include the trailing delimiter.
func Encode(data []byte) []byte {
	return AppendEncode(make([]byte, 0, MaxEncodedLen(len(data))), data)
}

// AppendEncode appends the stuffed form of data to dst.
func AppendEncode(dst, data []byte) []byte {
	codeIdx := len(dst)
	dst = append(dst, 0)
	code := byte(1)
	for i, b := range data {
		if b == Delimiter {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}
		dst = append(dst, b)
		code++
		if code == maxBlock {
			dst[codeIdx] = code
			if i == len(data)-1 {
				return dst
			}
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeIdx] = code
	return dst
}

// AppendFrame appends a complete frame (stuffed data followed by the
// delimiter) to dst, as the firmware writes it to the wire.
func AppendFrame(dst, data []byte) []byte {
	dst = AppendEncode(dst, data)
	return append(dst, Delimiter)
}
