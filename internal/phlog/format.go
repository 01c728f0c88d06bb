package phlog

import (
	"errors"
	"fmt"

	"github.com/banshee-data/phobos/internal/delimited"
)

// HeaderCodec decodes the payload of a log's header frame. It returns the
// firmware version string and, for formats whose header is itself a record,
// the decoded record. A non-nil record may accompany an error.
type HeaderCodec[T any] func(payload []byte) (version string, record *T, err error)

// Format describes one on-disk log layout. The log reader is shared by all
// formats; only the framing inside a COBS frame and the codecs differ.
type Format[T any] struct {
	// Name identifies the format on the command line and in config files.
	Name string
	// Delimited reports whether each frame carries a varint length prefix.
	Delimited bool
	// Decode parses the payload of a data frame.
	Decode delimited.Codec[T]
	// Header parses the payload of the header frame. Nil means the format
	// has no header and every frame is data.
	Header HeaderCodec[T]
}

var ErrNoHeader = errors.New("phlog: log has no header frame")

// HeaderError reports a header frame that was missing or could not be
// decoded. Message decoding is unaffected.
type HeaderError struct {
	// Index of the header frame, or -1 if the log had no non-empty frame.
	Index int
	Err   error
}

func (e *HeaderError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("header error: %v", e.Err)
	}
	return fmt.Sprintf("header error at frame %d: %v", e.Index, e.Err)
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}

// payload strips the format's framing from an already de-stuffed frame.
func (f Format[T]) payload(frame []byte) ([]byte, error) {
	if !f.Delimited {
		return frame, nil
	}
	return delimited.Payload(frame)
}

// decode runs the data codec. Codec failures are reported as decode errors
// whether or not the format is delimited.
func (f Format[T]) decode(frame []byte) (T, error) {
	if f.Delimited {
		return delimited.Decode(frame, f.Decode)
	}
	v, err := f.Decode(frame)
	if err != nil {
		var zero T
		return zero, &delimited.DecodeError{Err: fmt.Errorf("%w: %w", delimited.ErrCodec, err)}
	}
	return v, nil
}

// MapFormat projects a format onto another record type, so callers that do
// not care which layout a log uses can work with a common type.
func MapFormat[T, U any](f Format[T], fn func(T) U) Format[U] {
	out := Format[U]{
		Name:      f.Name,
		Delimited: f.Delimited,
		Decode: func(payload []byte) (U, error) {
			v, err := f.Decode(payload)
			if err != nil {
				var zero U
				return zero, err
			}
			return fn(v), nil
		},
	}
	if f.Header != nil {
		out.Header = func(payload []byte) (string, *U, error) {
			version, rec, err := f.Header(payload)
			if rec == nil {
				return version, nil, err
			}
			u := fn(*rec)
			return version, &u, err
		}
	}
	return out
}
