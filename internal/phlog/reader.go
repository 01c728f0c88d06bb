// Package phlog reads captured firmware logs: a buffer of COBS frames, each
// holding one record. Corrupt frames are counted and skipped; they never stop
// the rest of the log from being decoded.
package phlog

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/phobos/internal/cobs"
	"github.com/banshee-data/phobos/internal/fsutil"
	"github.com/banshee-data/phobos/internal/monitoring"
)

// Message is one successfully decoded frame.
type Message[T any] struct {
	// Index is the frame's position among all frames of the log.
	Index  int
	Offset int
	Value  T
}

// Failure records a frame that was dropped.
type Failure struct {
	Index  int
	Offset int
	Err    error
}

// Result is everything recovered from one log.
type Result[T any] struct {
	Format string

	Version    string
	HasVersion bool
	// HeaderRecord is the decoded header, for formats whose header frame is
	// itself a record.
	HeaderRecord *T
	HeaderErr    error

	Messages []Message[T]
	Errors   int
	Failures []Failure

	// Frames counts non-empty frames, the header frame included.
	Frames      int
	EmptyFrames int
}

// Values returns the decoded records in frame order.
func (r *Result[T]) Values() []T {
	out := make([]T, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.Value
	}
	return out
}

// Summary is the human readable report printed by the decode command.
func (r *Result[T]) Summary() string {
	var b strings.Builder
	if r.HasVersion {
		fmt.Fprintf(&b, "firmware version %s\n", r.Version)
	} else {
		b.WriteString("firmware version unknown\n")
	}
	fmt.Fprintf(&b, "read %d total messages, %d decode errors", len(r.Messages), r.Errors)
	return b.String()
}

type options struct {
	workers int
}

// Option configures Read.
type Option func(*options)

// WithWorkers decodes frames on up to n goroutines. Results are identical to
// a sequential read. n <= 1 reads sequentially.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// outcome is the result of pushing one frame through the pipeline.
type outcome[T any] struct {
	frame cobs.Frame
	value T
	err   error
}

// decodeFrame de-stuffs and decodes one frame. scratch is reused between
// calls and returned, possibly grown; records must not retain it.
func decodeFrame[T any](f cobs.Frame, format Format[T], scratch []byte) (outcome[T], []byte) {
	raw, err := cobs.AppendDecode(scratch[:0], f.Data)
	if err != nil {
		return outcome[T]{frame: f, err: err}, raw
	}
	v, err := format.decode(raw)
	return outcome[T]{frame: f, value: v, err: err}, raw
}

type reader[T any] struct {
	format     Format[T]
	res        *Result[T]
	needHeader bool
	scratch    []byte
}

func newReader[T any](format Format[T]) *reader[T] {
	return &reader[T]{
		format:     format,
		res:        &Result[T]{Format: format.Name},
		needHeader: format.Header != nil,
	}
}

// header decodes the reserved header frame.
func (r *reader[T]) header(f cobs.Frame) {
	r.needHeader = false

	version, rec, err := r.readHeader(f)
	r.res.HeaderRecord = rec
	if err != nil {
		r.res.HeaderErr = &HeaderError{Index: f.Index, Err: err}
		monitoring.Logf("phlog: %v", r.res.HeaderErr)
		return
	}
	r.res.Version = version
	r.res.HasVersion = true
}

func (r *reader[T]) readHeader(f cobs.Frame) (string, *T, error) {
	raw, err := cobs.Decode(f.Data)
	if err != nil {
		return "", nil, err
	}
	payload, err := r.format.payload(raw)
	if err != nil {
		return "", nil, err
	}
	return r.format.Header(payload)
}

func (r *reader[T]) add(o outcome[T]) {
	if o.err != nil {
		r.res.Errors++
		r.res.Failures = append(r.res.Failures, Failure{Index: o.frame.Index, Offset: o.frame.Offset, Err: o.err})
		monitoring.WithFields(map[string]interface{}{
			"format": r.format.Name,
			"frame":  o.frame.Index,
			"offset": o.frame.Offset,
		}).Debugf("dropping frame: %v", o.err)
		return
	}
	r.res.Messages = append(r.res.Messages, Message[T]{Index: o.frame.Index, Offset: o.frame.Offset, Value: o.value})
}

func (r *reader[T]) finish() *Result[T] {
	if r.needHeader {
		r.res.HeaderErr = &HeaderError{Index: -1, Err: ErrNoHeader}
	}
	return r.res
}

// Read decodes every frame of raw. It never fails: frames that cannot be
// de-stuffed or decoded are counted in Result.Errors, and a missing or bad
// header leaves the version unset. raw is not modified.
func Read[T any](raw []byte, format Format[T], opts ...Option) *Result[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers > 1 {
		return readParallel(raw, format, o.workers)
	}

	r := newReader(format)
	for f := range cobs.Frames(raw) {
		if f.Empty() {
			r.res.EmptyFrames++
			continue
		}
		r.res.Frames++
		if r.needHeader {
			r.header(f)
			continue
		}
		var out outcome[T]
		out, r.scratch = decodeFrame(f, format, r.scratch)
		r.add(out)
	}
	return r.finish()
}

func readParallel[T any](raw []byte, format Format[T], workers int) *Result[T] {
	r := newReader(format)

	var pending []cobs.Frame
	for _, f := range cobs.Split(raw) {
		if f.Empty() {
			r.res.EmptyFrames++
			continue
		}
		r.res.Frames++
		if r.needHeader {
			r.header(f)
			continue
		}
		pending = append(pending, f)
	}

	outs := make([]outcome[T], len(pending))
	size := (len(pending) + workers - 1) / workers
	// The group only caps concurrency with SetLimit. Per-frame failures
	// land in outs, so no worker returns an error.
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < len(pending); lo += size {
		hi := min(lo+size, len(pending))
		g.Go(func() error {
			var scratch []byte
			for i := lo; i < hi; i++ {
				outs[i], scratch = decodeFrame(pending[i], format, scratch)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outs {
		r.add(out)
	}
	return r.finish()
}

// ReadFile reads and decodes the log at path. Only a failure to read the file
// is returned as an error.
func ReadFile[T any](fsys fsutil.FileSystem, path string, format Format[T], opts ...Option) (*Result[T], error) {
	raw, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log %s: %w", path, err)
	}
	return Read(raw, format, opts...), nil
}
