package cobs

import (
	"bytes"
	"iter"
)

// Frame is one delimiter-bounded run of a raw log. Data is a read-only view
// into the log; its capacity is clipped so appends never reach the source.
type Frame struct {
	// Index is the position of the frame among all runs, empty ones included.
	Index int
	// Offset is the byte offset of the first byte of the run in the log.
	Offset int
	Data   []byte
}

// Empty reports whether the run is empty (consecutive delimiters or a
// delimiter at the start of the log).
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Frames lazily splits raw on the delimiter byte. Each run is terminated by a
// delimiter or by the end of the buffer; delimiters belong to no run. A
// buffer ending in a delimiter produces no trailing empty run.
//
// The sequence is finite and can only be restarted by ranging over it again.
func Frames(raw []byte) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		start, idx := 0, 0
		for start < len(raw) {
			n := bytes.IndexByte(raw[start:], Delimiter)
			if n < 0 {
				end := len(raw)
				yield(Frame{Index: idx, Offset: start, Data: raw[start:end:end]})
				return
			}
			end := start + n
			if !yield(Frame{Index: idx, Offset: start, Data: raw[start:end:end]}) {
				return
			}
			idx++
			start = end + 1
		}
	}
}

// Split collects Frames into a slice, for callers that need all frame
// boundaries up front.
func Split(raw []byte) []Frame {
	var frames []Frame
	for f := range Frames(raw) {
		frames = append(frames, f)
	}
	return frames
}
