// Package capture records the raw byte stream the firmware writes to its USB
// serial port, producing the log files the decoder reads.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/banshee-data/phobos/internal/cobs"
	"github.com/banshee-data/phobos/internal/monitoring"
)

// SerialPorter is the part of a serial port a capture uses.
type SerialPorter interface {
	io.Reader
	io.Closer
}

// Opener opens the port at path.
type Opener func(path string, opts PortOptions) (SerialPorter, error)

// OpenSerial opens a real serial port with go.bug.st/serial.
func OpenSerial(path string, opts PortOptions) (SerialPorter, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}
	return port, nil
}

// Stats summarises a finished capture.
type Stats struct {
	Bytes int64
	// Delimiters counts frame delimiters seen, an upper bound on the number
	// of frames recorded.
	Delimiters int64
}

// Capture copies port to w until ctx is cancelled, the port reports EOF, or
// limit bytes have been written (limit <= 0 means no limit). The port is
// closed when Capture returns.
func Capture(ctx context.Context, port SerialPorter, w io.Writer, limit int64) (Stats, error) {
	var st Stats
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer func() {
		if stop() {
			port.Close()
		}
	}()

	buf := make([]byte, 4096)
	for {
		if limit > 0 && st.Bytes >= limit {
			return st, nil
		}
		n, err := port.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if limit > 0 && st.Bytes+int64(n) > limit {
				chunk = chunk[:limit-st.Bytes]
			}
			if _, werr := w.Write(chunk); werr != nil {
				return st, fmt.Errorf("failed to write capture: %w", werr)
			}
			st.Bytes += int64(len(chunk))
			st.Delimiters += int64(bytes.Count(chunk, []byte{cobs.Delimiter}))
		}
		switch {
		case ctx.Err() != nil:
			monitoring.Logf("capture stopped after %d bytes", st.Bytes)
			return st, nil
		case errors.Is(err, io.EOF):
			return st, nil
		case err != nil:
			return st, fmt.Errorf("serial read failed: %w", err)
		}
	}
}
