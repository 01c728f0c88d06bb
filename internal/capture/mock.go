package capture

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

var errPortClosed = errors.New("serial port closed")

// TestableSerialPort is an in-memory SerialPorter with scripted reads.
type TestableSerialPort struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf bytes.Buffer

	// ReadError is returned once by the next Read that finds no data.
	ReadError error
	// BlockReads makes Read wait for data or Close instead of returning EOF.
	BlockReads bool

	Closed    bool
	ReadCalls int
}

// NewTestableSerialPort returns a port that yields data and then EOF.
func NewTestableSerialPort(data []byte) *TestableSerialPort {
	p := &TestableSerialPort{}
	p.cond = sync.NewCond(&p.mu)
	p.buf.Write(data)
	return p
}

func (p *TestableSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ReadCalls++
	for p.BlockReads && !p.Closed && p.buf.Len() == 0 && p.ReadError == nil {
		p.cond.Wait()
	}
	if p.Closed {
		return 0, errPortClosed
	}
	if p.buf.Len() == 0 {
		if err := p.ReadError; err != nil {
			p.ReadError = nil
			return 0, err
		}
		return 0, io.EOF
	}
	return p.buf.Read(b)
}

// AddReadData queues data for subsequent reads.
func (p *TestableSerialPort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)
	p.cond.Broadcast()
}

func (p *TestableSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Closed = true
	p.cond.Broadcast()
	return nil
}

// IsClosed reports whether Close was called.
func (p *TestableSerialPort) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Closed
}

// Reads returns the number of Read calls so far.
func (p *TestableSerialPort) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ReadCalls
}
