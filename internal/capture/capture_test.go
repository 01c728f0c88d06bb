package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptions_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{
			name: "defaults",
			want: PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N", ReadTimeout: DefaultReadTimeout},
		},
		{
			name: "explicit",
			in:   PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: " even ", ReadTimeout: time.Second},
			want: PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E", ReadTimeout: time.Second},
		},
		{name: "bad data bits", in: PortOptions{DataBits: 9}, wantErr: true},
		{name: "bad stop bits", in: PortOptions{StopBits: 3}, wantErr: true},
		{name: "bad parity", in: PortOptions{Parity: "mark"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.in.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	t.Parallel()

	mode, err := PortOptions{StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.OddParity,
		StopBits: serial.TwoStopBits,
	}, mode)

	_, err = PortOptions{Parity: "X"}.SerialMode()
	assert.Error(t, err)
}

func TestCapture_CopiesUntilEOF(t *testing.T) {
	t.Parallel()

	data := []byte{0x02, 0x11, 0x00, 0x00, 0x03, 0x22, 0x33, 0x00}
	port := NewTestableSerialPort(data)
	var out bytes.Buffer

	st, err := Capture(context.Background(), port, &out, 0)
	require.NoError(t, err)
	assert.Equal(t, data, out.Bytes())
	assert.Equal(t, Stats{Bytes: 8, Delimiters: 3}, st)
	assert.True(t, port.IsClosed())
}

func TestCapture_Limit(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort(bytes.Repeat([]byte{0xAA}, 10000))
	var out bytes.Buffer

	st, err := Capture(context.Background(), port, &out, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), st.Bytes)
	assert.Equal(t, 5000, out.Len())
}

func TestCapture_ReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("device unplugged")
	port := NewTestableSerialPort([]byte{1, 2, 3})
	port.ReadError = boom

	var out bytes.Buffer
	st, err := Capture(context.Background(), port, &out, 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(3), st.Bytes)
}

func TestCapture_Cancel(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort(nil)
	port.BlockReads = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var (
		st  Stats
		err error
		out bytes.Buffer
	)
	go func() {
		defer close(done)
		st, err = Capture(ctx, port, &out, 0)
	}()

	port.AddReadData([]byte{0x01, 0x00})
	require.Eventually(t, func() bool { return port.Reads() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not stop after cancel")
	}
	require.NoError(t, err)
	assert.Equal(t, Stats{Bytes: 2, Delimiters: 1}, st)
	assert.True(t, port.IsClosed())
}
