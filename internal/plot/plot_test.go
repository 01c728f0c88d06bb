package plot

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/phobos/internal/fsutil"
	"github.com/banshee-data/phobos/internal/schema"
	"github.com/banshee-data/phobos/internal/whipple"
)

func loggedSamples(n int) []schema.Sample {
	samples := make([]schema.Sample, 0, n+1)
	// pose-only samples carry no state and are ignored
	samples = append(samples, schema.Sample{Timestamp: 1})
	for i := range n {
		samples = append(samples, schema.Sample{
			Timestamp: uint32(1000 + 10*i),
			State:     []float32{0, float32(i), 0, 0, 0},
		})
	}
	return samples
}

func TestFromSamples(t *testing.T) {
	t.Parallel()

	tr, err := FromSamples(loggedSamples(10), 2, 3, 1000)
	require.NoError(t, err)

	want := StateTrace{
		T: []float64{0, 0.03, 0.06},
		States: [][]float64{
			{2, 0, 0, 0},
			{5, 0, 0, 0},
			{8, 0, 0, 0},
		},
	}
	if diff := cmp.Diff(tr, want, cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-12 })); diff != "" {
		t.Errorf("trace mismatch (-got +want):\n%s", diff)
	}
}

func TestFromSamples_Wraparound(t *testing.T) {
	t.Parallel()

	samples := []schema.Sample{
		{Timestamp: math.MaxUint32 - 4, State: make([]float32, schema.StateSize)},
		{Timestamp: 5, State: make([]float32, schema.StateSize)},
	}
	tr, err := FromSamples(samples, 0, 1, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, tr.T[1], 1e-12)
}

func TestFromSamples_Errors(t *testing.T) {
	t.Parallel()

	_, err := FromSamples(loggedSamples(3), 3, 1, 1000)
	assert.ErrorIs(t, err, ErrNoStates)

	_, err = FromSamples(loggedSamples(3), 0, 0, 1000)
	assert.Error(t, err)

	_, err = FromSamples(loggedSamples(3), 0, 1, 0)
	assert.Error(t, err)
}

func TestFromSimulationAndUntil(t *testing.T) {
	t.Parallel()

	states, err := whipple.Simulate(whipple.Benchmark(), 5, []float64{0.1, 0, 0, 0}, 0.05, 100)
	require.NoError(t, err)

	tr := FromSimulation(states, 0.05)
	assert.Equal(t, 101, tr.Len())
	assert.InDelta(t, 5.0, tr.T[100], 1e-9)

	short := tr.Until(2.975)
	assert.Equal(t, 60, short.Len())
	assert.Len(t, short.States, 60)
}

func TestRMS(t *testing.T) {
	t.Parallel()

	a := StateTrace{T: []float64{0, 1}, States: [][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}}}
	b := StateTrace{T: []float64{0, 1, 2}, States: [][]float64{{1, 0, 0, 2}, {1, 0, 0, 0}, {9, 9, 9, 9}}}

	got, err := RMS(a, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0, 0, math.Sqrt2}, got[:], 1e-12)

	_, err = RMS(StateTrace{}, b)
	assert.ErrorIs(t, err, ErrNoStates)
}

func TestWritePNG(t *testing.T) {
	t.Parallel()

	states, err := whipple.Simulate(whipple.Benchmark(), 5, []float64{0.1, 0, 0.2, 0}, 0.01, 300)
	require.NoError(t, err)
	mfs := fsutil.NewMemoryFileSystem()

	require.NoError(t, WritePNG(mfs, "/out/sim.png", "simulation", FromSimulation(states, 0.01), Size{Width: 6, Height: 4}))

	data, err := mfs.ReadFile("/out/sim.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")), "output is not a PNG")

	assert.ErrorIs(t, WritePNG(mfs, "/out/empty.png", "", StateTrace{}, Size{Width: 6, Height: 4}), ErrNoStates)
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	tr, err := FromSamples(loggedSamples(20), 0, 1, 1000)
	require.NoError(t, err)
	mfs := fsutil.NewMemoryFileSystem()

	require.NoError(t, WriteHTML(mfs, "/out/log.html", "logged states", "firmware abc1234", tr))

	data, err := mfs.ReadFile("/out/log.html")
	require.NoError(t, err)
	html := string(data)
	for _, want := range []string{"logged states", "roll rate", "steer rate", "echarts"} {
		assert.Contains(t, html, want)
	}

	_, err = RenderHTML("x", "", StateTrace{})
	assert.ErrorIs(t, err, ErrNoStates)
}
