// Package plot renders bicycle state traces from decoded logs and from the
// Whipple simulator, as static PNG figures and interactive HTML charts.
package plot

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/phobos/internal/schema"
	"github.com/banshee-data/phobos/internal/whipple"
)

// StateLabels names the columns of a StateTrace.
var StateLabels = [whipple.StateSize]string{"roll", "steer", "roll rate", "steer rate"}

var ErrNoStates = errors.New("plot: no samples with a state vector")

// StateTrace is a time series of Whipple states in SI units. T is in seconds
// from the first row.
type StateTrace struct {
	T      []float64
	States [][]float64
}

// Len returns the number of rows.
func (tr StateTrace) Len() int { return len(tr.T) }

// Column returns one state component over time.
func (tr StateTrace) Column(i int) []float64 {
	out := make([]float64, len(tr.States))
	for r, row := range tr.States {
		out[r] = row[i]
	}
	return out
}

// FromSamples extracts the logged states. Samples without a state vector are
// dropped first; then the first start samples are skipped and every stride-th
// one kept. Timestamps are firmware ticks at tickHz.
func FromSamples(samples []schema.Sample, start, stride int, tickHz float64) (StateTrace, error) {
	if stride < 1 {
		return StateTrace{}, fmt.Errorf("plot: stride must be at least 1, got %d", stride)
	}
	if tickHz <= 0 {
		return StateTrace{}, fmt.Errorf("plot: tick rate must be positive, got %g", tickHz)
	}

	var withState []schema.Sample
	for _, s := range samples {
		if s.State != nil {
			withState = append(withState, s)
		}
	}
	if start >= len(withState) {
		return StateTrace{}, fmt.Errorf("%w after skipping %d", ErrNoStates, start)
	}

	var tr StateTrace
	t0 := withState[start].Timestamp
	for i := start; i < len(withState); i += stride {
		s := withState[i]
		x, err := whipple.StateFromLog(s.State)
		if err != nil {
			return StateTrace{}, err
		}
		// uint32 subtraction handles tick counter wraparound
		tr.T = append(tr.T, float64(s.Timestamp-t0)/tickHz)
		tr.States = append(tr.States, x)
	}
	return tr, nil
}

// FromSimulation turns simulator output sampled every dt seconds into a trace.
func FromSimulation(states [][]float64, dt float64) StateTrace {
	tr := StateTrace{T: make([]float64, len(states)), States: states}
	for i := range states {
		tr.T[i] = float64(i) * dt
	}
	return tr
}

// Until returns the rows with T <= limit.
func (tr StateTrace) Until(limit float64) StateTrace {
	n := 0
	for n < len(tr.T) && tr.T[n] <= limit {
		n++
	}
	return StateTrace{T: tr.T[:n], States: tr.States[:n]}
}

// RMS returns the root mean square difference of each state component over
// the rows both traces have.
func RMS(a, b StateTrace) ([whipple.StateSize]float64, error) {
	var out [whipple.StateSize]float64
	n := min(a.Len(), b.Len())
	if n == 0 {
		return out, ErrNoStates
	}
	for r := range n {
		for i := range whipple.StateSize {
			d := a.States[r][i] - b.States[r][i]
			out[i] += d * d
		}
	}
	for i := range out {
		out[i] = math.Sqrt(out[i] / float64(n))
	}
	return out, nil
}
