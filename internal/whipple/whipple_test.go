package whipple

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/phobos/internal/schema"
)

func TestContinuous_Structure(t *testing.T) {
	t.Parallel()

	m := Benchmark()
	a, b, err := m.Continuous(0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, a.At(0, 2))
	assert.Equal(t, 1.0, a.At(1, 3))
	assert.Equal(t, 0.0, a.At(0, 0))

	// at rest only gravity acts: A[2:4, 0:2] = -M⁻¹ g K0
	var minv, want mat.Dense
	require.NoError(t, minv.Inverse(m.M))
	want.Mul(&minv, m.K0)
	want.Scale(-Gravity, &want)
	assert.True(t, mat.EqualApprox(a.Slice(2, 4, 0, 2), &want, 1e-9))
	// and there is no damping
	assert.True(t, mat.EqualApprox(a.Slice(2, 4, 2, 4), mat.NewDense(2, 2, nil), 1e-12))

	assert.True(t, mat.EqualApprox(b.Slice(2, 4, 0, 2), &minv, 1e-12))
	assert.True(t, mat.EqualApprox(b.Slice(0, 2, 0, 2), mat.NewDense(2, 2, nil), 0))
}

func TestContinuous_SingularMass(t *testing.T) {
	t.Parallel()

	m := Benchmark()
	m.M = mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	_, _, err := m.Continuous(5)
	assert.ErrorIs(t, err, ErrSingularMass)
}

func TestDiscretize_ZeroPeriod(t *testing.T) {
	t.Parallel()

	d, err := Benchmark().Discretize(5, 0)
	require.NoError(t, err)

	var eye mat.Dense
	eye.CloneFrom(mat.NewDiagDense(StateSize, []float64{1, 1, 1, 1}))
	assert.True(t, mat.EqualApprox(d.Ad, &eye, 1e-12))
	assert.True(t, mat.EqualApprox(d.Bd, mat.NewDense(StateSize, InputSize, nil), 1e-12))

	_, err = Benchmark().Discretize(5, -1)
	assert.Error(t, err)
}

func TestDiscretize_SmallPeriodMatchesEuler(t *testing.T) {
	t.Parallel()

	const dt = 1e-7
	m := Benchmark()
	a, b, err := m.Continuous(4)
	require.NoError(t, err)
	d, err := m.Discretize(4, dt)
	require.NoError(t, err)

	var euler mat.Dense
	euler.Scale(dt, a)
	for i := range StateSize {
		euler.Set(i, i, euler.At(i, i)+1)
	}
	assert.True(t, mat.EqualApprox(d.Ad, &euler, 1e-9))

	var bdt mat.Dense
	bdt.Scale(dt, b)
	assert.True(t, mat.EqualApprox(d.Bd, &bdt, 1e-9))
}

func TestDiscretize_Composes(t *testing.T) {
	t.Parallel()

	m := Benchmark()
	one, err := m.Discretize(5, 0.005)
	require.NoError(t, err)
	two, err := m.Discretize(5, 0.01)
	require.NoError(t, err)

	var ad2 mat.Dense
	ad2.Mul(one.Ad, one.Ad)
	assert.True(t, mat.EqualApprox(two.Ad, &ad2, 1e-9))

	var bd2 mat.Dense
	bd2.Mul(one.Ad, one.Bd)
	bd2.Add(&bd2, one.Bd)
	assert.True(t, mat.EqualApprox(two.Bd, &bd2, 1e-9))
}

func TestStable(t *testing.T) {
	t.Parallel()

	m := Benchmark()
	tests := []struct {
		v    float64
		want bool
	}{
		{1, false},   // below the weave speed
		{5, true},    // self-stable range
		{6.5, false}, // capsize
	}
	for _, tt := range tests {
		got, err := m.Stable(tt.v)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "v = %g", tt.v)
	}
}

func TestSimulate_DecaysWhenStable(t *testing.T) {
	t.Parallel()

	x0 := []float64{0.1, 0, 0, 0}
	states, err := Simulate(Benchmark(), 5, x0, 0.005, 3000)
	require.NoError(t, err)
	require.Len(t, states, 3001)
	assert.Equal(t, x0, states[0])

	last := states[len(states)-1]
	assert.Less(t, math.Abs(last[0]), 0.01, "roll should decay at 5 m/s")

	unstable, err := Simulate(Benchmark(), 1, x0, 0.005, 600)
	require.NoError(t, err)
	assert.Greater(t, math.Abs(unstable[len(unstable)-1][0]), 0.1, "roll should grow at 1 m/s")
}

func TestStep(t *testing.T) {
	t.Parallel()

	d, err := Benchmark().Discretize(5, 0.01)
	require.NoError(t, err)

	x := []float64{0, 0, 0, 0}
	next, err := d.Step(x, []float64{0, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, mat.Col(nil, 1, d.Bd), next, 1e-12)

	_, err = d.Step([]float64{1}, nil)
	assert.ErrorIs(t, err, ErrBadState)
	_, err = d.Step(x, []float64{1})
	assert.Error(t, err)
}

func TestFromSchema(t *testing.T) {
	t.Parallel()

	logged := &schema.Model{
		M:  []float32{80.81722, 2.3194133, 2.3194133, 0.29784188},
		C1: []float32{0, 33.866413, -0.8503564, 1.685404},
		K0: []float32{-80.95, -2.5995169, -2.5995169, -0.8032949},
		K2: []float32{0, 76.597346, 0, 2.6543152},
	}
	m, err := FromSchema(logged)
	require.NoError(t, err)
	bench := Benchmark()
	assert.True(t, mat.EqualApprox(m.M, bench.M, 1e-5))
	assert.True(t, mat.EqualApprox(m.K2, bench.K2, 1e-5))
	assert.Equal(t, Gravity, m.G)

	_, err = FromSchema(nil)
	assert.Error(t, err)

	logged.C1 = logged.C1[:3]
	_, err = FromSchema(logged)
	assert.ErrorIs(t, err, ErrBadMatrix)
}

func TestSchemaRoundTrip(t *testing.T) {
	t.Parallel()

	logged := Benchmark().Schema(5, 0.005)
	assert.InDelta(t, 5, logged.V, 1e-6)
	assert.InDelta(t, 0.005, logged.Dt, 1e-9)
	assert.InDelta(t, 33.866413, logged.C1[1], 1e-5)

	back, err := FromSchema(logged)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(back.C1, Benchmark().C1, 1e-5))
}

func TestStateFromLog(t *testing.T) {
	t.Parallel()

	x, err := StateFromLog([]float32{9, 0.5, -0.25, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.25, 1, 2}, x)

	_, err = StateFromLog([]float32{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrBadState)
}
