// Package whipple simulates the linearised Whipple bicycle model used by the
// firmware's observer and controller.
//
// The model is
//
//	M q̈ + v C1 q̇ + (g K0 + v² K2) q = T
//
// with q = [roll, steer] and T = [roll torque, steer torque]. The state vector
// is x = [roll, steer, roll rate, steer rate].
package whipple

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/phobos/internal/schema"
)

// Gravity in m/s².
const Gravity = 9.81

const (
	// StateSize is the length of the simulated state vector.
	StateSize = 4
	// InputSize is the length of the input vector.
	InputSize = 2
)

var (
	ErrSingularMass = errors.New("whipple: mass matrix is singular")
	ErrBadMatrix    = errors.New("whipple: model matrix must have 4 elements")
	ErrBadState     = errors.New("whipple: state vector has wrong length")
)

// Model holds the 2x2 coefficient matrices of the linearised model.
type Model struct {
	M, C1, K0, K2 *mat.Dense
	G             float64
}

// Benchmark returns the benchmark bicycle of Meijaard et al. (2007).
func Benchmark() Model {
	return Model{
		M: mat.NewDense(2, 2, []float64{
			80.81722, 2.31941332208709,
			2.31941332208709, 0.29784188199686,
		}),
		C1: mat.NewDense(2, 2, []float64{
			0, 33.86641391492494,
			-0.85035641456978, 1.68540397397560,
		}),
		K0: mat.NewDense(2, 2, []float64{
			-80.95, -2.59951685249872,
			-2.59951685249872, -0.80329488458618,
		}),
		K2: mat.NewDense(2, 2, []float64{
			0, 76.59734589573222,
			0, 2.65431523794604,
		}),
		G: Gravity,
	}
}

// FromSchema builds a model from the parameters logged in a run's first
// message.
func FromSchema(m *schema.Model) (Model, error) {
	if m == nil {
		return Model{}, errors.New("whipple: no model parameters logged")
	}
	conv := func(name string, v []float32) (*mat.Dense, error) {
		if len(v) != schema.SecondOrderSize {
			return nil, fmt.Errorf("%w: %s has %d", ErrBadMatrix, name, len(v))
		}
		data := make([]float64, len(v))
		for i, x := range v {
			data[i] = float64(x)
		}
		return mat.NewDense(2, 2, data), nil
	}

	var (
		out Model
		err error
	)
	if out.M, err = conv("M", m.M); err != nil {
		return Model{}, err
	}
	if out.C1, err = conv("C1", m.C1); err != nil {
		return Model{}, err
	}
	if out.K0, err = conv("K0", m.K0); err != nil {
		return Model{}, err
	}
	if out.K2, err = conv("K2", m.K2); err != nil {
		return Model{}, err
	}
	out.G = Gravity
	return out, nil
}

// Schema converts m to the logged parameter layout, with v and dt filled in.
func (m Model) Schema(v, dt float64) *schema.Model {
	conv := func(d *mat.Dense) []float32 {
		out := make([]float32, 0, schema.SecondOrderSize)
		for i := range 2 {
			for j := range 2 {
				out = append(out, float32(d.At(i, j)))
			}
		}
		return out
	}
	return &schema.Model{
		V:  float32(v),
		Dt: float32(dt),
		M:  conv(m.M),
		C1: conv(m.C1),
		K0: conv(m.K0),
		K2: conv(m.K2),
	}
}

// Continuous returns the state space matrices A (4x4) and B (4x2) at forward
// speed v.
func (m Model) Continuous(v float64) (a, b *mat.Dense, err error) {
	var minv mat.Dense
	if err := minv.Inverse(m.M); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSingularMass, err)
	}

	// K = g K0 + v² K2, C = v C1
	var k, g0, c mat.Dense
	g0.Scale(m.G, m.K0)
	k.Scale(v*v, m.K2)
	k.Add(&g0, &k)
	c.Scale(v, m.C1)

	var mk, mc mat.Dense
	mk.Mul(&minv, &k)
	mk.Scale(-1, &mk)
	mc.Mul(&minv, &c)
	mc.Scale(-1, &mc)

	a = mat.NewDense(StateSize, StateSize, nil)
	a.Set(0, 2, 1)
	a.Set(1, 3, 1)
	a.Slice(2, 4, 0, 2).(*mat.Dense).Copy(&mk)
	a.Slice(2, 4, 2, 4).(*mat.Dense).Copy(&mc)

	b = mat.NewDense(StateSize, InputSize, nil)
	b.Slice(2, 4, 0, 2).(*mat.Dense).Copy(&minv)
	return a, b, nil
}

// Discrete is a zero-order-hold discretisation of the model at one speed.
type Discrete struct {
	Ad *mat.Dense
	Bd *mat.Dense
	V  float64
	Dt float64
}

// Discretize computes Ad = exp(A dt) and Bd = ∫exp(A s) ds B from the
// exponential of the augmented matrix [[A B] [0 0]] dt.
func (m Model) Discretize(v, dt float64) (*Discrete, error) {
	if dt < 0 {
		return nil, fmt.Errorf("whipple: negative sample period %g", dt)
	}
	a, b, err := m.Continuous(v)
	if err != nil {
		return nil, err
	}

	const n = StateSize + InputSize
	aug := mat.NewDense(n, n, nil)
	aug.Slice(0, StateSize, 0, StateSize).(*mat.Dense).Copy(a)
	aug.Slice(0, StateSize, StateSize, n).(*mat.Dense).Copy(b)
	aug.Scale(dt, aug)

	var e mat.Dense
	e.Exp(aug)

	return &Discrete{
		Ad: mat.DenseCopyOf(e.Slice(0, StateSize, 0, StateSize)),
		Bd: mat.DenseCopyOf(e.Slice(0, StateSize, StateSize, n)),
		V:  v,
		Dt: dt,
	}, nil
}

// Eigenvalues returns the eigenvalues of A at speed v.
func (m Model) Eigenvalues(v float64) ([]complex128, error) {
	a, _, err := m.Continuous(v)
	if err != nil {
		return nil, err
	}
	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenNone); !ok {
		return nil, errors.New("whipple: eigen decomposition failed")
	}
	return eig.Values(nil), nil
}

// Stable reports whether every eigenvalue of A at speed v has a negative
// real part.
func (m Model) Stable(v float64) (bool, error) {
	ev, err := m.Eigenvalues(v)
	if err != nil {
		return false, err
	}
	for _, e := range ev {
		if real(e) >= 0 {
			return false, nil
		}
	}
	return true, nil
}

// Step advances x by one sample with input u held constant. A nil u means
// zero input.
func (d *Discrete) Step(x, u []float64) ([]float64, error) {
	if len(x) != StateSize {
		return nil, fmt.Errorf("%w: %d", ErrBadState, len(x))
	}
	var next mat.VecDense
	next.MulVec(d.Ad, mat.NewVecDense(StateSize, append([]float64(nil), x...)))
	if u != nil {
		if len(u) != InputSize {
			return nil, fmt.Errorf("whipple: input has %d elements, want %d", len(u), InputSize)
		}
		var bu mat.VecDense
		bu.MulVec(d.Bd, mat.NewVecDense(InputSize, append([]float64(nil), u...)))
		next.AddVec(&next, &bu)
	}
	return mat.Col(nil, 0, &next), nil
}

// Simulate runs the unforced system from x0 for n samples. The result has
// n+1 rows, the first being x0.
func (d *Discrete) Simulate(x0 []float64, n int) ([][]float64, error) {
	out := make([][]float64, 0, n+1)
	x := append([]float64(nil), x0...)
	if len(x) != StateSize {
		return nil, fmt.Errorf("%w: %d", ErrBadState, len(x))
	}
	out = append(out, x)
	for range n {
		next, err := d.Step(x, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		x = next
	}
	return out, nil
}

// Simulate discretises m at speed v and period dt and runs it from x0 for n
// samples.
func Simulate(m Model, v float64, x0 []float64, dt float64, n int) ([][]float64, error) {
	d, err := m.Discretize(v, dt)
	if err != nil {
		return nil, err
	}
	return d.Simulate(x0, n)
}

// StateFromLog drops the yaw angle from a logged state vector
// [yaw, roll, steer, roll rate, steer rate].
func StateFromLog(x []float32) ([]float64, error) {
	if len(x) != schema.StateSize {
		return nil, fmt.Errorf("%w: logged state has %d elements", ErrBadState, len(x))
	}
	out := make([]float64, StateSize)
	for i, v := range x[schema.StateRoll:] {
		out[i] = float64(v)
	}
	return out, nil
}
