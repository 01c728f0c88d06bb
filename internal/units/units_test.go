package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertAngle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rad      float64
		unit     string
		expected float64
	}{
		{"pi to deg", math.Pi, Deg, 180},
		{"half pi to deg", math.Pi / 2, Deg, 90},
		{"negative to deg", -0.1, Deg, -5.729578},
		{"rad unchanged", 0.25, Rad, 0.25},
		{"unknown unchanged", 0.25, "grad", 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ConvertAngle(tt.rad, tt.unit), 1e-6)
		})
	}
}

func TestDegrees(t *testing.T) {
	t.Parallel()

	in := []float64{0, math.Pi, -math.Pi / 4}
	got := Degrees(in)
	assert.InDeltaSlice(t, []float64{0, 180, -45}, got, 1e-9)
	assert.Equal(t, math.Pi, in[1], "input must not be modified")
}

func TestConvertSpeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mps      float64
		unit     string
		expected float64
	}{
		{"5 m/s to kmph", 5, KMPH, 18},
		{"5 m/s to mph", 5, MPH, 11.1847},
		{"5 m/s to mps", 5, MPS, 5},
		{"unknown defaults to mps", 5, "knots", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ConvertSpeed(tt.mps, tt.unit), 1e-3)
		})
	}
}

func TestIsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidAngle(Deg))
	assert.True(t, IsValidAngle(Rad))
	assert.False(t, IsValidAngle("grad"))
	assert.True(t, IsValidSpeed(KMPH))
	assert.False(t, IsValidSpeed("kph"))
}

func TestFormatSpeed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "18.00 km/h", FormatSpeed(5, KMPH))
	assert.Equal(t, "5.00 m/s", FormatSpeed(5, "bogus"))
}
