// Package synth writes logs in the firmware's formats from a simulated ride,
// for exercising the decoder without hardware.
package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/phobos/internal/cobs"
	"github.com/banshee-data/phobos/internal/delimited"
	"github.com/banshee-data/phobos/internal/schema"
	"github.com/banshee-data/phobos/internal/whipple"
)

// Benchmark bicycle geometry.
const (
	wheelbase        = 1.02
	trail            = 0.08
	steerAxisTilt    = math.Pi / 10
	rearWheelRadius  = 0.3
	frontWheelRadius = 0.35
)

// corruptFrame claims a five byte run but is cut short by the delimiter.
var corruptFrame = []byte{0x05, 0x11, 0x22, cobs.Delimiter}

// Options describes the ride to generate.
type Options struct {
	Format string
	GitSHA string
	Speed  float64
	Dt     float64
	TickHz float64
	// Count is the number of records after the header.
	Count int
	// X0 is the initial [roll, steer, roll rate, steer rate].
	X0 []float64
	// CorruptEvery inserts an undecodable frame after every n-th record.
	CorruptEvery int
}

// Defaults is a short ride of the benchmark bicycle at 5 m/s, released with
// a small roll angle.
func Defaults() Options {
	return Options{
		Format: schema.FormatSimulation,
		GitSHA: "0000000",
		Speed:  5,
		Dt:     0.005,
		TickHz: 10000,
		Count:  1000,
		X0:     []float64{0.05, 0, 0, 0},
	}
}

// Stats describes a generated log.
type Stats struct {
	Records int
	Corrupt int
	Bytes   int
}

func (o Options) validate() error {
	switch o.Format {
	case schema.FormatSimulation, schema.FormatPose:
	default:
		return fmt.Errorf("synth: unsupported format %q", o.Format)
	}
	if _, _, err := schema.PoseHeader([]byte(o.GitSHA)); err != nil {
		return err
	}
	if o.Dt <= 0 || o.TickHz <= 0 {
		return errors.New("synth: dt and tick rate must be positive")
	}
	if o.Count < 0 || o.CorruptEvery < 0 {
		return errors.New("synth: counts must not be negative")
	}
	return nil
}

// Generate simulates the ride and encodes it as a COBS framed log.
func Generate(o Options) ([]byte, Stats, error) {
	if err := o.validate(); err != nil {
		return nil, Stats{}, err
	}
	states, err := whipple.Simulate(whipple.Benchmark(), o.Speed, o.X0, o.Dt, max(o.Count-1, 0))
	if err != nil {
		return nil, Stats{}, err
	}

	var (
		out   []byte
		stats Stats
		yaw   float64
		pose  schema.Pose
	)
	switch o.Format {
	case schema.FormatSimulation:
		model := whipple.Benchmark().Schema(o.Speed, o.Dt)
		model.Wheelbase = wheelbase
		model.Trail = trail
		model.SteerAxisTilt = steerAxisTilt
		model.RearWheelRadius = rearWheelRadius
		model.FrontWheelRadius = frontWheelRadius
		payload, err := schema.EncodeSimulation(schema.Simulation{GitSHA1: o.GitSHA, Model: model})
		if err != nil {
			return nil, Stats{}, err
		}
		out = cobs.AppendFrame(out, delimited.Append(nil, payload))
	case schema.FormatPose:
		out = cobs.AppendFrame(out, []byte(o.GitSHA))
	}

	for i := range o.Count {
		x := states[i]
		ts := uint32(math.Round(float64(i+1) * o.Dt * o.TickHz))

		// kinematic yaw rate of a bicycle with small steer angles
		yaw += o.Speed * x[1] * math.Cos(steerAxisTilt) / wheelbase * o.Dt
		pose.Timestamp = ts
		pose.X += float32(o.Speed * o.Dt * math.Cos(yaw))
		pose.Y += float32(o.Speed * o.Dt * math.Sin(yaw))
		pose.RearWheel += float32(o.Speed * o.Dt / rearWheelRadius)
		pose.Yaw = float32(yaw)
		pose.Roll = float32(x[0])
		pose.Steer = float32(x[1])

		var frame []byte
		switch o.Format {
		case schema.FormatSimulation:
			p := pose
			payload, err := schema.EncodeSimulation(schema.Simulation{
				Timestamp: ts,
				Input:     make([]float32, schema.InputSize),
				State: []float32{
					float32(yaw), float32(x[0]), float32(x[1]), float32(x[2]), float32(x[3]),
				},
				Pose: &p,
			})
			if err != nil {
				return nil, Stats{}, err
			}
			frame = delimited.Append(nil, payload)
		case schema.FormatPose:
			frame = schema.EncodePose(pose)
		}
		out = cobs.AppendFrame(out, frame)
		stats.Records++

		if o.CorruptEvery > 0 && (i+1)%o.CorruptEvery == 0 {
			out = append(out, corruptFrame...)
			stats.Corrupt++
		}
	}
	stats.Bytes = len(out)
	return out, stats, nil
}
