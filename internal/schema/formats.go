package schema

import (
	"fmt"
	"maps"
	"slices"

	"github.com/banshee-data/phobos/internal/phlog"
)

const (
	FormatSimulation = "simulation"
	FormatPose       = "pose"
)

// SimulationFormat is the COBS + length-delimited SimulationMessage log. The
// first frame carries the firmware git SHA and the model parameters.
func SimulationFormat() phlog.Format[Simulation] {
	return phlog.Format[Simulation]{
		Name:      FormatSimulation,
		Delimited: true,
		Decode:    DecodeSimulation,
		Header:    SimulationHeader,
	}
}

// PoseFormat is the packed pose log: a 7 character git SHA frame followed by
// one fixed-width Pose per frame.
func PoseFormat() phlog.Format[Pose] {
	return phlog.Format[Pose]{
		Name:   FormatPose,
		Decode: DecodePose,
		Header: PoseHeader,
	}
}

// Sample is the part of a record shared by every log format, used by the
// commands that do not care which layout was captured.
type Sample struct {
	Timestamp uint32
	Input     []float32
	State     []float32
	Pose      *Pose
	Model     *Model
}

func (s Simulation) Sample() Sample {
	return Sample{
		Timestamp: s.Timestamp,
		Input:     s.Input,
		State:     s.State,
		Pose:      s.Pose,
		Model:     s.Model,
	}
}

// Sample fills only the pose; the packed format carries no state vector.
func (p Pose) Sample() Sample {
	return Sample{Timestamp: p.Timestamp, Pose: &p}
}

var formats = map[string]phlog.Format[Sample]{
	FormatSimulation: phlog.MapFormat(SimulationFormat(), Simulation.Sample),
	FormatPose:       phlog.MapFormat(PoseFormat(), Pose.Sample),
}

// LookupFormat returns the named format projected onto Sample.
func LookupFormat(name string) (phlog.Format[Sample], error) {
	f, ok := formats[name]
	if !ok {
		return phlog.Format[Sample]{}, fmt.Errorf("unknown log format %q (valid: %v)", name, FormatNames())
	}
	return f, nil
}

// FormatNames lists the registered format names in sorted order.
func FormatNames() []string {
	return slices.Sorted(maps.Keys(formats))
}
