package schema

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// State vector layout of the Whipple model as sent by the firmware.
const (
	StateYaw = iota
	StateRoll
	StateSteer
	StateRollRate
	StateSteerRate
	StateSize
)

// Input vector layout: roll torque, steer torque.
const (
	InputRollTorque = iota
	InputSteerTorque
	InputSize
)

// SecondOrderSize is the element count of each 2x2 model matrix (row major).
const SecondOrderSize = 4

var (
	ErrUnknownFields = errors.New("schema: unknown fields in payload")
	ErrFieldLength   = errors.New("schema: repeated field has wrong length")
	ErrNoVersion     = errors.New("schema: header message has no gitsha1")
)

// Simulation is one SimulationMessage sample. Absent sub-messages are nil.
type Simulation struct {
	Timestamp uint32
	Input     []float32
	State     []float32
	Pose      *Pose
	Sensors   *Sensors
	Actuators *Actuators
	Timing    *Timing
	Model     *Model
	GitSHA1   string
}

type Sensors struct {
	Kistler               uint32
	Kollmorgen            uint32
	SteerEncoderCount     uint32
	RearWheelEncoderCount uint32
}

type Actuators struct {
	KollmorgenCommandVelocity uint32
}

// Timing holds the firmware's loop measurements in system ticks.
type Timing struct {
	Computation  uint32
	Transmission uint32
}

// Model carries the bicycle model parameters sent in the first message of a
// run. Matrices are 2x2, row major.
type Model struct {
	V                float32
	Dt               float32
	M                []float32
	C1               []float32
	K0               []float32
	K2               []float32
	Wheelbase        float32
	Trail            float32
	SteerAxisTilt    float32
	RearWheelRadius  float32
	FrontWheelRadius float32
}

// DecodeSimulation parses a SimulationMessage payload. Payloads with unknown
// fields, missing required fields or wrongly sized vectors are rejected.
func DecodeSimulation(payload []byte) (Simulation, error) {
	msg := dynamicpb.NewMessage(simulationDesc)
	if err := proto.Unmarshal(payload, msg); err != nil {
		return Simulation{}, err
	}
	if err := checkUnknown(msg); err != nil {
		return Simulation{}, err
	}

	s := Simulation{
		Timestamp: getUint32(msg, "timestamp"),
		GitSHA1:   getString(msg, "gitsha1"),
	}
	if m, ok := getMessage(msg, "input"); ok {
		s.Input = getFloats(m, "u")
		if len(s.Input) != InputSize {
			return Simulation{}, fmt.Errorf("%w: input has %d elements", ErrFieldLength, len(s.Input))
		}
	}
	if m, ok := getMessage(msg, "state"); ok {
		s.State = getFloats(m, "x")
		if len(s.State) != StateSize {
			return Simulation{}, fmt.Errorf("%w: state has %d elements", ErrFieldLength, len(s.State))
		}
	}
	if m, ok := getMessage(msg, "pose"); ok {
		s.Pose = &Pose{
			Timestamp: getUint32(m, "timestamp"),
			X:         getFloat(m, "x"),
			Y:         getFloat(m, "y"),
			RearWheel: getFloat(m, "rear_wheel"),
			Pitch:     getFloat(m, "pitch"),
			Yaw:       getFloat(m, "yaw"),
			Roll:      getFloat(m, "roll"),
			Steer:     getFloat(m, "steer"),
		}
	}
	if m, ok := getMessage(msg, "sensors"); ok {
		s.Sensors = &Sensors{
			Kistler:               getUint32(m, "kistler"),
			Kollmorgen:            getUint32(m, "kollmorgen"),
			SteerEncoderCount:     getUint32(m, "steer_encoder_count"),
			RearWheelEncoderCount: getUint32(m, "rear_wheel_encoder_count"),
		}
	}
	if m, ok := getMessage(msg, "actuators"); ok {
		s.Actuators = &Actuators{KollmorgenCommandVelocity: getUint32(m, "kollmorgen_command_velocity")}
	}
	if m, ok := getMessage(msg, "timing"); ok {
		s.Timing = &Timing{
			Computation:  getUint32(m, "computation"),
			Transmission: getUint32(m, "transmission"),
		}
	}
	if m, ok := getMessage(msg, "model"); ok {
		model := &Model{
			V:                getFloat(m, "v"),
			Dt:               getFloat(m, "dt"),
			M:                getFloats(m, "m"),
			C1:               getFloats(m, "c1"),
			K0:               getFloats(m, "k0"),
			K2:               getFloats(m, "k2"),
			Wheelbase:        getFloat(m, "wheelbase"),
			Trail:            getFloat(m, "trail"),
			SteerAxisTilt:    getFloat(m, "steer_axis_tilt"),
			RearWheelRadius:  getFloat(m, "rear_wheel_radius"),
			FrontWheelRadius: getFloat(m, "front_wheel_radius"),
		}
		for name, v := range map[string][]float32{"m": model.M, "c1": model.C1, "k0": model.K0, "k2": model.K2} {
			if v != nil && len(v) != SecondOrderSize {
				return Simulation{}, fmt.Errorf("%w: model.%s has %d elements", ErrFieldLength, name, len(v))
			}
		}
		s.Model = model
	}
	return s, nil
}

// EncodeSimulation serialises s into a SimulationMessage payload.
func EncodeSimulation(s Simulation) ([]byte, error) {
	msg := dynamicpb.NewMessage(simulationDesc)
	setUint32(msg, "timestamp", s.Timestamp)
	if s.GitSHA1 != "" {
		msg.Set(fieldOf(msg, "gitsha1"), protoreflect.ValueOfString(s.GitSHA1))
	}
	if len(s.Input) > 0 {
		setFloats(mutableMessage(msg, "input"), "u", s.Input)
	}
	if len(s.State) > 0 {
		setFloats(mutableMessage(msg, "state"), "x", s.State)
	}
	if p := s.Pose; p != nil {
		m := mutableMessage(msg, "pose")
		setUint32(m, "timestamp", p.Timestamp)
		setFloat(m, "x", p.X)
		setFloat(m, "y", p.Y)
		setFloat(m, "rear_wheel", p.RearWheel)
		setFloat(m, "pitch", p.Pitch)
		setFloat(m, "yaw", p.Yaw)
		setFloat(m, "roll", p.Roll)
		setFloat(m, "steer", p.Steer)
	}
	if v := s.Sensors; v != nil {
		m := mutableMessage(msg, "sensors")
		setUint32(m, "kistler", v.Kistler)
		setUint32(m, "kollmorgen", v.Kollmorgen)
		setUint32(m, "steer_encoder_count", v.SteerEncoderCount)
		setUint32(m, "rear_wheel_encoder_count", v.RearWheelEncoderCount)
	}
	if v := s.Actuators; v != nil {
		setUint32(mutableMessage(msg, "actuators"), "kollmorgen_command_velocity", v.KollmorgenCommandVelocity)
	}
	if v := s.Timing; v != nil {
		m := mutableMessage(msg, "timing")
		setUint32(m, "computation", v.Computation)
		setUint32(m, "transmission", v.Transmission)
	}
	if v := s.Model; v != nil {
		m := mutableMessage(msg, "model")
		setFloat(m, "v", v.V)
		setFloat(m, "dt", v.Dt)
		setFloats(m, "m", v.M)
		setFloats(m, "c1", v.C1)
		setFloats(m, "k0", v.K0)
		setFloats(m, "k2", v.K2)
		setFloat(m, "wheelbase", v.Wheelbase)
		setFloat(m, "trail", v.Trail)
		setFloat(m, "steer_axis_tilt", v.SteerAxisTilt)
		setFloat(m, "rear_wheel_radius", v.RearWheelRadius)
		setFloat(m, "front_wheel_radius", v.FrontWheelRadius)
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(msg)
}

// SimulationHeader decodes the first message of a run, which carries the
// firmware git SHA and the model parameters.
func SimulationHeader(payload []byte) (string, *Simulation, error) {
	s, err := DecodeSimulation(payload)
	if err != nil {
		return "", nil, err
	}
	if s.GitSHA1 == "" {
		return "", &s, ErrNoVersion
	}
	return s.GitSHA1, &s, nil
}

func checkUnknown(m protoreflect.Message) error {
	if len(m.GetUnknown()) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownFields, m.Descriptor().FullName())
	}
	var err error
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if fd.Kind() == protoreflect.MessageKind && !fd.IsList() && !fd.IsMap() {
			err = checkUnknown(v.Message())
		}
		return err == nil
	})
	return err
}

func fieldOf(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("schema: %s has no field %q", m.Descriptor().FullName(), name))
	}
	return fd
}

func getUint32(m protoreflect.Message, name string) uint32 {
	return uint32(m.Get(fieldOf(m, name)).Uint())
}

func getFloat(m protoreflect.Message, name string) float32 {
	return float32(m.Get(fieldOf(m, name)).Float())
}

func getString(m protoreflect.Message, name string) string {
	return m.Get(fieldOf(m, name)).String()
}

func getFloats(m protoreflect.Message, name string) []float32 {
	fd := fieldOf(m, name)
	if !m.Has(fd) {
		return nil
	}
	l := m.Get(fd).List()
	out := make([]float32, l.Len())
	for i := range out {
		out[i] = float32(l.Get(i).Float())
	}
	return out
}

func getMessage(m protoreflect.Message, name string) (protoreflect.Message, bool) {
	fd := fieldOf(m, name)
	if !m.Has(fd) {
		return nil, false
	}
	return m.Get(fd).Message(), true
}

func mutableMessage(m protoreflect.Message, name string) protoreflect.Message {
	return m.Mutable(fieldOf(m, name)).Message()
}

func setUint32(m protoreflect.Message, name string, v uint32) {
	m.Set(fieldOf(m, name), protoreflect.ValueOfUint32(v))
}

func setFloat(m protoreflect.Message, name string, v float32) {
	m.Set(fieldOf(m, name), protoreflect.ValueOfFloat32(v))
}

func setFloats(m protoreflect.Message, name string, v []float32) {
	if len(v) == 0 {
		return
	}
	l := m.Mutable(fieldOf(m, name)).List()
	for _, x := range v {
		l.Append(protoreflect.ValueOfFloat32(x))
	}
}
