package schema

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const protoPackage = "phobos"

type fieldType = descriptorpb.FieldDescriptorProto_Type

const (
	tFloat   = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	tUint32  = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	tString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	tMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

const (
	optional = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	required = descriptorpb.FieldDescriptorProto_LABEL_REQUIRED
	repeated = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
)

func scalar(name string, num int32, typ fieldType, label descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Type:   typ.Enum(),
		Label:  label.Enum(),
	}
}

func nested(name string, num int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, num, tMessage, optional)
	f.TypeName = proto.String("." + protoPackage + "." + typeName)
	return f
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

// simulationFile mirrors simulation.proto as compiled into the firmware.
func simulationFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("simulation.proto"),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			message("BicycleInput",
				scalar("u", 1, tFloat, repeated)),
			message("BicycleState",
				scalar("x", 1, tFloat, repeated)),
			message("BicyclePoseMessage",
				scalar("timestamp", 1, tUint32, optional),
				scalar("x", 2, tFloat, optional),
				scalar("y", 3, tFloat, optional),
				scalar("rear_wheel", 4, tFloat, optional),
				scalar("pitch", 5, tFloat, optional),
				scalar("yaw", 6, tFloat, optional),
				scalar("roll", 7, tFloat, optional),
				scalar("steer", 8, tFloat, optional)),
			message("SensorMessage",
				scalar("kistler", 1, tUint32, optional),
				scalar("kollmorgen", 2, tUint32, optional),
				scalar("steer_encoder_count", 3, tUint32, optional),
				scalar("rear_wheel_encoder_count", 4, tUint32, optional)),
			message("ActuatorMessage",
				scalar("kollmorgen_command_velocity", 1, tUint32, optional)),
			message("TimingMessage",
				scalar("computation", 1, tUint32, optional),
				scalar("transmission", 2, tUint32, optional)),
			message("BicycleModel",
				scalar("v", 1, tFloat, optional),
				scalar("dt", 2, tFloat, optional),
				scalar("m", 3, tFloat, repeated),
				scalar("c1", 4, tFloat, repeated),
				scalar("k0", 5, tFloat, repeated),
				scalar("k2", 6, tFloat, repeated),
				scalar("wheelbase", 7, tFloat, optional),
				scalar("trail", 8, tFloat, optional),
				scalar("steer_axis_tilt", 9, tFloat, optional),
				scalar("rear_wheel_radius", 10, tFloat, optional),
				scalar("front_wheel_radius", 11, tFloat, optional)),
			message("SimulationMessage",
				scalar("timestamp", 1, tUint32, required),
				nested("input", 2, "BicycleInput"),
				nested("state", 3, "BicycleState"),
				nested("pose", 4, "BicyclePoseMessage"),
				nested("sensors", 5, "SensorMessage"),
				nested("actuators", 6, "ActuatorMessage"),
				nested("timing", 7, "TimingMessage"),
				nested("model", 8, "BicycleModel"),
				scalar("gitsha1", 9, tString, optional)),
		},
	}
}

var simulationDesc = mustMessage(simulationFile(), "SimulationMessage")

func mustMessage(fd *descriptorpb.FileDescriptorProto, name string) protoreflect.MessageDescriptor {
	file, err := protodesc.NewFile(fd, new(protoregistry.Files))
	if err != nil {
		panic(fmt.Sprintf("schema: invalid descriptor %s: %v", fd.GetName(), err))
	}
	md := file.Messages().ByName(protoreflect.Name(name))
	if md == nil {
		panic(fmt.Sprintf("schema: message %s not found in %s", name, fd.GetName()))
	}
	return md
}
