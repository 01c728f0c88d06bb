package schema

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// GitSHA1Len is the number of SHA characters the firmware writes into the
// header of a packed pose log.
const GitSHA1Len = 7

// PoseSize is the wire size of one packed Pose record.
var PoseSize = binary.Size(Pose{})

var (
	ErrPoseSize  = errors.New("schema: packed pose has wrong size")
	ErrBadGitSHA = errors.New("schema: header is not an abbreviated git sha")
)

// Pose is the bicycle pose used for visualisation. In the packed pose log it
// is written as a little-endian struct with no padding.
type Pose struct {
	Timestamp uint32  `json:"timestamp"`
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	RearWheel float32 `json:"rear_wheel"`
	Pitch     float32 `json:"pitch"`
	Yaw       float32 `json:"yaw"`
	Roll      float32 `json:"roll"`
	Steer     float32 `json:"steer"`
}

// DecodePose parses one packed pose record.
func DecodePose(payload []byte) (Pose, error) {
	if len(payload) != PoseSize {
		return Pose{}, fmt.Errorf("%w: got %d bytes, want %d", ErrPoseSize, len(payload), PoseSize)
	}
	var p Pose
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &p); err != nil {
		return Pose{}, err
	}
	return p, nil
}

// EncodePose packs p the way the firmware writes it.
func EncodePose(p Pose) []byte {
	b, err := binary.Append(make([]byte, 0, PoseSize), binary.LittleEndian, p)
	if err != nil {
		// Pose is fixed size; Append cannot fail.
		panic(err)
	}
	return b
}

// PoseHeader validates the abbreviated git SHA that opens a packed pose log.
func PoseHeader(payload []byte) (string, *Pose, error) {
	if len(payload) != GitSHA1Len {
		return "", nil, fmt.Errorf("%w: %d bytes", ErrBadGitSHA, len(payload))
	}
	for _, c := range payload {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return "", nil, fmt.Errorf("%w: %q", ErrBadGitSHA, payload)
		}
	}
	return string(payload), nil, nil
}
