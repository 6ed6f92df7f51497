package publish

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/DaniruKun/aruco-relay/pose"
)

// CameraPose field numbers.
const (
	fieldX        protowire.Number = 1
	fieldY        protowire.Number = 2
	fieldZ        protowire.Number = 3
	fieldYaw      protowire.Number = 4
	fieldPitch    protowire.Number = 5
	fieldRoll     protowire.Number = 6
	fieldMarkerID protowire.Number = 7
)

// CameraPose is the message sent for every published pose.
type CameraPose struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
	MarkerID         int32
}

// NewCameraPose fills a message from a solved pose. Yaw, pitch and roll are
// the rotations about x, y and z.
func NewCameraPose(p pose.Pose) CameraPose {
	a := p.Euler()
	return CameraPose{
		X:        p.Translation.X,
		Y:        p.Translation.Y,
		Z:        p.Translation.Z,
		Yaw:      a.X,
		Pitch:    a.Y,
		Roll:     a.Z,
		MarkerID: int32(p.MarkerID),
	}
}

// appendDouble skips +0 only; -0 has a sign bit and is encoded.
func appendDouble(b []byte, n protowire.Number, v float64) []byte {
	if math.Float64bits(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, n, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// Marshal encodes the message in proto3 wire format. Zero fields are omitted.
func (m CameraPose) Marshal() []byte {
	b := make([]byte, 0, 6*9+6)
	b = appendDouble(b, fieldX, m.X)
	b = appendDouble(b, fieldY, m.Y)
	b = appendDouble(b, fieldZ, m.Z)
	b = appendDouble(b, fieldYaw, m.Yaw)
	b = appendDouble(b, fieldPitch, m.Pitch)
	b = appendDouble(b, fieldRoll, m.Roll)
	if m.MarkerID != 0 {
		b = protowire.AppendTag(b, fieldMarkerID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.MarkerID)))
	}
	return b
}

// Unmarshal decodes a CameraPose. Unknown fields are skipped.
func (m *CameraPose) Unmarshal(b []byte) error {
	*m = CameraPose{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("camera pose tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.Fixed64Type && num >= fieldX && num <= fieldRoll:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return fmt.Errorf("camera pose field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			f := math.Float64frombits(v)
			switch num {
			case fieldX:
				m.X = f
			case fieldY:
				m.Y = f
			case fieldZ:
				m.Z = f
			case fieldYaw:
				m.Yaw = f
			case fieldPitch:
				m.Pitch = f
			case fieldRoll:
				m.Roll = f
			}
		case typ == protowire.VarintType && num == fieldMarkerID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("camera pose marker id: %w", protowire.ParseError(n))
			}
			b = b[n:]
			m.MarkerID = int32(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("camera pose field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

// Decode parses a received payload. An empty payload is the zero pose.
func Decode(payload []byte) (CameraPose, error) {
	var m CameraPose
	err := m.Unmarshal(payload)
	return m, err
}
