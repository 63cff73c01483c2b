package sensor

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/okian/bodytrack/internal/domain/model"
)

// FrameMessageType tags CBOR messages that carry a tracked body frame.
const FrameMessageType = "bodies"

// WireFrame is the CBOR message a tracker bridge publishes per capture:
//
//	{ "type": "bodies", "frame_id": <uint>, "device_time_usec": <int>,
//	  "bodies": [ { "id": <uint>, "joints": [[x,y,z], ... 32 entries] } ] }
type WireFrame struct {
	Type           string     `cbor:"type"`
	FrameID        uint64     `cbor:"frame_id"`
	DeviceTimeUsec int64      `cbor:"device_time_usec"`
	Bodies         []WireBody `cbor:"bodies"`
}

// WireBody is one tracked body; Joints follows the model.Joint order.
type WireBody struct {
	ID     uint32       `cbor:"id"`
	Joints [][3]float32 `cbor:"joints"`
}

// EncodeFrame renders f as a CBOR WireFrame.
func EncodeFrame(frameID uint64, f *model.BodyFrame) ([]byte, error) {
	msg := WireFrame{
		Type:           FrameMessageType,
		FrameID:        frameID,
		DeviceTimeUsec: f.DeviceTimestamp.Microseconds(),
		Bodies:         make([]WireBody, 0, len(f.Bodies)),
	}
	for i := range f.Bodies {
		b := &f.Bodies[i]
		joints := make([][3]float32, model.JointCount)
		for j, p := range b.Skeleton {
			joints[j] = [3]float32{p.X, p.Y, p.Z}
		}
		msg.Bodies = append(msg.Bodies, WireBody{ID: b.ID, Joints: joints})
	}
	return cbor.Marshal(msg)
}

// DecodeFrame parses a CBOR WireFrame and enforces the body contract:
// every body carries the full joint taxonomy and ids are unique in the frame.
func DecodeFrame(data []byte) (model.BodyFrame, uint64, error) {
	var msg WireFrame
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return model.BodyFrame{}, 0, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if msg.Type != FrameMessageType {
		return model.BodyFrame{}, 0, fmt.Errorf("%w: unexpected message type %q", ErrMalformedFrame, msg.Type)
	}

	frame := model.BodyFrame{
		DeviceTimestamp: time.Duration(msg.DeviceTimeUsec) * time.Microsecond,
		Bodies:          make([]model.Body, 0, len(msg.Bodies)),
	}
	seen := make(map[uint32]struct{}, len(msg.Bodies))
	for i, wb := range msg.Bodies {
		if len(wb.Joints) != model.JointCount {
			return model.BodyFrame{}, 0, fmt.Errorf("%w: body %d has %d joints, want %d",
				ErrMalformedFrame, i, len(wb.Joints), model.JointCount)
		}
		if _, dup := seen[wb.ID]; dup {
			return model.BodyFrame{}, 0, fmt.Errorf("%w: duplicate body id %d", ErrMalformedFrame, wb.ID)
		}
		seen[wb.ID] = struct{}{}

		body := model.Body{ID: wb.ID}
		for j, p := range wb.Joints {
			body.Skeleton[j] = model.Vec3{X: p[0], Y: p[1], Z: p[2]}
		}
		frame.Bodies = append(frame.Bodies, body)
	}
	return frame, msg.FrameID, nil
}
