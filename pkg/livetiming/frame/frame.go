// Package frame decodes the two byte headers and payloads of the live timing
// wire format.
//
// The header reuses the same bits for different fields depending on the role
// of the frame:
//
//	id = b1 & 0x1f
//	x  = (b1 >> 5) | (b2 & 0x01) << 3
//	c  = (b2 >> 1) & 0x07
//	l  = (b2 >> 4) & 0x0f
//	v  = (b2 >> 1) & 0x7f
//
// Which of l or v carries the payload length is decided by PayloadSpec.
package frame

import (
	"errors"
	"fmt"
)

// Control frame kinds, selected by x when id is 0.
const (
	CtrlSessionMode   uint8 = 1
	CtrlKeyframe      uint8 = 2
	CtrlValid         uint8 = 3
	CtrlCommentary    uint8 = 4
	CtrlRefreshRate   uint8 = 5
	CtrlSafetyMessage uint8 = 6
	CtrlClock         uint8 = 7
	CtrlReserved      uint8 = 8
	CtrlSessionTime   uint8 = 9
	CtrlSpeedTable    uint8 = 10
	CtrlMisc          uint8 = 11
	CtrlRaw           uint8 = 12
)

// Slot frame field selectors.
const (
	SlotPosition uint8 = 0
	SlotMaxCol   uint8 = 13
	SlotGraph    uint8 = 15
)

const (
	MaxSlots = 32
	// NoPayload is the l value of the flag form: no payload follows.
	NoPayload uint8 = 15
)

var (
	// ErrTruncated is returned when the source ends in the middle of a frame.
	ErrTruncated = errors.New("frame: truncated")
	// ErrUnknownFrameKind is returned for control frames whose payload length
	// cannot be determined. There is no safe way to continue reading.
	ErrUnknownFrameKind = errors.New("frame: unknown frame kind")
	// ErrMalformedFrame is returned for known frames with an impossible header.
	ErrMalformedFrame = errors.New("frame: malformed frame")
	// ErrMalformedField marks a recoverable field value problem.
	ErrMalformedField = errors.New("frame: malformed field")
)

type Header struct {
	ID uint8
	X  uint8
	C  uint8
	L  uint8
	V  uint8
}

type Frame struct {
	Header
	Payload []byte
}

// DecodeHeader extracts all header fields. The caller picks the fields that
// apply to the frame role.
func DecodeHeader(b1, b2 byte) Header {
	return Header{
		ID: b1 & 0x1f,
		X:  (b1>>5)&0x07 | (b2&0x01)<<3,
		C:  (b2 >> 1) & 0x07,
		L:  (b2 >> 4) & 0x0f,
		V:  (b2 >> 1) & 0x7f,
	}
}

// EncodeHeader builds a header for frames that use the c/l fields.
func EncodeHeader(id, x, c, l uint8) [2]byte {
	return [2]byte{
		id&0x1f | (x&0x07)<<5,
		(x>>3)&0x01 | (c&0x07)<<1 | (l&0x0f)<<4,
	}
}

// EncodeHeaderV builds a header for frames that use the v field.
func EncodeHeaderV(id, x, v uint8) [2]byte {
	return [2]byte{
		id&0x1f | (x&0x07)<<5,
		(x>>3)&0x01 | (v&0x7f)<<1,
	}
}

func (h Header) IsControl() bool {
	return h.ID == 0
}

// PayloadSpec returns the payload length and whether the payload is
// encrypted.
//
//nolint:cyclop // one case per frame kind
func (h Header) PayloadSpec() (length int, encrypted bool, err error) {
	if !h.IsControl() {
		switch {
		case h.X == SlotPosition:
			return 0, false, nil
		case h.X == SlotGraph:
			return int(h.V), true, nil
		case h.L == NoPayload:
			return 0, false, nil
		default:
			return int(h.L), true, nil
		}
	}
	switch h.X {
	case CtrlSessionMode:
		return int(h.L), false, nil
	case CtrlKeyframe:
		if h.L != 2 {
			return 0, false, fmt.Errorf("%w: keyframe marker of length %d", ErrMalformedFrame, h.L)
		}
		return 2, false, nil
	case CtrlValid:
		if h.L != 0 {
			return 0, false, fmt.Errorf("%w: valid marker of length %d", ErrMalformedFrame, h.L)
		}
		return 0, false, nil
	case CtrlCommentary, CtrlSafetyMessage, CtrlSpeedTable:
		return int(h.V), true, nil
	case CtrlRefreshRate:
		return 0, false, nil
	case CtrlClock:
		return 2, true, nil
	case CtrlSessionTime:
		if h.L == NoPayload {
			return 0, false, nil
		}
		return int(h.L), true, nil
	case CtrlMisc:
		return int(h.L), true, nil
	case CtrlRaw:
		return int(h.V), false, nil
	default:
		return 0, false, fmt.Errorf("%w: control x=%d", ErrUnknownFrameKind, h.X)
	}
}

func (f Frame) String() string {
	return fmt.Sprintf("id=%d x=%d c=%d l=%d v=%d len=%d",
		f.ID, f.X, f.C, f.L, f.V, len(f.Payload))
}
