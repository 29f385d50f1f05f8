// Package feedbuilder produces encrypted live timing byte streams for tests.
//
// The builder mirrors the cipher handling of the decoder: the keystream is
// reset after every keyframe marker and whenever a new session id is
// announced.
package feedbuilder

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/crypt"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/frame"
)

const (
	CommentaryFinal uint8 = 0x01
	CommentaryUTF16 uint8 = 0x02
)

type Builder struct {
	buf       bytes.Buffer
	key       uint32
	cipher    *crypt.Cipher
	sessionID string
}

func New(key uint32) *Builder {
	return &Builder{key: key, cipher: crypt.New(key)}
}

func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

func (b *Builder) Len() int {
	return b.buf.Len()
}

// ResetCipher resets the keystream, as done when a keyframe is loaded.
func (b *Builder) ResetCipher() *Builder {
	b.cipher.Reset()
	return b
}

// RawBytes appends bytes without any processing.
func (b *Builder) RawBytes(data ...byte) *Builder {
	b.buf.Write(data)
	return b
}

func (b *Builder) plain(hdr [2]byte, payload []byte) *Builder {
	b.buf.Write(hdr[:])
	b.buf.Write(payload)
	return b
}

func (b *Builder) encrypted(hdr [2]byte, payload []byte) *Builder {
	p := bytes.Clone(payload)
	b.cipher.EncryptBytes(p)
	return b.plain(hdr, p)
}

func (b *Builder) SessionMode(mode uint8, sessionID string) *Builder {
	payload := append([]byte{0}, []byte(sessionID)...)
	b.plain(frame.EncodeHeader(0, frame.CtrlSessionMode, mode, uint8(len(payload))), payload)
	if sessionID != b.sessionID {
		b.sessionID = sessionID
		b.cipher.SetKey(b.key)
	}
	return b
}

func (b *Builder) Keyframe(n uint16) *Builder {
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, n)
	b.plain(frame.EncodeHeader(0, frame.CtrlKeyframe, 0, 2), payload)
	b.cipher.Reset()
	return b
}

func (b *Builder) Valid(valid bool) *Builder {
	var c uint8
	if valid {
		c = 1
	}
	return b.plain(frame.EncodeHeader(0, frame.CtrlValid, c, 0), nil)
}

func (b *Builder) Commentary(lang, flags uint8, text string) *Builder {
	var body []byte
	if flags&CommentaryUTF16 != 0 {
		for _, u := range utf16.Encode([]rune(text)) {
			body = binary.LittleEndian.AppendUint16(body, u)
		}
	} else {
		body = []byte(text)
	}
	payload := append([]byte{lang, flags}, body...)
	return b.encrypted(frame.EncodeHeaderV(0, frame.CtrlCommentary, uint8(len(payload))), payload)
}

// LegacyCommentary writes an old style single fragment line. The first
// byte of text must be >= 32.
func (b *Builder) LegacyCommentary(text []byte) *Builder {
	return b.encrypted(frame.EncodeHeaderV(0, frame.CtrlCommentary, uint8(len(text))), text)
}

func (b *Builder) RefreshRate(seconds uint8) *Builder {
	return b.plain(frame.EncodeHeaderV(0, frame.CtrlRefreshRate, seconds), nil)
}

func (b *Builder) SafetyMessage(text string) *Builder {
	return b.encrypted(frame.EncodeHeaderV(0, frame.CtrlSafetyMessage, uint8(len(text))), []byte(text))
}

func (b *Builder) Clock(ts uint32) *Builder {
	payload := []byte{byte(ts), byte(ts >> 8)}
	return b.encrypted(frame.EncodeHeaderV(0, frame.CtrlClock, uint8(ts>>16)), payload)
}

func (b *Builder) SessionTime(text string) *Builder {
	return b.encrypted(frame.EncodeHeader(0, frame.CtrlSessionTime, 0, uint8(len(text))), []byte(text))
}

func (b *Builder) Weather(channel uint8, text string) *Builder {
	return b.encrypted(frame.EncodeHeader(0, frame.CtrlSessionTime, channel, uint8(len(text))), []byte(text))
}

func (b *Builder) Decrement() *Builder {
	return b.plain(frame.EncodeHeader(0, frame.CtrlSessionTime, 0, frame.NoPayload), nil)
}

// SpeedTable writes a speed trap or fastest lap record. column is the raw
// first payload byte.
func (b *Builder) SpeedTable(column uint8, data string) *Builder {
	payload := append([]byte{column}, []byte(data)...)
	return b.encrypted(frame.EncodeHeaderV(0, frame.CtrlSpeedTable, uint8(len(payload))), payload)
}

func (b *Builder) RaceStatus(code string) *Builder {
	return b.encrypted(frame.EncodeHeader(0, frame.CtrlMisc, 1, uint8(len(code))), []byte(code))
}

func (b *Builder) Raw(data []byte) *Builder {
	return b.plain(frame.EncodeHeaderV(0, frame.CtrlRaw, uint8(len(data))), data)
}

// Control writes a bare control header, used for unknown kinds.
func (b *Builder) Control(x, c, l uint8) *Builder {
	return b.plain(frame.EncodeHeader(0, x, c, l), nil)
}

func (b *Builder) SlotRow(slot, row uint8) *Builder {
	return b.plain(frame.EncodeHeaderV(slot, frame.SlotPosition, row), nil)
}

func (b *Builder) SlotColumn(slot, column, colour uint8, text string) *Builder {
	return b.encrypted(frame.EncodeHeader(slot, column, colour, uint8(len(text))), []byte(text))
}

func (b *Builder) SlotColour(slot, column, colour uint8) *Builder {
	return b.plain(frame.EncodeHeader(slot, column, colour, frame.NoPayload), nil)
}

func (b *Builder) SlotGraph(slot uint8, rows []byte) *Builder {
	return b.encrypted(frame.EncodeHeaderV(slot, frame.SlotGraph, uint8(len(rows))), rows)
}
