//nolint:thelper,funlen,lll // ok for tests
package frame_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/crypt"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/frame"
	"github.com/mpapenbr/livetiming-feed-go/testsupport/feedbuilder"
)

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name string
		b1   byte
		b2   byte
		want frame.Header
	}{
		{"all zero", 0x00, 0x00, frame.Header{}},
		{"slot 5 column 3", 0x65, 0x34, frame.Header{ID: 5, X: 3, C: 2, L: 3, V: 26}},
		{"x high bit", 0xe1, 0x01, frame.Header{ID: 1, X: 15, C: 0, L: 0, V: 0}},
		{"all ones", 0xff, 0xff, frame.Header{ID: 31, X: 15, C: 7, L: 15, V: 127}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, frame.DecodeHeader(tt.b1, tt.b2))
		})
	}
}

func TestEncodeHeader_Inverse(t *testing.T) {
	for id := uint8(0); id < 32; id++ {
		for x := uint8(0); x < 16; x++ {
			for c := uint8(0); c < 8; c++ {
				for l := uint8(0); l < 16; l++ {
					hdr := frame.EncodeHeader(id, x, c, l)
					h := frame.DecodeHeader(hdr[0], hdr[1])
					if h.ID != id || h.X != x || h.C != c || h.L != l {
						t.Fatalf("mismatch for id=%d x=%d c=%d l=%d: %+v", id, x, c, l, h)
					}
				}
			}
		}
	}
	hdr := frame.EncodeHeaderV(7, 15, 100)
	h := frame.DecodeHeader(hdr[0], hdr[1])
	assert.Equal(t, uint8(7), h.ID)
	assert.Equal(t, uint8(15), h.X)
	assert.Equal(t, uint8(100), h.V)
}

func TestHeader_PayloadSpec(t *testing.T) {
	tests := []struct {
		name      string
		hdr       frame.Header
		wantLen   int
		wantEnc   bool
		wantErrIs error
	}{
		{"slot position", frame.Header{ID: 3, X: 0, V: 12}, 0, false, nil},
		{"slot graph uses v", frame.Header{ID: 3, X: 15, L: 1, V: 40}, 40, true, nil},
		{"slot column uses l", frame.Header{ID: 3, X: 4, L: 6, V: 99}, 6, true, nil},
		{"slot colour only", frame.Header{ID: 3, X: 4, L: 15}, 0, false, nil},
		{"session mode plain", frame.Header{X: frame.CtrlSessionMode, L: 6}, 6, false, nil},
		{"keyframe marker", frame.Header{X: frame.CtrlKeyframe, L: 2}, 2, false, nil},
		{"long keyframe marker", frame.Header{X: frame.CtrlKeyframe, L: 3}, 0, false, frame.ErrMalformedFrame},
		{"valid marker", frame.Header{X: frame.CtrlValid, C: 1}, 0, false, nil},
		{"long valid marker", frame.Header{X: frame.CtrlValid, L: 1}, 0, false, frame.ErrMalformedFrame},
		{"commentary uses v", frame.Header{X: frame.CtrlCommentary, V: 50}, 50, true, nil},
		{"refresh rate", frame.Header{X: frame.CtrlRefreshRate, V: 5}, 0, false, nil},
		{"clock", frame.Header{X: frame.CtrlClock, V: 3}, 2, true, nil},
		{"reserved", frame.Header{X: frame.CtrlReserved}, 0, false, frame.ErrUnknownFrameKind},
		{"session time", frame.Header{X: frame.CtrlSessionTime, L: 7}, 7, true, nil},
		{"decrement", frame.Header{X: frame.CtrlSessionTime, L: 15}, 0, false, nil},
		{"speed table", frame.Header{X: frame.CtrlSpeedTable, V: 20}, 20, true, nil},
		{"misc", frame.Header{X: frame.CtrlMisc, C: 1, L: 1}, 1, true, nil},
		{"raw blob plain", frame.Header{X: frame.CtrlRaw, V: 9}, 9, false, nil},
		{"x zero", frame.Header{X: 0}, 0, false, frame.ErrUnknownFrameKind},
		{"x 13", frame.Header{X: 13}, 0, false, frame.ErrUnknownFrameKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, enc, err := tt.hdr.PayloadSpec()
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, n)
			assert.Equal(t, tt.wantEnc, enc)
		})
	}
}

func TestReader_ReadFrame(t *testing.T) {
	const key = 0x1a2b3c4d
	data := feedbuilder.New(key).
		SlotColumn(5, 3, 2, "HAMILTON").
		Keyframe(42).
		SlotRow(5, 1).
		SlotGraph(5, []byte{4, 3, 2, 1}).
		Bytes()

	cipher := crypt.New(key)
	r := frame.NewReader(bytes.NewReader(data), cipher)

	f, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, uint8(5), f.ID)
	assert.Equal(t, uint8(3), f.X)
	assert.Equal(t, uint8(2), f.C)
	assert.Equal(t, "HAMILTON", string(f.Payload))

	f, err = r.ReadFrame()
	require.NoError(t, err)
	assert.True(t, f.IsControl())
	assert.Equal(t, frame.CtrlKeyframe, f.X)
	assert.Equal(t, []byte{42, 0}, f.Payload)
	cipher.Reset() // done by the decoder on every marker

	f, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), f.V)
	assert.Empty(t, f.Payload)

	f, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 3, 2, 1}, f.Payload)

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_EndOfStream(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"single byte", []byte{0x05}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := frame.NewReader(bytes.NewReader(tt.data), crypt.New(0))
			_, err := r.ReadFrame()
			assert.ErrorIs(t, err, io.EOF)
			assert.NotErrorIs(t, err, frame.ErrTruncated)
		})
	}
}

func TestReader_Truncated(t *testing.T) {
	data := feedbuilder.New(0).SlotColumn(2, 4, 0, "1:21.345").Bytes()
	r := frame.NewReader(bytes.NewReader(data[:len(data)-3]), crypt.New(0))
	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, frame.ErrTruncated)
}

type countingReader struct {
	r     io.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.reads += n
	return n, err
}

func TestReader_UnknownKindStopsReading(t *testing.T) {
	data := feedbuilder.New(0).Control(13, 0, 4).RawBytes(1, 2, 3, 4).Bytes()
	cr := &countingReader{r: bytes.NewReader(data)}
	r := frame.NewReader(cr, crypt.New(0))
	_, err := r.ReadFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, frame.ErrUnknownFrameKind))
	assert.Equal(t, 2, cr.reads, "only the header may be consumed")
}
