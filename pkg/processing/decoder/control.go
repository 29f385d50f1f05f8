package decoder

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/mpapenbr/livetiming-feed-go/log"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/frame"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/sessiontime"
	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
)

const (
	commentaryFinal = 0x01
	commentaryUTF16 = 0x02
	// columns of the speed trap table, the fastest lap fields follow
	speedColumns = 4
	fastestLast  = 7
	raceStatus   = 1
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func latin1(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

//nolint:cyclop,funlen // one case per frame kind
func (d *Decoder) applyControl(ctx context.Context, f frame.Frame) error {
	switch f.X {
	case frame.CtrlSessionMode:
		return d.onSessionMode(ctx, f)
	case frame.CtrlKeyframe:
		return d.onKeyframeMarker(ctx, binary.LittleEndian.Uint16(f.Payload))
	case frame.CtrlRefreshRate:
		return d.onRefreshRate(f)
	}
	if d.resync.suppress {
		return nil
	}
	switch f.X {
	case frame.CtrlValid:
		d.pres.OnValidity(f.C != 0)
	case frame.CtrlCommentary:
		return d.onCommentary(f.Payload)
	case frame.CtrlSafetyMessage:
		d.pres.OnSafetyMessage(string(f.Payload))
	case frame.CtrlClock:
		d.onClock(f)
	case frame.CtrlSessionTime:
		return d.onSessionTime(f)
	case frame.CtrlSpeedTable:
		return d.onSpeedTable(f.Payload)
	case frame.CtrlMisc:
		if f.C != raceStatus {
			d.log.Debug("unknown misc status", log.Uint("c", uint(f.C)))
			return nil
		}
		code, err := strconv.Atoi(latin1(f.Payload))
		if err != nil {
			return fmt.Errorf("%w: race status %q", frame.ErrMalformedField, f.Payload)
		}
		d.pres.OnRaceStatus(model.RaceStatus(code))
	case frame.CtrlRaw:
		d.log.Debug("ignoring raw blob", log.Int("len", len(f.Payload)))
	default:
		return fmt.Errorf("%w: control x=%d", frame.ErrUnknownFrameKind, f.X)
	}
	return nil
}

// onSessionMode handles the mode announcement. The session id is evaluated
// even while suppressing since it controls the cipher key.
func (d *Decoder) onSessionMode(ctx context.Context, f frame.Frame) error {
	if len(f.Payload) > 1 {
		if err := d.setSessionID(ctx, latin1(f.Payload[1:])); err != nil {
			return err
		}
	}
	if d.resync.suppress {
		return nil
	}
	mode := model.SessionMode(f.C)
	if d.modeSet && mode == d.mode {
		return nil
	}
	if d.modeSet {
		d.resetSlots()
		if d.resync.loadCount <= 1 {
			clear(d.commentary)
		}
	}
	d.mode = mode
	d.modeSet = true
	d.log.Info("session mode", log.String("mode", mode.String()))
	d.pres.OnModeChange(mode)
	return nil
}

func (d *Decoder) resetSlots() {
	for i := range d.slots {
		if row := d.slots[i].Row; row > 0 {
			d.slots[i].Row = 0
			if d.slotAtRow(row) == 0 {
				d.pres.OnBlankRow(row)
			}
		}
		d.slots[i] = model.GridSlot{}
	}
	d.currentLap = 0
}

func (d *Decoder) setSessionID(ctx context.Context, id string) error {
	if id == d.sessionID {
		return nil
	}
	d.log.Info("session changed", log.String("session", id), log.String("previous", d.sessionID))
	d.sessionID = id
	key := d.cipher.Key()
	if d.keys != nil {
		var err error
		if key, err = d.keys.SessionKey(ctx, id); err != nil {
			return fmt.Errorf("session key for %s: %w", id, err)
		}
	}
	d.cipher.SetKey(key)
	return nil
}

func (d *Decoder) onRefreshRate(f frame.Frame) error {
	if d.resync.suppress {
		return nil
	}
	d.refreshRate.Store(int32(f.V))
	d.pres.OnRefreshRate(int(f.V))
	if f.V == 0 {
		d.log.Info("end of stream")
		return ErrEndOfStream
	}
	return nil
}

// onCommentary accumulates fragments per language tag. Legacy lines with a
// first byte >= 32 are complete and go to all languages.
func (d *Decoder) onCommentary(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty commentary", frame.ErrMalformedField)
	}
	if payload[0] >= model.MaxCommentaryTag {
		d.emitCommentary(0, latin1(payload))
		return nil
	}
	if len(payload) < 2 {
		return fmt.Errorf("%w: commentary without flags", frame.ErrMalformedField)
	}
	tag, flags := payload[0], payload[1]
	var text string
	if flags&commentaryUTF16 != 0 {
		b, err := utf16le.NewDecoder().Bytes(payload[2:])
		if err != nil {
			return fmt.Errorf("%w: commentary: %w", frame.ErrMalformedField, err)
		}
		text = string(b)
	} else {
		text = string(payload[2:])
	}
	d.commentary[tag] = append(d.commentary[tag], text)
	if flags&commentaryFinal == 0 {
		return nil
	}
	line := strings.Join(d.commentary[tag], "")
	delete(d.commentary, tag)
	d.emitCommentary(int(tag), line)
	return nil
}

func (d *Decoder) emitCommentary(tag int, line string) {
	for _, lang := range d.languages {
		if tag == 0 || tag == lang {
			d.pres.OnCommentaryLine(lang, line)
		}
	}
}

func (d *Decoder) onClock(f frame.Frame) {
	ts := int(f.V)<<16 | int(f.Payload[1])<<8 | int(f.Payload[0])
	d.lastClock = ts
	d.pres.OnClock(uint32(ts))
	if d.resync.loading || !d.times.TakeInterpolate() {
		return
	}
	text := d.times.Fudge(ts-d.times.ClockTimestamp(), d.now())
	d.pres.OnSessionTime(text)
	d.pres.OnInterpolate()
}

// onSessionTime handles weather values (c > 0), the remaining session time
// (c == 0) and the decrement flag (l == 15).
func (d *Decoder) onSessionTime(f frame.Frame) error {
	switch {
	case f.L == frame.NoPayload:
		if d.resync.loading {
			d.times.MarkInterpolate()
		} else {
			d.pres.OnInterpolate()
		}
	case f.C > 0:
		d.pres.OnWeather(int(f.C), latin1(f.Payload))
	case len(f.Payload) > 0:
		text := latin1(f.Payload)
		d.times.Set(text, d.now())
		if d.resync.loading {
			d.times.SetClockTimestamp(d.lastClock)
		}
		d.log.Debug("session time", log.String("time", text),
			log.Int64("seconds", sessiontime.Parse(text)))
		d.pres.OnSessionTime(text)
	}
	return nil
}

// onSpeedTable handles the speed trap table (columns 0..3, carriage return
// separated cells filled two per row) and the fastest lap fields (4..7).
func (d *Decoder) onSpeedTable(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty speed table", frame.ErrMalformedField)
	}
	col := int(payload[0]) - 1
	data := latin1(payload[1:])
	switch {
	case col >= 0 && col < speedColumns:
		subcol, row := 1, 1
		for {
			n := strings.IndexByte(data, '\r')
			if n <= 0 {
				break
			}
			d.pres.OnSpeedTrap(col*2+subcol, row, data[:n])
			if subcol == 1 {
				subcol = 2
			} else {
				subcol = 1
				row++
			}
			data = data[n+1:]
		}
	case col >= speedColumns && col <= fastestLast:
		d.pres.OnFastestLap(col, data)
	default:
		d.log.Debug("unknown speed table column", log.Int("col", col))
	}
	return nil
}
