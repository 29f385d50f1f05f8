package decoder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/frame"
	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
)

const driverOut = "OUT"

func (d *Decoder) applySlot(f frame.Frame) error {
	if d.resync.suppress {
		return nil
	}
	slot := int(f.ID)
	switch {
	case f.X == frame.SlotPosition:
		d.onSlotRow(slot, int(f.V))
	case f.X == frame.SlotGraph:
		d.onSlotGraph(slot, f.Payload)
	case f.X <= frame.SlotMaxCol:
		return d.onSlotColumn(slot, f)
	}
	return nil
}

// onSlotRow moves a slot to a row. Row 0 removes the slot from display, the
// old row is blanked unless another slot took it over.
func (d *Decoder) onSlotRow(slot, row int) {
	s := &d.slots[slot]
	if row == 0 {
		old := s.Row
		s.Row = 0
		d.pres.OnSlotRow(slot, 0)
		if old > 0 && d.slotAtRow(old) == 0 {
			d.pres.OnBlankRow(old)
		}
		return
	}
	if d.mode == model.ModeRace && s.InitRow == 0 {
		d.initGraph(s, row)
	}
	s.Row = row
	d.pres.OnSlotRow(slot, row)
}

func (d *Decoder) initGraph(s *model.GridSlot, row int) {
	s.InitRow = row
	s.Laps = s.Laps[:0]
}

// onSlotGraph replaces the lap history: starting row followed by the row of
// each lap, 0 for laps without data.
func (d *Decoder) onSlotGraph(slot int, payload []byte) {
	if len(payload) == 0 {
		return
	}
	s := &d.slots[slot]
	d.initGraph(s, int(payload[0]))
	for lap := 1; lap < len(payload); lap++ {
		if payload[lap] > 0 {
			d.addGraphPoint(slot, lap, int(payload[lap]))
		}
	}
}

func (d *Decoder) addGraphPoint(slot, lap, row int) {
	if d.mode != model.ModeRace || lap < 1 || lap >= model.MaxLaps {
		return
	}
	s := &d.slots[slot]
	for len(s.Laps) <= lap {
		s.Laps = append(s.Laps, 0)
	}
	s.Laps[lap] = row
	d.pres.OnSlotGraphPoint(slot, lap, row)
}

// onSlotColumn updates a column value or only its colour (l == 15).
func (d *Decoder) onSlotColumn(slot int, f frame.Frame) error {
	s := &d.slots[slot]
	col := int(f.X)
	cell := &s.Cells[col]
	cell.Colour = model.Colour(f.C)
	var err error
	switch {
	case f.L == 0:
		cell.Text = ""
	case f.L < frame.NoPayload:
		cell.Text = latin1(f.Payload)
		if d.mode == model.ModeRace {
			err = d.raceColumn(slot, col)
		}
	}
	if s.Row > 0 {
		d.pres.OnSlotColumn(slot, col, cell.Text, cell.Colour)
	}
	return err
}

// raceColumn derives the slot name, the current lap and the graph points
// from race mode columns.
func (d *Decoder) raceColumn(slot, col int) error {
	s := &d.slots[slot]
	switch col {
	case model.RaceColName:
		if s.Name == "" {
			s.Name = s.Cells[col].Text
			d.pres.OnSlotName(slot, s.Name)
		}
	case model.RaceColInterval:
		if s.Row != 1 {
			return nil
		}
		lap, err := strconv.Atoi(s.Cells[col].Text)
		if err != nil {
			return fmt.Errorf("%w: current lap %q", frame.ErrMalformedField, s.Cells[col].Text)
		}
		d.currentLap = lap
	case model.RaceColSector3:
		gap := s.Cells[model.RaceColGap].Text
		if gap == "" || s.Cells[model.RaceColLapTime].Text == driverOut {
			return nil
		}
		behind := 0
		if i := strings.IndexByte(gap, 'L'); i > 0 {
			var err error
			if behind, err = strconv.Atoi(gap[:i]); err != nil {
				return fmt.Errorf("%w: laps behind %q", frame.ErrMalformedField, gap)
			}
		}
		d.addGraphPoint(slot, d.currentLap-behind, s.Row)
	}
	return nil
}
