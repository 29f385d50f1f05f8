package model

import "time"

// Event is the serializable form of a single presentation update.
// Only the fields relevant for Kind are set.
//
//nolint:tagliatelle // client compatibility
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"ts"`
	Slot      int       `json:"slot,omitempty"`
	Row       int       `json:"row,omitempty"`
	Column    int       `json:"column,omitempty"`
	Lap       int       `json:"lap,omitempty"`
	Colour    *Colour   `json:"colour,omitempty"`
	Channel   int       `json:"channel,omitempty"`
	Language  int       `json:"language,omitempty"`
	Text      string    `json:"text,omitempty"`
	Code      int       `json:"code,omitempty"`
	Value     *bool     `json:"value,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Health    Health    `json:"health,omitempty"`
	Seconds   int64     `json:"seconds,omitempty"`
}

// GridCell is a cached column value of a grid slot.
type GridCell struct {
	Text   string
	Colour Colour
}

// GridSlot is the decoder state of a single competitor.
type GridSlot struct {
	Row   int
	Name  string
	Cells [MaxColumns + 1]GridCell
	// row per lap, 0 = no data
	Laps    []int
	InitRow int
}

// Snapshot is a deep copy of the decoder grid.
type Snapshot struct {
	Mode       SessionMode
	CurrentLap int
	Slots      [32]GridSlot
}

// SlotByRow returns the slot displayed at row, 0 if none.
func (s *Snapshot) SlotByRow(row int) int {
	for i := 1; i < len(s.Slots); i++ {
		if s.Slots[i].Row == row {
			return i
		}
	}
	return 0
}

// Apply replays e on p. Unknown kinds are ignored.
//
//nolint:cyclop // one case per kind
func (e *Event) Apply(p Presentation) {
	switch e.Kind {
	case EKSlotRow:
		p.OnSlotRow(e.Slot, e.Row)
	case EKBlankRow:
		p.OnBlankRow(e.Row)
	case EKSlotColumn:
		var c Colour
		if e.Colour != nil {
			c = *e.Colour
		}
		p.OnSlotColumn(e.Slot, e.Column, e.Text, c)
	case EKSlotGraphPoint:
		p.OnSlotGraphPoint(e.Slot, e.Lap, e.Row)
	case EKSlotName:
		p.OnSlotName(e.Slot, e.Text)
	case EKCommentary:
		p.OnCommentaryLine(e.Language, e.Text)
	case EKSafetyMessage:
		p.OnSafetyMessage(e.Text)
	case EKSessionTime:
		p.OnSessionTime(e.Text)
	case EKInterpolate:
		p.OnInterpolate()
	case EKClock:
		p.OnClock(uint32(e.Seconds))
	case EKWeather:
		p.OnWeather(e.Channel, e.Text)
	case EKSpeedTrap:
		p.OnSpeedTrap(e.Column, e.Row, e.Text)
	case EKFastestLap:
		p.OnFastestLap(e.Column, e.Text)
	case EKRaceStatus:
		p.OnRaceStatus(RaceStatus(e.Code))
	case EKValidity:
		p.OnValidity(e.Value != nil && *e.Value)
	case EKModeChange:
		p.OnModeChange(SessionMode(e.Code))
	case EKRefreshRate:
		p.OnRefreshRate(int(e.Seconds))
	case EKConnectionHealth:
		p.OnConnectionHealth(e.Health)
	}
}
