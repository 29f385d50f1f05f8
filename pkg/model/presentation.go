package model

// Presentation consumes the updates produced by the decoder and the supervisor.
// Calls are made synchronously and in stream order.
type Presentation interface {
	OnSlotRow(slot, row int)
	OnBlankRow(row int)
	OnSlotColumn(slot, column int, text string, colour Colour)
	OnSlotGraphPoint(slot, lap, row int)
	OnSlotName(slot int, name string)
	OnCommentaryLine(language int, text string)
	OnSafetyMessage(text string)
	OnSessionTime(text string)
	OnInterpolate()
	OnClock(ts uint32)
	OnWeather(channel int, text string)
	OnSpeedTrap(col, row int, text string)
	OnFastestLap(field int, text string)
	OnRaceStatus(code RaceStatus)
	OnValidity(valid bool)
	OnModeChange(mode SessionMode)
	OnRefreshRate(seconds int)
	OnConnectionHealth(h Health)
}

// NopPresentation ignores all updates. Embed it to implement only a subset.
type NopPresentation struct{}

var _ Presentation = NopPresentation{}

func (NopPresentation) OnSlotRow(int, int)                    {}
func (NopPresentation) OnBlankRow(int)                        {}
func (NopPresentation) OnSlotColumn(int, int, string, Colour) {}
func (NopPresentation) OnSlotGraphPoint(int, int, int)        {}
func (NopPresentation) OnSlotName(int, string)                {}
func (NopPresentation) OnCommentaryLine(int, string)          {}
func (NopPresentation) OnSafetyMessage(string)                {}
func (NopPresentation) OnSessionTime(string)                  {}
func (NopPresentation) OnInterpolate()                        {}
func (NopPresentation) OnClock(uint32)                        {}
func (NopPresentation) OnWeather(int, string)                 {}
func (NopPresentation) OnSpeedTrap(int, int, string)          {}
func (NopPresentation) OnFastestLap(int, string)              {}
func (NopPresentation) OnRaceStatus(RaceStatus)               {}
func (NopPresentation) OnValidity(bool)                       {}
func (NopPresentation) OnModeChange(SessionMode)              {}
func (NopPresentation) OnRefreshRate(int)                     {}
func (NopPresentation) OnConnectionHealth(Health)             {}

// EventFunc turns every update into an Event and hands it to the function.
type EventFunc func(e Event)

var _ Presentation = EventFunc(nil)

func (f EventFunc) OnSlotRow(slot, row int) {
	f(Event{Kind: EKSlotRow, Slot: slot, Row: row})
}

func (f EventFunc) OnBlankRow(row int) {
	f(Event{Kind: EKBlankRow, Row: row})
}

func (f EventFunc) OnSlotColumn(slot, column int, text string, colour Colour) {
	f(Event{Kind: EKSlotColumn, Slot: slot, Column: column, Text: text, Colour: &colour})
}

func (f EventFunc) OnSlotGraphPoint(slot, lap, row int) {
	f(Event{Kind: EKSlotGraphPoint, Slot: slot, Lap: lap, Row: row})
}

func (f EventFunc) OnSlotName(slot int, name string) {
	f(Event{Kind: EKSlotName, Slot: slot, Text: name})
}

func (f EventFunc) OnCommentaryLine(language int, text string) {
	f(Event{Kind: EKCommentary, Language: language, Text: text})
}

func (f EventFunc) OnSafetyMessage(text string) {
	f(Event{Kind: EKSafetyMessage, Text: text})
}

func (f EventFunc) OnSessionTime(text string) {
	f(Event{Kind: EKSessionTime, Text: text})
}

func (f EventFunc) OnInterpolate() {
	f(Event{Kind: EKInterpolate})
}

func (f EventFunc) OnClock(ts uint32) {
	f(Event{Kind: EKClock, Seconds: int64(ts)})
}

func (f EventFunc) OnWeather(channel int, text string) {
	f(Event{Kind: EKWeather, Channel: channel, Text: text})
}

func (f EventFunc) OnSpeedTrap(col, row int, text string) {
	f(Event{Kind: EKSpeedTrap, Column: col, Row: row, Text: text})
}

func (f EventFunc) OnFastestLap(field int, text string) {
	f(Event{Kind: EKFastestLap, Column: field, Text: text})
}

func (f EventFunc) OnRaceStatus(code RaceStatus) {
	f(Event{Kind: EKRaceStatus, Code: int(code)})
}

func (f EventFunc) OnValidity(valid bool) {
	f(Event{Kind: EKValidity, Value: &valid})
}

func (f EventFunc) OnModeChange(mode SessionMode) {
	f(Event{Kind: EKModeChange, Code: int(mode), Mode: mode.String()})
}

func (f EventFunc) OnRefreshRate(seconds int) {
	f(Event{Kind: EKRefreshRate, Seconds: int64(seconds)})
}

func (f EventFunc) OnConnectionHealth(h Health) {
	f(Event{Kind: EKConnectionHealth, Health: h})
}

// Recorder collects all updates as events. Used by tests and the replay check.
type Recorder struct {
	Events []Event
}

var _ Presentation = (*Recorder)(nil)

func (r *Recorder) add(e Event) { r.Events = append(r.Events, e) }

func (r *Recorder) Reset() { r.Events = nil }

func (r *Recorder) OnSlotRow(slot, row int) {
	EventFunc(r.add).OnSlotRow(slot, row)
}

func (r *Recorder) OnBlankRow(row int) {
	EventFunc(r.add).OnBlankRow(row)
}

func (r *Recorder) OnSlotColumn(slot, column int, text string, colour Colour) {
	EventFunc(r.add).OnSlotColumn(slot, column, text, colour)
}

func (r *Recorder) OnSlotGraphPoint(slot, lap, row int) {
	EventFunc(r.add).OnSlotGraphPoint(slot, lap, row)
}

func (r *Recorder) OnSlotName(slot int, name string) {
	EventFunc(r.add).OnSlotName(slot, name)
}

func (r *Recorder) OnCommentaryLine(language int, text string) {
	EventFunc(r.add).OnCommentaryLine(language, text)
}

func (r *Recorder) OnSafetyMessage(text string) {
	EventFunc(r.add).OnSafetyMessage(text)
}

func (r *Recorder) OnSessionTime(text string) {
	EventFunc(r.add).OnSessionTime(text)
}

func (r *Recorder) OnInterpolate() {
	EventFunc(r.add).OnInterpolate()
}

func (r *Recorder) OnClock(ts uint32) {
	EventFunc(r.add).OnClock(ts)
}

func (r *Recorder) OnWeather(channel int, text string) {
	EventFunc(r.add).OnWeather(channel, text)
}

func (r *Recorder) OnSpeedTrap(col, row int, text string) {
	EventFunc(r.add).OnSpeedTrap(col, row, text)
}

func (r *Recorder) OnFastestLap(field int, text string) {
	EventFunc(r.add).OnFastestLap(field, text)
}

func (r *Recorder) OnRaceStatus(code RaceStatus) {
	EventFunc(r.add).OnRaceStatus(code)
}

func (r *Recorder) OnValidity(valid bool) {
	EventFunc(r.add).OnValidity(valid)
}

func (r *Recorder) OnModeChange(mode SessionMode) {
	EventFunc(r.add).OnModeChange(mode)
}

func (r *Recorder) OnRefreshRate(seconds int) {
	EventFunc(r.add).OnRefreshRate(seconds)
}

func (r *Recorder) OnConnectionHealth(h Health) {
	EventFunc(r.add).OnConnectionHealth(h)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []EventKind {
	ret := make([]EventKind, len(r.Events))
	for i := range r.Events {
		ret[i] = r.Events[i].Kind
	}
	return ret
}
