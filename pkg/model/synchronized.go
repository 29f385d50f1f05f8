package model

import "sync"

// Synchronized serializes calls to p. The supervisor reports connection
// health from its control loop while the decoder emits from the reader.
func Synchronized(p Presentation) Presentation {
	if s, ok := p.(*syncPresentation); ok {
		return s
	}
	return &syncPresentation{p: p}
}

type syncPresentation struct {
	mu sync.Mutex
	p  Presentation
}

func (s *syncPresentation) do(f func(p Presentation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.p)
}

func (s *syncPresentation) OnSlotRow(slot, row int) {
	s.do(func(p Presentation) { p.OnSlotRow(slot, row) })
}

func (s *syncPresentation) OnBlankRow(row int) {
	s.do(func(p Presentation) { p.OnBlankRow(row) })
}

func (s *syncPresentation) OnSlotColumn(slot, column int, text string, colour Colour) {
	s.do(func(p Presentation) { p.OnSlotColumn(slot, column, text, colour) })
}

func (s *syncPresentation) OnSlotGraphPoint(slot, lap, row int) {
	s.do(func(p Presentation) { p.OnSlotGraphPoint(slot, lap, row) })
}

func (s *syncPresentation) OnSlotName(slot int, name string) {
	s.do(func(p Presentation) { p.OnSlotName(slot, name) })
}

func (s *syncPresentation) OnCommentaryLine(language int, text string) {
	s.do(func(p Presentation) { p.OnCommentaryLine(language, text) })
}

func (s *syncPresentation) OnSafetyMessage(text string) {
	s.do(func(p Presentation) { p.OnSafetyMessage(text) })
}

func (s *syncPresentation) OnSessionTime(text string) {
	s.do(func(p Presentation) { p.OnSessionTime(text) })
}

func (s *syncPresentation) OnInterpolate() {
	s.do(func(p Presentation) { p.OnInterpolate() })
}

func (s *syncPresentation) OnClock(ts uint32) {
	s.do(func(p Presentation) { p.OnClock(ts) })
}

func (s *syncPresentation) OnWeather(channel int, text string) {
	s.do(func(p Presentation) { p.OnWeather(channel, text) })
}

func (s *syncPresentation) OnSpeedTrap(col, row int, text string) {
	s.do(func(p Presentation) { p.OnSpeedTrap(col, row, text) })
}

func (s *syncPresentation) OnFastestLap(field int, text string) {
	s.do(func(p Presentation) { p.OnFastestLap(field, text) })
}

func (s *syncPresentation) OnRaceStatus(code RaceStatus) {
	s.do(func(p Presentation) { p.OnRaceStatus(code) })
}

func (s *syncPresentation) OnValidity(valid bool) {
	s.do(func(p Presentation) { p.OnValidity(valid) })
}

func (s *syncPresentation) OnModeChange(mode SessionMode) {
	s.do(func(p Presentation) { p.OnModeChange(mode) })
}

func (s *syncPresentation) OnRefreshRate(seconds int) {
	s.do(func(p Presentation) { p.OnRefreshRate(seconds) })
}

func (s *syncPresentation) OnConnectionHealth(h Health) {
	s.do(func(p Presentation) { p.OnConnectionHealth(h) })
}
