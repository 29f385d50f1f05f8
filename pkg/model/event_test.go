package model

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func feedAll(p Presentation) {
	p.OnSlotRow(1, 2)
	p.OnBlankRow(3)
	p.OnSlotColumn(1, RaceColGap, "+1.4", ColourYellow)
	p.OnSlotGraphPoint(1, 12, 2)
	p.OnSlotName(1, "VETTEL")
	p.OnCommentaryLine(2, "Box box")
	p.OnSafetyMessage("Pit exit closed")
	p.OnSessionTime("1:02:03")
	p.OnInterpolate()
	p.OnClock(0x123456)
	p.OnWeather(WeatherAirTemp, "21")
	p.OnSpeedTrap(2, 1, "MSC 312")
	p.OnFastestLap(5, "1:21.345")
	p.OnRaceStatus(StatusSafetyCarDeploy)
	p.OnValidity(true)
	p.OnModeChange(ModeQualifying)
	p.OnRefreshRate(5)
	p.OnConnectionHealth(HealthPinging)
}

func TestApplyReplaysEvents(t *testing.T) {
	src := &Recorder{}
	feedAll(src)
	assert.Len(t, src.Events, 18)

	dst := &Recorder{}
	for i := range src.Events {
		src.Events[i].Apply(dst)
	}
	if diff := cmp.Diff(src.Events, dst.Events); diff != "" {
		t.Errorf("replay mismatch (-want +got):\n%s", diff)
	}
}

func TestSynchronized(t *testing.T) {
	rec := &Recorder{}
	p := Synchronized(rec)
	assert.Same(t, p, Synchronized(p))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				p.OnConnectionHealth(HealthData)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, rec.Events, 400)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "magenta", ColourMagenta.String())
	assert.Equal(t, "unknown", Colour(9).String())
	assert.Equal(t, "red", StatusRed.String())
	assert.Equal(t, "qualifying1", ModeQualifying1.String())
	assert.Equal(t, 13, ModeRace.Columns())
}
