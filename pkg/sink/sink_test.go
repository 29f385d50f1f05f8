//nolint:funlen // ok for tests
package sink

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
)

func feed(p model.Presentation) {
	p.OnModeChange(model.ModeRace)
	p.OnSlotRow(3, 1)
	p.OnSlotColumn(3, model.RaceColName, "HAMILTON", model.ColourWhite)
	p.OnSlotName(3, "HAMILTON")
	p.OnCommentaryLine(1, "Safety car in this lap")
	p.OnSafetyMessage("Track clear")
	p.OnRaceStatus(model.StatusYellow)
	p.OnValidity(true)
	p.OnConnectionHealth(model.HealthStreaming)
}

func TestMultiKeepsOrder(t *testing.T) {
	a, b := &model.Recorder{}, &model.Recorder{}
	feed(Multi(a, b))

	direct := &model.Recorder{}
	feed(direct)
	if diff := cmp.Diff(direct.Events, a.Events); diff != "" {
		t.Errorf("first mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(direct.Events, b.Events); diff != "" {
		t.Errorf("second mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter(t *testing.T) {
	rec := &model.Recorder{}
	feed(Filter(rec, model.EKSafetyMessage, model.EKConnectionHealth))
	assert.Equal(t,
		[]model.EventKind{model.EKSafetyMessage, model.EKConnectionHealth},
		rec.Kinds())

	all := &model.Recorder{}
	feed(Filter(all))
	assert.Len(t, all.Events, 9)
}

func TestConsole(t *testing.T) {
	tests := []struct {
		name  string
		opts  []ConsoleOption
		input func(p model.Presentation)
		want  []string
	}{
		{
			name:  "grid and status",
			input: feed,
			want: []string{
				"session race",
				"slot  3 col  3 white   HAMILTON",
				"slot  3 name HAMILTON",
				"[1] Safety car in this lap",
				"!! Track clear",
				"track yellow",
				"valid true",
				"connection streaming",
			},
		},
		{
			name:  "quiet grid",
			opts:  []ConsoleOption{WithQuiet(true)},
			input: func(p model.Presentation) { p.OnSlotColumn(1, 2, "44", model.ColourRed) },
		},
		{
			name: "wrapped commentary",
			opts: []ConsoleOption{WithWidth(20)},
			input: func(p model.Presentation) {
				p.OnCommentaryLine(2, "Rain expected within ten minutes")
			},
			want: []string{
				"[2] Rain expected",
				"    within ten",
				"    minutes",
			},
		},
		{
			name: "safety message keeps long words",
			opts: []ConsoleOption{WithWidth(20)},
			input: func(p model.Presentation) {
				p.OnSafetyMessage("Blue flag CAR44OVERTAKENBYLEADER")
				p.OnCommentaryLine(1, "CAR44OVERTAKENBYLEADER")
			},
			want: []string{
				"!! Blue flag",
				"   CAR44OVERTAKENBYLEADER",
				"[1] CAR44OVERTAKENBY",
				"    LEADER",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := NewConsole(&buf, tt.opts...)
			tt.input(c.Presentation())
			got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			if buf.Len() == 0 {
				got = nil
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*nats.Msg
	err  error
}

func (f *fakePublisher) PublishMsg(m *nats.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func TestNatsPublish(t *testing.T) {
	pub := &fakePublisher{}
	ts := time.Date(2024, 5, 26, 13, 0, 0, 0, time.UTC)
	n := NewNats(pub, "ltf.monaco", WithRunID("run-1"),
		WithNatsNow(func() time.Time { return ts }))
	p := n.Presentation()
	p.OnSlotColumn(3, model.RaceColGap, "1.2", model.ColourYellow)
	p.OnValidity(false)

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "ltf.monaco.slot.column", pub.msgs[0].Subject)
	assert.Equal(t, "ltf.monaco.validity", pub.msgs[1].Subject)
	assert.Equal(t, "run-1", pub.msgs[0].Header.Get(HeaderRun))
	assert.Equal(t, "1", pub.msgs[0].Header.Get(HeaderSequence))
	assert.Equal(t, "2", pub.msgs[1].Header.Get(HeaderSequence))

	e, err := Decode(pub.msgs[0])
	require.NoError(t, err)
	yellow := model.ColourYellow
	want := model.Event{
		Kind: model.EKSlotColumn, Timestamp: ts, Slot: 3,
		Column: model.RaceColGap, Text: "1.2", Colour: &yellow,
	}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}

	e, err = Decode(pub.msgs[1])
	require.NoError(t, err)
	require.NotNil(t, e.Value)
	assert.False(t, *e.Value)

	rec := &model.Recorder{}
	e.Apply(rec)
	assert.Equal(t, []model.EventKind{model.EKValidity}, rec.Kinds())
}

func TestNatsPublishFailureIsCounted(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	n := NewNats(pub, "ltf")
	n.Presentation().OnSafetyMessage("x")
	assert.Equal(t, uint64(1), n.Failed())
}

func TestNatsCountdown(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNats(pub, "ltf")
	ch := make(chan string, 2)
	ch <- "1:00"
	ch <- "0:59"
	close(ch)
	n.Countdown(ch)
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "ltf.countdown", pub.msgs[1].Subject)
	e, err := Decode(pub.msgs[1])
	require.NoError(t, err)
	assert.Equal(t, "0:59", e.Text)
}

func TestSessionClock(t *testing.T) {
	now := time.Date(2024, 5, 26, 13, 0, 0, 0, time.UTC)
	c := NewSessionClock(WithClockNow(func() time.Time { return now }))

	c.OnInterpolate()
	c.OnSessionTime("1:00:00")
	c.OnInterpolate()
	select {
	case got := <-c.Ticks():
		assert.Equal(t, "1:00:00", got)
	case <-time.After(time.Second):
		t.Fatal("no tick")
	}

	c.OnSessionTime("59:00")
	c.Close()
	c.Close()
	for range c.Ticks() {
		// drain values sent before the clock was frozen
	}
	c.OnInterpolate()
}
