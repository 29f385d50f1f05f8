package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/textwrap"
	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
)

type ConsoleOption func(*Console)

// WithWidth sets the line width used to wrap commentary and safety messages.
func WithWidth(width int) ConsoleOption {
	return func(c *Console) {
		c.width = width
	}
}

// WithQuiet suppresses the per cell updates of the grid.
func WithQuiet(quiet bool) ConsoleOption {
	return func(c *Console) {
		c.quiet = quiet
	}
}

// Console prints updates as readable lines.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	width int
	quiet bool
}

func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{w: w, width: 72}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) Presentation() model.Presentation {
	return model.EventFunc(c.write)
}

// Countdown prints the ticking session clock until ch is closed.
func (c *Console) Countdown(ch <-chan string) {
	for text := range ch {
		c.println("clock " + text)
	}
}

//nolint:cyclop // one line format per kind
func (c *Console) write(e model.Event) {
	switch e.Kind {
	case model.EKSlotColumn:
		if c.quiet {
			return
		}
		var colour model.Colour
		if e.Colour != nil {
			colour = *e.Colour
		}
		c.println(fmt.Sprintf("slot %2d col %2d %-7s %s", e.Slot, e.Column, colour, e.Text))
	case model.EKSlotRow, model.EKBlankRow, model.EKSlotGraphPoint,
		model.EKClock, model.EKInterpolate:
		return
	case model.EKSlotName:
		c.println(fmt.Sprintf("slot %2d name %s", e.Slot, e.Text))
	case model.EKCommentary:
		c.wrapped(fmt.Sprintf("[%d] ", e.Language), e.Text, textwrap.Wrap)
	case model.EKSafetyMessage:
		c.wrapped("!! ", e.Text, textwrap.WrapWords)
	case model.EKSessionTime:
		c.println("session time " + e.Text)
	case model.EKWeather:
		c.println(fmt.Sprintf("weather %d %s", e.Channel, e.Text))
	case model.EKSpeedTrap:
		c.println(fmt.Sprintf("speed col %d row %d %s", e.Column, e.Row, e.Text))
	case model.EKFastestLap:
		c.println(fmt.Sprintf("fastest lap %d %s", e.Column, e.Text))
	case model.EKRaceStatus:
		c.println("track " + model.RaceStatus(e.Code).String())
	case model.EKValidity:
		c.println(fmt.Sprintf("valid %t", e.Value != nil && *e.Value))
	case model.EKModeChange:
		c.println("session " + e.Mode)
	case model.EKRefreshRate:
		c.println(fmt.Sprintf("refresh rate %ds", e.Seconds))
	case model.EKConnectionHealth:
		c.println("connection " + string(e.Health))
	}
}

type wrapFunc func(s string, width int, measure textwrap.Measure) []string

// wrapped prints text below prefix. Commentary may split long words, safety
// messages keep them whole.
func (c *Console) wrapped(prefix, text string, wrap wrapFunc) {
	width := c.width - len(prefix)
	indent := strings.Repeat(" ", len(prefix))
	for i, line := range wrap(text, width, textwrap.RuneCount) {
		if i == 0 {
			c.println(prefix + line)
		} else {
			c.println(indent + line)
		}
	}
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}
