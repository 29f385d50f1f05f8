// Package sink contains presentations that forward decoded updates to
// humans, logs and NATS subscribers.
package sink

import (
	"github.com/samber/lo"

	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
)

// Multi forwards every update to all ps in the given order.
func Multi(ps ...model.Presentation) model.Presentation {
	if len(ps) == 1 {
		return ps[0]
	}
	return model.EventFunc(func(e model.Event) {
		for _, p := range ps {
			e.Apply(p)
		}
	})
}

// Filter forwards only updates of the given kinds. No kinds forwards all.
func Filter(p model.Presentation, kinds ...model.EventKind) model.Presentation {
	if len(kinds) == 0 {
		return p
	}
	return model.EventFunc(func(e model.Event) {
		if lo.Contains(kinds, e.Kind) {
			e.Apply(p)
		}
	})
}
