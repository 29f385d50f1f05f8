package sink

import (
	"github.com/mpapenbr/livetiming-feed-go/log"
	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
)

// NewLog logs every update at debug level. Safety messages and connection
// health are logged at info level.
func NewLog(l *log.Logger) model.Presentation {
	return model.EventFunc(func(e model.Event) {
		fields := []log.Field{log.String("kind", string(e.Kind))}
		if e.Text != "" {
			fields = append(fields, log.String("text", e.Text))
		}
		switch e.Kind {
		case model.EKSafetyMessage:
			l.Info("safety message", fields...)
		case model.EKConnectionHealth:
			l.Info("connection", log.String("health", string(e.Health)))
		case model.EKModeChange:
			l.Info("session mode", log.String("mode", e.Mode))
		default:
			l.Debug("update", append(fields, log.Any("event", e))...)
		}
	})
}
