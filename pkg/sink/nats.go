package sink

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/livetiming-feed-go/log"
	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
)

const (
	HeaderRun      = "Ltf-Run"
	HeaderSequence = "Ltf-Seq"
)

// Publisher is the part of *nats.Conn used by the sink.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

type NatsOption func(*Nats)

func WithRunID(id string) NatsOption {
	return func(n *Nats) {
		n.runID = id
	}
}

func WithNatsLogger(l *log.Logger) NatsOption {
	return func(n *Nats) {
		n.log = l
	}
}

func WithNatsNow(now func() time.Time) NatsOption {
	return func(n *Nats) {
		n.now = now
	}
}

// Nats publishes every update as JSON on <prefix>.<kind>.
type Nats struct {
	pub    Publisher
	prefix string
	runID  string
	now    func() time.Time
	log    *log.Logger
	seq    atomic.Uint64
	failed atomic.Uint64
}

func NewNats(pub Publisher, prefix string, opts ...NatsOption) *Nats {
	n := &Nats{
		pub:    pub,
		prefix: prefix,
		runID:  uuid.New().String(),
		now:    time.Now,
		log:    log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Nats) Presentation() model.Presentation {
	return model.EventFunc(n.publishEvent)
}

// Failed returns the number of messages that could not be published.
func (n *Nats) Failed() uint64 {
	return n.failed.Load()
}

// Countdown publishes the ticking session clock until ch is closed.
func (n *Nats) Countdown(ch <-chan string) {
	for text := range ch {
		n.publishEvent(model.Event{Kind: model.EKCountdown, Text: text})
	}
}

func (n *Nats) publishEvent(e model.Event) {
	e.Timestamp = n.now()
	data, err := json.Marshal(e)
	if err != nil {
		n.log.Error("marshal event", log.String("kind", string(e.Kind)), log.ErrorField(err))
		return
	}
	msg := nats.NewMsg(n.prefix + "." + string(e.Kind))
	msg.Header.Set(HeaderRun, n.runID)
	msg.Header.Set(HeaderSequence, strconv.FormatUint(n.seq.Add(1), 10))
	msg.Data = data
	if err := n.pub.PublishMsg(msg); err != nil {
		n.failed.Add(1)
		n.log.Warn("publish event",
			log.String("subject", msg.Subject), log.ErrorField(err))
	}
}

// Decode is the counterpart of the published payload.
func Decode(msg *nats.Msg) (model.Event, error) {
	var e model.Event
	err := json.Unmarshal(msg.Data, &e)
	return e, err
}
