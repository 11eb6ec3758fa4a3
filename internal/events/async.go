package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type envelope struct {
	workspaceID string
	ev          Event
}

// AsyncEmitter decouples emission from the scheduler's control flow: events
// go onto a bounded channel consumed by one observer goroutine. When the
// buffer is full the event is dropped, never blocked on.
type AsyncEmitter struct {
	sink Emitter
	ch   chan envelope
	log  *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewAsyncEmitter(sink Emitter, buffer int, log *zap.Logger) *AsyncEmitter {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &AsyncEmitter{
		sink: sink,
		ch:   make(chan envelope, buffer),
		log:  log,
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncEmitter) Emit(workspaceID string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case a.ch <- envelope{workspaceID: workspaceID, ev: ev}:
	default:
		a.log.Debug("activity event dropped, buffer full",
			zap.String("workspace", workspaceID),
			zap.String("type", string(ev.Type)))
	}
}

func (a *AsyncEmitter) run() {
	defer close(a.done)
	for env := range a.ch {
		a.sink.Emit(env.workspaceID, env.ev)
	}
}

// Close drains buffered events and stops the observer goroutine.
func (a *AsyncEmitter) Close() {
	a.closeOnce.Do(func() {
		close(a.ch)
		<-a.done
	})
}
