// Package events is the fire-and-forget activity stream used for live
// monitoring. Emission failures never affect step outcomes.
package events

import "time"

type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventDeferred  EventType = "deferred"
	EventPaused    EventType = "paused"
	EventCleanup   EventType = "cleanup"
)

type Event struct {
	Type        EventType `json:"type"`
	StepID      int64     `json:"step_id,omitempty"`
	Description string    `json:"description"`
	Progress    float64   `json:"progress,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Emitter publishes one event for a workspace. Implementations must never
// block the caller for long and must swallow their own failures.
type Emitter interface {
	Emit(workspaceID string, ev Event)
}

// NopEmitter discards everything.
type NopEmitter struct{}

func (NopEmitter) Emit(string, Event) {}
