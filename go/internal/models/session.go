package models

import "time"

// SessionSchemaVersion is the shape written by this build.
const SessionSchemaVersion = 2

// DefaultTimeScale is the time scale of a fresh session.
const DefaultTimeScale = 1.0

// RunSettings holds the mutable settings of a session.
type RunSettings struct {
	TimeScale float64 `json:"timeScale"`
}

// Session is the durable record owned by the run synchronizer. Tree is
// immutable after init; Events only grows.
type Session struct {
	ID            string         `json:"id"`
	SchemaVersion int            `json:"schemaVersion"`
	Tree          Segment        `json:"tree"`
	Events        []ControlEvent `json:"events"`
	Settings      RunSettings    `json:"settings"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// HasStarted reports whether any start event was ever appended.
func (s *Session) HasStarted() bool {
	for _, ev := range s.Events {
		if ev.Type == EventTypeStart {
			return true
		}
	}
	return false
}

// HasEvent reports whether an event with id was already appended.
func (s *Session) HasEvent(id string) bool {
	for _, ev := range s.Events {
		if ev.ID == id {
			return true
		}
	}
	return false
}

// ClockBase anchors a session's monotonic timeline so it survives restarts.
// BaseWallMs is the session "now" observed when BaseMonoMs was read from the
// local high-resolution timer of the incarnation that wrote it. Monotonic
// readings do not carry across processes, so a restart anchors on BaseWallMs
// alone and BaseMonoMs is only reported for diagnostics.
type ClockBase struct {
	BaseMonoMs int64 `json:"baseMonoMs"`
	BaseWallMs int64 `json:"baseWallMs"`
}

// Snapshot is the authoritative view pushed to every viewer.
type Snapshot struct {
	ID          string         `json:"id"`
	Tree        Segment        `json:"tree"`
	Events      []ControlEvent `json:"events"`
	ServerNowMs int64          `json:"serverNowMs"`
	TimeScale   float64        `json:"timeScale"`
	Derived     DerivedState   `json:"derived"`
	OnlineCount int            `json:"onlineCount"`
}
