package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType is the tag of a control event.
type EventType string

const (
	EventTypeStart   EventType = "start"
	EventTypePause   EventType = "pause"
	EventTypeResume  EventType = "resume"
	EventTypeFinish  EventType = "finish"
	EventTypeAdvance EventType = "advance"
	EventTypeSplit   EventType = "split"
	EventTypeUndo    EventType = "undo"

	// legacyEventTypeNext is what older controllers sent for advance.
	legacyEventTypeNext EventType = "next"
)

// ErrUnknownEventType is returned when decoding an event with an unrecognized tag.
var ErrUnknownEventType = errors.New("unknown event type")

// ParseEventType maps a wire tag onto the closed event type set.
func ParseEventType(s string) (EventType, error) {
	switch t := EventType(s); t {
	case EventTypeStart, EventTypePause, EventTypeResume, EventTypeFinish,
		EventTypeAdvance, EventTypeSplit, EventTypeUndo:
		return t, nil
	case legacyEventTypeNext:
		return EventTypeAdvance, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
}

// ControlEvent is a single timestamped action in a session's append-only log.
// AtMs is on the session's shared monotonic timeline.
type ControlEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	AtMs          int64     `json:"atMs"`
	Label         string    `json:"label,omitempty"`         // split
	TargetEventID string    `json:"targetEventId,omitempty"` // undo
}

// UnmarshalJSON rejects unknown tags and folds the legacy advance alias.
func (e *ControlEvent) UnmarshalJSON(data []byte) error {
	type wire ControlEvent
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t, err := ParseEventType(string(w.Type))
	if err != nil {
		return err
	}
	w.Type = t
	*e = ControlEvent(w)
	return nil
}

// Validate checks the fields the wire contract requires.
func (e ControlEvent) Validate() error {
	if e.ID == "" {
		return errors.New("event id is required")
	}
	if _, err := ParseEventType(string(e.Type)); err != nil {
		return err
	}
	if e.AtMs < 0 {
		return fmt.Errorf("event %s has negative atMs", e.ID)
	}
	if e.Type == EventTypeUndo && e.TargetEventID == "" {
		return fmt.Errorf("undo event %s requires targetEventId", e.ID)
	}
	return nil
}
