package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestControlEventDecodesLegacyAdvance(t *testing.T) {
	var ev ControlEvent
	if err := json.Unmarshal([]byte(`{"id":"a","type":"next","atMs":12}`), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != EventTypeAdvance || ev.AtMs != 12 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestControlEventRejectsUnknownType(t *testing.T) {
	var ev ControlEvent
	err := json.Unmarshal([]byte(`{"id":"a","type":"rewind","atMs":0}`), &ev)
	if !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestControlEventWireShape(t *testing.T) {
	data, err := json.Marshal(ControlEvent{ID: "u", Type: EventTypeUndo, AtMs: 5, TargetEventID: "a"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), `{"id":"u","type":"undo","atMs":5,"targetEventId":"a"}`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestControlEventValidate(t *testing.T) {
	tests := []struct {
		name  string
		event ControlEvent
		ok    bool
	}{
		{"valid split", ControlEvent{ID: "s", Type: EventTypeSplit, AtMs: 1, Label: "lap"}, true},
		{"missing id", ControlEvent{Type: EventTypeStart}, false},
		{"negative time", ControlEvent{ID: "x", Type: EventTypeStart, AtMs: -1}, false},
		{"undo without target", ControlEvent{ID: "x", Type: EventTypeUndo}, false},
		{"unknown type", ControlEvent{ID: "x", Type: "rewind"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, err)
			}
		})
	}
}
