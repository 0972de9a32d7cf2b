package runrpc

import (
	"errors"
	"testing"

	"github.com/mcdev12/tempo/go/internal/models"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := JSONCodec{}
	if codec.Name() != "json" {
		t.Fatalf("unexpected codec name %q", codec.Name())
	}

	in := &ApplyEventRequest{
		SessionID: "gym",
		Event:     models.ControlEvent{ID: "e1", Type: models.EventTypeSplit, AtMs: 10, Label: "lap"},
	}
	data, err := codec.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out ApplyEventRequest
	if err := codec.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != *in {
		t.Fatalf("expected %+v, got %+v", *in, out)
	}
}

func TestJSONCodecRejectsUnknownEventType(t *testing.T) {
	var out ApplyEventRequest
	err := JSONCodec{}.Unmarshal([]byte(`{"sessionId":"gym","event":{"id":"x","type":"rewind","atMs":0}}`), &out)
	if !errors.Is(err, models.ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}
