// Package runrpc defines the wire contract of the run service: procedure
// paths, request and response messages, and the JSON codec both ends use.
package runrpc

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/tempo/go/internal/models"
)

// ServiceName is the fully-qualified name of the run service.
const ServiceName = "tempo.run.v1.RunService"

// Procedure paths of the run service.
const (
	InitProcedure           = "/" + ServiceName + "/Init"
	GetSnapshotProcedure    = "/" + ServiceName + "/GetSnapshot"
	ApplyEventProcedure     = "/" + ServiceName + "/ApplyEvent"
	UpdateSettingsProcedure = "/" + ServiceName + "/UpdateSettings"
)

// ControllerTokenHeader carries the controller credential on write calls.
const ControllerTokenHeader = "X-Controller-Token"

// InitRequest creates a session. Exactly one of Tree (already compiled) or
// Workout (compiled by the server) is set.
type InitRequest struct {
	SessionID string          `json:"sessionId"`
	Tree      *models.Segment `json:"tree,omitempty"`
	Workout   *models.Workout `json:"workout,omitempty"`
}

// GetSnapshotRequest reads the current snapshot of a session.
type GetSnapshotRequest struct {
	SessionID string `json:"sessionId"`
}

// ApplyEventRequest appends a control event to a session's log.
type ApplyEventRequest struct {
	SessionID string              `json:"sessionId"`
	Event     models.ControlEvent `json:"event"`
}

// UpdateSettingsRequest changes the time scale of a session that has not started.
type UpdateSettingsRequest struct {
	SessionID string  `json:"sessionId"`
	TimeScale float64 `json:"timeScale"`
}

// SnapshotResponse is returned by every run service call.
type SnapshotResponse struct {
	Snapshot models.Snapshot `json:"snapshot"`
}

// JSONCodec encodes messages as plain JSON. It replaces connect's default
// "json" codec, which only accepts generated protobuf messages.
type JSONCodec struct{}

// Name implements connect.Codec
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", msg, err)
	}
	return data, nil
}

// Unmarshal implements connect.Codec
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", msg, err)
	}
	return nil
}
