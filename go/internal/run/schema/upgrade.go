// Package schema brings stored session records up to the shape this build
// writes.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/tempo/go/internal/models"
)

// ErrUnsupportedVersion is returned for records written by a newer build.
var ErrUnsupportedVersion = errors.New("unsupported session schema version")

// sessionV1 is the original record: settings were flat on the session and
// controllers could still send "next" for advance.
type sessionV1 struct {
	ID        string                `json:"id"`
	Tree      models.Segment        `json:"tree"`
	Events    []models.ControlEvent `json:"events"`
	TimeScale *float64              `json:"timeScale"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type versionProbe struct {
	SchemaVersion int `json:"schemaVersion"`
}

// Version reads the schema version of an encoded record. Records without one
// predate versioning and count as version 1.
func Version(data []byte) (int, error) {
	var probe versionProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if probe.SchemaVersion == 0 {
		return 1, nil
	}
	return probe.SchemaVersion, nil
}

// Upgrade decodes a stored session record of any known version into the
// current shape.
func Upgrade(data []byte) (*models.Session, error) {
	version, err := Version(data)
	if err != nil {
		return nil, err
	}

	switch version {
	case 1:
		return upgradeV1(data)
	case models.SessionSchemaVersion:
		var s models.Session
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to decode session: %w", err)
		}
		normalize(&s)
		return &s, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

// Encode serializes a session at the current schema version.
func Encode(s *models.Session) ([]byte, error) {
	out := *s
	out.SchemaVersion = models.SessionSchemaVersion
	normalize(&out)
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return data, nil
}

func upgradeV1(data []byte) (*models.Session, error) {
	var old sessionV1
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("failed to decode v1 session: %w", err)
	}
	s := &models.Session{
		ID:            old.ID,
		SchemaVersion: models.SessionSchemaVersion,
		Tree:          old.Tree,
		Events:        old.Events,
		CreatedAt:     old.CreatedAt,
		UpdatedAt:     old.UpdatedAt,
	}
	if old.TimeScale != nil {
		s.Settings.TimeScale = *old.TimeScale
	}
	normalize(s)
	return s, nil
}

func normalize(s *models.Session) {
	if s.Events == nil {
		s.Events = []models.ControlEvent{}
	}
	if s.Settings.TimeScale <= 0 {
		s.Settings.TimeScale = models.DefaultTimeScale
	}
	s.SchemaVersion = models.SessionSchemaVersion
}
