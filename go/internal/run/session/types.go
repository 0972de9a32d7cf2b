package session

import (
	"context"
	"time"

	"github.com/mcdev12/tempo/go/internal/models"
)

// Repository is the durable storage the synchronizer needs
type Repository interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	PutSession(ctx context.Context, s *models.Session) error
	GetClockBase(ctx context.Context, id string) (*models.ClockBase, error)
	PutClockBase(ctx context.Context, id string, base models.ClockBase) error
}

// Transport pushes payloads to the viewers connected to a session.
// Broadcast is fire-and-forget.
type Transport interface {
	Broadcast(sessionID string, payload []byte)
	Send(sessionID, connID string, payload []byte) error
	ConnectionCount(sessionID string) int
}

// EventSink receives every newly applied control event.
type EventSink interface {
	PublishEvent(ctx context.Context, sessionID string, event models.ControlEvent) error
}

// Config tunes the synchronizer
type Config struct {
	MinTimeScale        float64       `yaml:"min_time_scale"`
	MaxTimeScale        float64       `yaml:"max_time_scale"`
	RebroadcastInterval time.Duration `yaml:"rebroadcast_interval"`
	CommandBuffer       int           `yaml:"command_buffer"`
}

// DefaultConfig returns the default synchronizer configuration
func DefaultConfig() Config {
	return Config{
		MinTimeScale:        0.1,
		MaxTimeScale:        10,
		RebroadcastInterval: time.Second,
		CommandBuffer:       64,
	}
}

// MessageTypeSnapshot tags snapshot pushes.
const MessageTypeSnapshot = "snapshot"

// Message is the envelope pushed to viewers.
type Message struct {
	Type     string           `json:"type"`
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
}

type noTransport struct{}

func (noTransport) Broadcast(string, []byte)          {}
func (noTransport) Send(string, string, []byte) error { return nil }
func (noTransport) ConnectionCount(string) int        { return 0 }
