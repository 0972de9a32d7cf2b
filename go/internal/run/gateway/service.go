// Package gateway fans run snapshots out to viewers over WebSocket.
package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service is the run gateway: viewer connections plus snapshot fan-out
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

// Config holds configuration for the run gateway
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
}

// DefaultConfig returns default configuration for the run gateway
func DefaultConfig() Config {
	return Config{
		Connection: DefaultConnectionConfig(),
	}
}

// NewService creates a new run gateway
func NewService(config Config) *Service {
	connectionManager := NewConnectionManager(config.Connection)
	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
	}
}

// Transport returns the connection manager, which pushes payloads to viewers.
func (s *Service) Transport() *ConnectionManager {
	return s.connectionManager
}

// SetObserver registers the observer of viewer lifecycle changes
func (s *Service) SetObserver(observer ConnectionObserver) {
	s.connectionManager.SetObserver(observer)
}

// Start runs the broadcast loop until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting run gateway")
	s.connectionManager.Start(ctx)
	log.Info().Msg("run gateway stopped")
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("run gateway routes registered")
}

// GetStats returns statistics about the gateway
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
