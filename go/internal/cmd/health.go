package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/tempo/go/internal/run/session"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type connectedChecker interface {
	Connected() bool
}

type HealthStatus struct {
	Healthy        bool     `json:"healthy"`
	StoreConnected bool     `json:"store_connected"`
	FeedEnabled    bool     `json:"feed_enabled"`
	FeedConnected  bool     `json:"feed_connected"`
	Viewers        int      `json:"viewers"`
	ActiveSessions int      `json:"active_sessions"`
	Errors         []string `json:"errors"`
}

// HealthChecker reports on the store, the event feed and viewer connections.
// A disconnected feed is reported but does not make the server unhealthy,
// since publishing is best effort.
type HealthChecker struct {
	store    session.Repository
	feed     connectedChecker
	services *Services
}

func NewHealthChecker(store session.Repository, services *Services) *HealthChecker {
	h := &HealthChecker{store: store, services: services}
	if services.Feed != nil {
		h.feed = services.Feed
	}
	return h
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:        true,
		StoreConnected: true,
		Errors:         []string{},
	}

	if p, ok := h.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			status.StoreConnected = false
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("store ping failed: %v", err))
		}
	}

	if h.feed != nil {
		status.FeedEnabled = true
		status.FeedConnected = h.feed.Connected()
		if !status.FeedConnected {
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	stats := h.services.Gateway.GetStats()
	status.Viewers = stats.TotalConnections
	status.ActiveSessions = stats.ActiveSessions

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}
