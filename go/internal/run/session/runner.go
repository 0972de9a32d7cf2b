package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/derive"
	"github.com/mcdev12/tempo/go/internal/run/repository"
)

// runner owns one session. Apart from pending and loaded, its state is only
// touched on the runner's goroutine.
type runner struct {
	id   string
	app  *App
	cmds chan func()

	ctx    context.Context
	cancel context.CancelFunc

	// pending counts callers holding the runner; guarded by app.mu.
	pending int
	// loaded is set once session is, and never cleared.
	loaded atomic.Bool

	session *models.Session

	// The session clock reads anchorMs at anchorMono and advances with the
	// local monotonic clock from there.
	anchorMono time.Time
	anchorMs   int64

	ticker clockwork.Ticker
}

func newRunner(id string, app *App) *runner {
	ctx, cancel := context.WithCancel(app.ctx)
	return &runner{
		id:     id,
		app:    app,
		cmds:   make(chan func(), app.config.CommandBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *runner) loop() {
	defer r.stopTicker()

	ctx := r.ctx
	for {
		var tick <-chan time.Time
		if r.ticker != nil {
			tick = r.ticker.Chan()
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-r.cmds:
			cmd()
		case <-tick:
			r.rebroadcast(ctx)
		}
	}
}

func (r *runner) load(ctx context.Context) (*models.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	s, err := r.app.repo.GetSession(ctx, r.id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", r.id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if err := r.anchor(ctx); err != nil {
		return nil, err
	}
	r.setSession(s)
	return s, nil
}

func (r *runner) setSession(s *models.Session) {
	r.session = s
	r.loaded.Store(true)
}

// anchor starts the session clock at the later of wall time and the last
// persisted session time, so it never runs backwards across restarts.
func (r *runner) anchor(ctx context.Context) error {
	logical := r.app.clock.Now().UnixMilli()
	base, err := r.app.repo.GetClockBase(ctx, r.id)
	switch {
	case err == nil:
		if base.BaseWallMs > logical {
			log.Info().
				Str("session_id", r.id).
				Int64("behind_ms", base.BaseWallMs-logical).
				Int64("base_mono_ms", base.BaseMonoMs).
				Msg("wall clock behind persisted session time, holding session clock")
			logical = base.BaseWallMs
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return fmt.Errorf("failed to load clock base: %w", err)
	}
	r.anchorMono = r.app.clock.Now()
	r.anchorMs = logical
	return nil
}

func (r *runner) now() int64 {
	return r.anchorMs + r.app.clock.Since(r.anchorMono).Milliseconds()
}

// observe reads the session clock and persists it.
func (r *runner) observe(ctx context.Context) int64 {
	now := r.now()
	base := models.ClockBase{
		BaseMonoMs: r.app.clock.Since(r.app.boot).Milliseconds(),
		BaseWallMs: now,
	}
	if err := r.app.repo.PutClockBase(ctx, r.id, base); err != nil {
		log.Warn().Err(err).Str("session_id", r.id).Msg("failed to persist clock base")
	}
	return now
}

func (r *runner) snapshot(now int64) *models.Snapshot {
	s := r.session
	return &models.Snapshot{
		ID:          s.ID,
		Tree:        s.Tree,
		Events:      slices.Clone(s.Events),
		ServerNowMs: now,
		TimeScale:   s.Settings.TimeScale,
		Derived:     derive.DeriveRunState(s.Tree, s.Events, now, derive.Options{TimeScale: s.Settings.TimeScale}),
		OnlineCount: r.app.transport.ConnectionCount(s.ID),
	}
}

func (r *runner) init(ctx context.Context, tree models.Segment) (*models.Snapshot, error) {
	if _, err := r.load(ctx); err == nil {
		return r.snapshot(r.observe(ctx)), nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := r.app.clock.Now().UTC()
	s := &models.Session{
		ID:            r.id,
		SchemaVersion: models.SessionSchemaVersion,
		Tree:          tree,
		Events:        []models.ControlEvent{},
		Settings:      models.RunSettings{TimeScale: models.DefaultTimeScale},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.app.repo.PutSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := r.anchor(ctx); err != nil {
		return nil, err
	}
	r.setSession(s)

	log.Info().Str("session_id", r.id).Str("title", tree.Label).Msg("session initialized")
	snap := r.broadcastSnapshot(ctx)
	if snap.OnlineCount > 0 {
		r.startTicker()
	}
	return snap, nil
}

func (r *runner) currentSnapshot(ctx context.Context) (*models.Snapshot, error) {
	if _, err := r.load(ctx); err != nil {
		return nil, err
	}
	return r.snapshot(r.observe(ctx)), nil
}

func (r *runner) applyEvent(ctx context.Context, event models.ControlEvent) (*models.Snapshot, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.HasEvent(event.ID) {
		log.Debug().Str("session_id", r.id).Str("event_id", event.ID).Msg("duplicate event ignored")
		return r.snapshot(r.observe(ctx)), nil
	}
	if event.Type == models.EventTypeUndo && !derive.IsUndoable(s.Events, event.TargetEventID) {
		log.Info().
			Str("session_id", r.id).
			Str("event_id", event.ID).
			Str("target_event_id", event.TargetEventID).
			Msg("undo target missing or already undone, no effect")
	}

	next := *s
	next.Events = append(slices.Clip(s.Events), event)
	next.UpdatedAt = r.app.clock.Now().UTC()
	if err := r.app.repo.PutSession(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	r.session = &next

	log.Info().
		Str("session_id", r.id).
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Int64("at_ms", event.AtMs).
		Msg("event applied")

	if r.app.sink != nil {
		if err := r.app.sink.PublishEvent(ctx, r.id, event); err != nil {
			log.Warn().Err(err).Str("session_id", r.id).Str("event_id", event.ID).Msg("failed to publish event")
		}
	}
	return r.broadcastSnapshot(ctx), nil
}

func (r *runner) updateSettings(ctx context.Context, settings models.RunSettings) (*models.Snapshot, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.HasStarted() {
		return nil, fmt.Errorf("session %s: %w", r.id, ErrRunStarted)
	}
	scale, err := r.clampTimeScale(settings.TimeScale)
	if err != nil {
		return nil, err
	}

	next := *s
	next.Settings.TimeScale = scale
	next.UpdatedAt = r.app.clock.Now().UTC()
	if err := r.app.repo.PutSession(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	r.session = &next

	log.Info().Str("session_id", r.id).Float64("time_scale", scale).Msg("settings updated")
	return r.broadcastSnapshot(ctx), nil
}

func (r *runner) clampTimeScale(scale float64) (float64, error) {
	if math.IsNaN(scale) {
		return 0, fmt.Errorf("%w: time scale is not a number", ErrInvalidArgument)
	}
	lo, hi := r.app.config.MinTimeScale, r.app.config.MaxTimeScale
	if lo > 0 && scale < lo {
		scale = lo
	}
	if hi > 0 && scale > hi {
		scale = hi
	}
	if scale <= 0 {
		scale = models.DefaultTimeScale
	}
	return scale, nil
}

func (r *runner) connected(ctx context.Context, connID string) {
	if _, err := r.load(ctx); err != nil {
		log.Warn().Err(err).Str("session_id", r.id).Str("connection_id", connID).Msg("viewer connected to unavailable session")
		return
	}
	snap := r.snapshot(r.observe(ctx))
	r.send(connID, snap)
	r.broadcast(snap)
	r.startTicker()
}

func (r *runner) disconnected(ctx context.Context, connID string) {
	if r.session == nil {
		return
	}
	r.broadcastSnapshot(ctx)
	if r.app.transport.ConnectionCount(r.id) == 0 {
		r.stopTicker()
	}
}

func (r *runner) sendSnapshot(ctx context.Context, connID string) {
	if _, err := r.load(ctx); err != nil {
		log.Warn().Err(err).Str("session_id", r.id).Str("connection_id", connID).Msg("snapshot requested for unavailable session")
		return
	}
	r.send(connID, r.snapshot(r.observe(ctx)))
}

func (r *runner) rebroadcast(ctx context.Context) {
	if r.session == nil || r.app.transport.ConnectionCount(r.id) == 0 {
		r.stopTicker()
		return
	}
	r.broadcastSnapshot(ctx)
}

func (r *runner) startTicker() {
	if r.ticker != nil {
		return
	}
	r.ticker = r.app.clock.NewTicker(r.app.config.RebroadcastInterval)
	log.Debug().Str("session_id", r.id).Msg("rebroadcast started")
}

func (r *runner) stopTicker() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	r.ticker = nil
	log.Debug().Str("session_id", r.id).Msg("rebroadcast stopped")
}

func (r *runner) broadcastSnapshot(ctx context.Context) *models.Snapshot {
	snap := r.snapshot(r.observe(ctx))
	r.broadcast(snap)
	return snap
}

func (r *runner) broadcast(snap *models.Snapshot) {
	payload, err := json.Marshal(Message{Type: MessageTypeSnapshot, Snapshot: snap})
	if err != nil {
		log.Error().Err(err).Str("session_id", r.id).Msg("failed to marshal snapshot")
		return
	}
	r.app.transport.Broadcast(r.id, payload)
}

func (r *runner) send(connID string, snap *models.Snapshot) {
	payload, err := json.Marshal(Message{Type: MessageTypeSnapshot, Snapshot: snap})
	if err != nil {
		log.Error().Err(err).Str("session_id", r.id).Msg("failed to marshal snapshot")
		return
	}
	if err := r.app.transport.Send(r.id, connID, payload); err != nil {
		log.Warn().Err(err).Str("session_id", r.id).Str("connection_id", connID).Msg("failed to send snapshot")
	}
}
