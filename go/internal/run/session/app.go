// Package session is the canonical home of each run session: it owns the
// event log, serializes every operation per session, keeps a restart-safe
// clock, and pushes fresh snapshots to connected viewers.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/tempo/go/internal/models"
)

// Option configures an App
type Option func(*App)

// WithClock replaces the real clock, e.g. with a clockwork.FakeClock in tests.
func WithClock(clock clockwork.Clock) Option {
	return func(a *App) { a.clock = clock }
}

// WithEventSink publishes applied events to sink.
func WithEventSink(sink EventSink) Option {
	return func(a *App) { a.sink = sink }
}

// App routes operations to one runner per session id. Runners are created on
// first use; one that loaded its session lives until the App is closed.
type App struct {
	repo      Repository
	transport Transport
	sink      EventSink
	clock     clockwork.Clock
	config    Config

	// boot is the monotonic origin of clock-base readings for this process.
	boot time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	runners map[string]*runner
}

// NewApp creates a session App
func NewApp(repo Repository, transport Transport, config Config, opts ...Option) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		repo:      repo,
		transport: transport,
		clock:     clockwork.NewRealClock(),
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
		runners:   make(map[string]*runner),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.transport == nil {
		a.transport = noTransport{}
	}
	if a.config.CommandBuffer <= 0 {
		a.config.CommandBuffer = DefaultConfig().CommandBuffer
	}
	if a.config.RebroadcastInterval <= 0 {
		a.config.RebroadcastInterval = DefaultConfig().RebroadcastInterval
	}
	a.boot = a.clock.Now()
	return a
}

// Close stops every runner and waits for them to exit
func (a *App) Close() {
	a.cancel()
	a.wg.Wait()
}

// Init creates a session with an empty log and default settings. Initializing
// an existing session returns its current snapshot unchanged.
func (a *App) Init(ctx context.Context, id string, tree models.Segment) (*models.Snapshot, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidArgument)
	}
	var snap *models.Snapshot
	err := a.do(ctx, id, func(r *runner) error {
		var err error
		snap, err = r.init(ctx, tree)
		return err
	})
	return snap, err
}

// Snapshot returns the current snapshot of a session
func (a *App) Snapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := a.do(ctx, id, func(r *runner) error {
		var err error
		snap, err = r.currentSnapshot(ctx)
		return err
	})
	return snap, err
}

// ApplyEvent appends a control event and pushes the new snapshot to every
// viewer. An event id that was already applied is a no-op.
func (a *App) ApplyEvent(ctx context.Context, id string, event models.ControlEvent) (*models.Snapshot, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	var snap *models.Snapshot
	err := a.do(ctx, id, func(r *runner) error {
		var err error
		snap, err = r.applyEvent(ctx, event)
		return err
	})
	return snap, err
}

// UpdateSettings changes the time scale of a session that has not started.
func (a *App) UpdateSettings(ctx context.Context, id string, settings models.RunSettings) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := a.do(ctx, id, func(r *runner) error {
		var err error
		snap, err = r.updateSettings(ctx, settings)
		return err
	})
	return snap, err
}

// Connected sends the new viewer the current snapshot and refreshes everyone
// else's online count.
func (a *App) Connected(sessionID, connID string) {
	a.submit(sessionID, func(r *runner) { r.connected(a.ctx, connID) })
}

// Disconnected refreshes the online count of the remaining viewers.
func (a *App) Disconnected(sessionID, connID string) {
	a.submit(sessionID, func(r *runner) { r.disconnected(a.ctx, connID) })
}

// SnapshotRequested sends a fresh snapshot to one viewer that asked for it.
func (a *App) SnapshotRequested(sessionID, connID string) {
	a.submit(sessionID, func(r *runner) { r.sendSnapshot(a.ctx, connID) })
}

// acquire returns the session's runner, creating it on first use, and holds
// it until the matching release.
func (a *App) acquire(id string) (*runner, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctx.Err() != nil {
		return nil, ErrClosed
	}
	r, ok := a.runners[id]
	if !ok {
		r = newRunner(id, a)
		a.runners[id] = r
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			r.loop()
		}()
	}
	r.pending++
	return r, nil
}

// release drops one hold on r. A runner that never loaded a session is
// retired as soon as nothing holds it.
func (a *App) release(r *runner) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r.pending--
	if r.pending > 0 || r.loaded.Load() {
		return
	}
	if a.runners[r.id] == r {
		delete(a.runners, r.id)
	}
	r.cancel()
}

// do runs fn on the session's runner and waits for its result.
func (a *App) do(ctx context.Context, id string, fn func(r *runner) error) error {
	r, err := a.acquire(id)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	select {
	case r.cmds <- func() { done <- fn(r); a.release(r) }:
	case <-ctx.Done():
		a.release(r)
		return ctx.Err()
	case <-r.ctx.Done():
		a.release(r)
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-a.ctx.Done():
		return ErrClosed
	}
}

// submit queues fn on the session's runner without waiting. It never blocks,
// since the runner itself may be the caller (a failed send dropping a viewer).
func (a *App) submit(id string, fn func(r *runner)) {
	r, err := a.acquire(id)
	if err != nil {
		log.Debug().Err(err).Str("session_id", id).Msg("dropping connection notification")
		return
	}
	cmd := func() { fn(r); a.release(r) }
	select {
	case r.cmds <- cmd:
		return
	default:
	}
	go func() {
		select {
		case r.cmds <- cmd:
		case <-r.ctx.Done():
			a.release(r)
		}
	}()
}
