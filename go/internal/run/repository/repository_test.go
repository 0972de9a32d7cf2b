package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcdev12/tempo/go/internal/models"
)

type store interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	PutSession(ctx context.Context, s *models.Session) error
	GetClockBase(ctx context.Context, id string) (*models.ClockBase, error)
	PutClockBase(ctx context.Context, id string, base models.ClockBase) error
}

func newSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tempo-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func testSession(id string) *models.Session {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:        id,
		Tree:      models.Segment{Kind: models.SegmentKindSequence, BlockID: "root", Label: "Leg day"},
		Events:    []models.ControlEvent{},
		Settings:  models.RunSettings{TimeScale: 1},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func stores(t *testing.T) map[string]store {
	return map[string]store{
		"memory": NewMemory(),
		"sqlite": newSQLite(t),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess := testSession("gym-1")
			if err := s.PutSession(ctx, sess); err != nil {
				t.Fatalf("put: %v", err)
			}
			sess.Events = append(sess.Events, models.ControlEvent{ID: "e1", Type: models.EventTypeStart, AtMs: 100})
			sess.Settings.TimeScale = 1.5
			if err := s.PutSession(ctx, sess); err != nil {
				t.Fatalf("put again: %v", err)
			}

			got, err := s.GetSession(ctx, "gym-1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if len(got.Events) != 1 || got.Events[0].ID != "e1" || got.Settings.TimeScale != 1.5 {
				t.Fatalf("unexpected session: %+v", got)
			}
			if got.Tree.Label != "Leg day" || got.SchemaVersion != models.SessionSchemaVersion {
				t.Fatalf("unexpected tree or version: %+v", got)
			}

			// Mutating what was returned must not leak into the store.
			got.Events = nil
			again, err := s.GetSession(ctx, "gym-1")
			if err != nil {
				t.Fatalf("get again: %v", err)
			}
			if len(again.Events) != 1 {
				t.Fatalf("expected stored events to be unaffected, got %+v", again.Events)
			}
		})
	}
}

func TestMissingSession(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetSession(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := s.GetClockBase(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for clock base, got %v", err)
			}
		})
	}
}

func TestClockBaseSurvivesSessionWrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess := testSession("gym-2")
			if err := s.PutSession(ctx, sess); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := s.GetClockBase(ctx, "gym-2"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected no clock base yet, got %v", err)
			}

			base := models.ClockBase{BaseMonoMs: 42, BaseWallMs: 1_700_000_000_000}
			if err := s.PutClockBase(ctx, "gym-2", base); err != nil {
				t.Fatalf("put clock base: %v", err)
			}
			if err := s.PutSession(ctx, sess); err != nil {
				t.Fatalf("put session again: %v", err)
			}

			got, err := s.GetClockBase(ctx, "gym-2")
			if err != nil {
				t.Fatalf("get clock base: %v", err)
			}
			if *got != base {
				t.Fatalf("expected %+v, got %+v", base, *got)
			}
		})
	}
}

func TestSQLiteClockBaseRequiresSession(t *testing.T) {
	s := newSQLite(t)
	err := s.PutClockBase(context.Background(), "ghost", models.ClockBase{BaseWallMs: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tempo.db")

	first, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.PutSession(ctx, testSession("gym-3")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close() //nolint:errcheck
	if _, err := second.GetSession(ctx, "gym-3"); err != nil {
		t.Fatalf("expected session after reopen: %v", err)
	}
}

func TestMemoryUpgradesLegacyRecords(t *testing.T) {
	m := NewMemory()
	m.PutRaw("old", []byte(`{"id":"old","tree":{"kind":"sequence","blockId":"r"},"events":[{"id":"a","type":"next","atMs":5}],"timeScale":3}`))

	got, err := m.GetSession(context.Background(), "old")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Settings.TimeScale != 3 || got.Events[0].Type != models.EventTypeAdvance {
		t.Fatalf("expected upgraded record, got %+v", got)
	}
}
