package derive

import (
	"cmp"
	"math"
	"slices"

	"github.com/mcdev12/tempo/go/internal/models"
)

func compareEvents(a, b models.ControlEvent) int {
	if c := cmp.Compare(a.AtMs, b.AtMs); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortEvents returns a copy of events ordered by (atMs, id).
func SortEvents(events []models.ControlEvent) []models.ControlEvent {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, compareEvents)
	return sorted
}

// undone walks undos latest first, so an undo that was itself undone has no
// effect on its target.
func undone(sorted []models.ControlEvent) (present, removed map[string]bool) {
	present = make(map[string]bool, len(sorted))
	for _, ev := range sorted {
		present[ev.ID] = true
	}
	removed = make(map[string]bool)
	for i := len(sorted) - 1; i >= 0; i-- {
		ev := sorted[i]
		if ev.Type != models.EventTypeUndo || removed[ev.ID] {
			continue
		}
		if present[ev.TargetEventID] {
			removed[ev.TargetEventID] = true
		}
	}
	return present, removed
}

// EffectiveEvents filters the raw log down to what a run should replay:
// ordered by (atMs, id), without undone events or the undo markers.
func EffectiveEvents(events []models.ControlEvent) []models.ControlEvent {
	sorted := SortEvents(events)
	_, removed := undone(sorted)

	out := make([]models.ControlEvent, 0, len(sorted))
	for _, ev := range sorted {
		if ev.Type == models.EventTypeUndo || removed[ev.ID] {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// IsUndoable reports whether an undo of targetID would change the effective
// log: the target exists and is not already undone.
func IsUndoable(events []models.ControlEvent, targetID string) bool {
	present, removed := undone(SortEvents(events))
	return present[targetID] && !removed[targetID]
}

type pauseSpan struct {
	from int64
	to   int64
	open bool
}

// Timeline maps positions on the session timeline to active elapsed time,
// with pauses excluded and the time scale applied.
type Timeline struct {
	startMs int64
	scale   float64
	pauses  []pauseSpan
}

// NewTimeline scans effective events in [startMs, untilMs] for pause spans.
// A pause while already paused and a resume while running are ignored.
func NewTimeline(startMs int64, effective []models.ControlEvent, untilMs int64, scale float64) Timeline {
	if scale <= 0 {
		scale = models.DefaultTimeScale
	}
	tl := Timeline{startMs: startMs, scale: scale}

	var open *pauseSpan
	for _, ev := range effective {
		if ev.AtMs < startMs || ev.AtMs > untilMs {
			continue
		}
		switch ev.Type {
		case models.EventTypePause:
			if open == nil {
				open = &pauseSpan{from: ev.AtMs, open: true}
			}
		case models.EventTypeResume:
			if open != nil {
				tl.pauses = append(tl.pauses, pauseSpan{from: open.from, to: ev.AtMs})
				open = nil
			}
		}
	}
	if open != nil {
		tl.pauses = append(tl.pauses, *open)
	}
	return tl
}

// PausedAt reports whether the run is inside an unclosed pause at t.
func (tl Timeline) PausedAt(t int64) bool {
	for _, p := range tl.pauses {
		if p.from > t {
			continue
		}
		if p.open || p.to > t {
			return true
		}
	}
	return false
}

// ActiveElapsedAt is the scaled running time between start and t.
func (tl Timeline) ActiveElapsedAt(t int64) int64 {
	if t < tl.startMs {
		t = tl.startMs
	}
	var paused int64
	for _, p := range tl.pauses {
		if p.from >= t {
			continue
		}
		end := p.to
		if p.open || end > t {
			end = t
		}
		paused += end - p.from
	}
	active := t - tl.startMs - paused
	if active < 0 {
		active = 0
	}
	return int64(math.Round(float64(active) * tl.scale))
}
