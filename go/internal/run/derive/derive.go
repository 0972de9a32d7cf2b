// Package derive reconstructs what a run should show at one instant from its
// runtime tree and control-event log. Everything here is pure.
package derive

import (
	"strings"
	"unicode"

	"github.com/mcdev12/tempo/go/internal/models"
)

// Options tunes derivation. A zero TimeScale means models.DefaultTimeScale.
type Options struct {
	TimeScale float64
}

// cursor is where the walk stopped.
type cursor struct {
	leaf      *Leaf
	elapsedMs int64
	remaining *int64
	counters  []models.RoundCounter
	exhausted bool
}

// DeriveRunState returns the display state of a run at nowMs. Events may be
// in any order and may include undos.
func DeriveRunState(tree models.Segment, events []models.ControlEvent, nowMs int64, opts Options) models.DerivedState {
	scale := opts.TimeScale
	if scale <= 0 {
		scale = models.DefaultTimeScale
	}

	state := models.DerivedState{
		Status:   models.RunStatusIdle,
		Stack:    []models.Frame{},
		Counters: []models.RoundCounter{},
		Splits:   []models.Split{},
	}

	effective := EffectiveEvents(events)
	start, ok := firstStart(effective)
	if !ok {
		return state
	}
	startMs := start.AtMs
	state.StartedAtMs = &startMs
	if nowMs < startMs {
		return state
	}

	now := nowMs
	finished := false
	for _, ev := range effective {
		if ev.Type == models.EventTypeFinish && ev.AtMs >= startMs && ev.AtMs <= now {
			now = ev.AtMs
			finished = true
			finishedAt := ev.AtMs
			state.FinishedAtMs = &finishedAt
			break
		}
	}

	tl := NewTimeline(startMs, effective, now, scale)
	nowE := tl.ActiveElapsedAt(now)
	state.ElapsedMs = nowE

	var advances []int64
	prev := int64(0)
	for _, ev := range effective {
		if ev.AtMs < startMs || ev.AtMs > now {
			continue
		}
		switch ev.Type {
		case models.EventTypeAdvance:
			advances = append(advances, tl.ActiveElapsedAt(ev.AtMs))
		case models.EventTypeSplit:
			elapsed := tl.ActiveElapsedAt(ev.AtMs)
			state.Splits = append(state.Splits, models.Split{
				ID:        ev.ID,
				Label:     ev.Label,
				AtMs:      ev.AtMs,
				ElapsedMs: elapsed,
				DeltaMs:   max(0, elapsed-prev),
			})
			prev = elapsed
		}
	}

	var cur cursor
	if timer, ok := amrapTimer(tree); ok {
		state.Amrap = true
		cur = walkAmrap(tree, timer, advances, nowE)
	} else {
		cur = walk(tree, advances, nowE)
	}
	state.Counters = append(state.Counters, cur.counters...)

	switch {
	case finished || cur.exhausted:
		state.Status = models.RunStatusFinished
		return state
	case tl.PausedAt(now):
		state.Status = models.RunStatusPaused
	default:
		state.Status = models.RunStatusRunning
	}

	if cur.leaf != nil {
		seg := cur.leaf.Segment
		state.Active = &models.ActiveSegment{
			BlockID:     seg.BlockID,
			Kind:        seg.Kind,
			Mode:        seg.Mode,
			Label:       seg.Label,
			Index:       cur.leaf.Index,
			GroupID:     cur.leaf.GroupID,
			DurationMs:  seg.DurationMs,
			ElapsedMs:   cur.elapsedMs,
			RemainingMs: cur.remaining,
		}
		state.Stack = append(state.Stack, cur.leaf.Stack...)
	}
	return state
}

func firstStart(effective []models.ControlEvent) (models.ControlEvent, bool) {
	for _, ev := range effective {
		if ev.Type == models.EventTypeStart {
			return ev, true
		}
	}
	return models.ControlEvent{}, false
}

// walk moves through the runnable leaves in active-elapsed space, letting
// advances (sorted, already in elapsed time) cut leaves short.
func walk(tree models.Segment, advances []int64, nowE int64) cursor {
	var (
		offset int64
		next   int
		skip   string
	)
	for leaf := range Leaves(tree) {
		if !leaf.Runnable() {
			continue
		}
		if skip != "" && leaf.GroupID == skip {
			continue
		}
		skip = ""

		seg := leaf.Segment
		if seg.IsCountdown() {
			end := offset + seg.DurationMs
			if next < len(advances) && advances[next] < end {
				offset = max(offset, advances[next])
				next++
				skip = leaf.GroupID
				continue
			}
			if nowE < end {
				elapsed := nowE - offset
				remaining := seg.DurationMs - elapsed
				return activeAt(leaf, elapsed, &remaining)
			}
			offset = end
			continue
		}

		// Manual leaves run until the next advance.
		if next < len(advances) {
			offset = max(offset, advances[next])
			next++
			skip = leaf.GroupID
			continue
		}
		return activeAt(leaf, nowE-offset, nil)
	}
	return cursor{exhausted: true}
}

func activeAt(leaf Leaf, elapsed int64, remaining *int64) cursor {
	cur := cursor{leaf: &leaf, elapsedMs: elapsed, remaining: remaining}
	for _, f := range leaf.Stack {
		if f.Kind != models.SegmentKindRepeat {
			continue
		}
		cur.counters = append(cur.counters, models.RoundCounter{
			BlockID: f.BlockID,
			Label:   f.Label,
			Current: f.Round,
			Target:  f.Rounds,
		})
	}
	return cur
}

// amrapTimer finds the countdown of an AMRAP plan: a sequence, possibly
// wrapped in single-child sequences, of one AMRAP countdown followed only by
// steps and notes.
func amrapTimer(tree models.Segment) (models.Segment, bool) {
	node := tree
	for node.Kind == models.SegmentKindSequence &&
		len(node.Children) == 1 &&
		node.Children[0].Kind == models.SegmentKindSequence {
		node = node.Children[0]
	}
	if node.Kind != models.SegmentKindSequence || len(node.Children) == 0 {
		return models.Segment{}, false
	}

	timer := node.Children[0]
	if !timer.IsCountdown() || timer.DurationMs <= 0 || !isAmrap(timer) {
		return models.Segment{}, false
	}
	for _, child := range node.Children[1:] {
		if child.Kind != models.SegmentKindStep && child.Kind != models.SegmentKindNote {
			return models.Segment{}, false
		}
	}
	return timer, true
}

func isAmrap(s models.Segment) bool {
	if strings.EqualFold(s.Tag, "amrap") {
		return true
	}
	words := strings.FieldsFunc(s.Label, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if strings.EqualFold(w, "amrap") {
			return true
		}
	}
	return false
}

// walkAmrap keeps the countdown on the clock until it elapses; advances only
// count completed rounds.
func walkAmrap(tree, timer models.Segment, advances []int64, nowE int64) cursor {
	counter := models.RoundCounter{
		BlockID: timer.BlockID,
		Label:   timer.Label,
		Current: len(advances) + 1,
	}
	if nowE >= timer.DurationMs {
		return cursor{exhausted: true, counters: []models.RoundCounter{counter}}
	}

	var found *Leaf
	for leaf := range Leaves(tree) {
		if leaf.Segment.BlockID == timer.BlockID {
			found = &leaf
			break
		}
	}
	remaining := timer.DurationMs - nowE
	cur := cursor{
		leaf:      found,
		elapsedMs: nowE,
		remaining: &remaining,
		counters:  []models.RoundCounter{counter},
	}
	return cur
}
