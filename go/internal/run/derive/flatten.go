package derive

import (
	"fmt"
	"iter"
	"slices"

	"github.com/mcdev12/tempo/go/internal/models"
)

// Leaf is one leaf of the runtime tree in run order.
type Leaf struct {
	Segment models.Segment
	// Stack holds the ancestors of the leaf, root first.
	Stack []models.Frame
	// GroupID is shared by every leaf of the same repeat round, or of the same
	// top-level child outside any repeat. One advance skips a whole group.
	GroupID string
	Index   int
	// Elided marks a trailing Rest that would only add dead time.
	Elided bool
}

// Runnable reports whether the walk may stop on the leaf.
func (l Leaf) Runnable() bool {
	return runnable(l.Segment) && !l.Elided
}

func runnable(s models.Segment) bool {
	switch s.Kind {
	case models.SegmentKindStep:
		return true
	case models.SegmentKindTimer:
		return s.Mode != models.TimerModeCountdown || s.DurationMs > 0
	default:
		return false
	}
}

// Leaves flattens tree into its leaves in run order. Repeats are unrolled
// lazily, so an open-ended repeat yields leaves until the caller stops.
func Leaves(tree models.Segment) iter.Seq[Leaf] {
	return func(yield func(Leaf) bool) {
		f := &flattener{yield: yield}
		if tree.Kind != models.SegmentKindSequence {
			f.visit(tree, nil, topGroup(0), "")
			return
		}
		stack := []models.Frame{frameOf(tree, 0)}
		for i, child := range tree.Children {
			if !f.visit(child, stack, topGroup(i), "") {
				return
			}
		}
	}
}

func topGroup(i int) string {
	return fmt.Sprintf("top:%d", i)
}

func roundGroup(blockID string, round int) string {
	return fmt.Sprintf("%s#%d", blockID, round)
}

func frameOf(s models.Segment, round int) models.Frame {
	f := models.Frame{BlockID: s.BlockID, Kind: s.Kind, Label: s.Label}
	if s.Kind == models.SegmentKindRepeat {
		f.Round = round
		f.Rounds = s.Rounds
	}
	return f
}

type flattener struct {
	yield func(Leaf) bool
	index int
}

// visit returns false once the consumer has stopped.
func (f *flattener) visit(s models.Segment, stack []models.Frame, group, elide string) bool {
	switch s.Kind {
	case models.SegmentKindSequence:
		stack = append(slices.Clip(stack), frameOf(s, 0))
		for _, child := range s.Children {
			if !f.visit(child, stack, group, elide) {
				return false
			}
		}
		return true

	case models.SegmentKindRepeat:
		// Unrolling an open-ended repeat with nothing to run would never end.
		if s.Rounds == nil && !hasRunnable(s) {
			return true
		}
		rest := trailingRest(s)
		for round := 1; s.Rounds == nil || round <= *s.Rounds; round++ {
			inner := append(slices.Clip(stack), frameOf(s, round))
			elideHere := ""
			if s.Rounds != nil && round == *s.Rounds {
				elideHere = rest
			}
			for _, child := range s.Children {
				if !f.visit(child, inner, roundGroup(s.BlockID, round), elideHere) {
					return false
				}
			}
		}
		return true

	default:
		leaf := Leaf{
			Segment: s,
			Stack:   stack,
			GroupID: group,
			Index:   f.index,
			Elided:  elide != "" && s.BlockID == elide,
		}
		f.index++
		return f.yield(leaf)
	}
}

func hasRunnable(s models.Segment) bool {
	if !s.IsContainer() {
		return runnable(s)
	}
	if s.Kind == models.SegmentKindRepeat && s.Rounds != nil && *s.Rounds <= 0 {
		return false
	}
	for _, child := range s.Children {
		if hasRunnable(child) {
			return true
		}
	}
	return false
}

type bodyLeaf struct {
	seg    models.Segment
	nested bool
}

// trailingRest returns the block id of the Rest countdown that ends a round
// of rep after a Work countdown in the same round, or "" if there is none.
// Leaves of nested repeats count as coming after but never as the pair.
func trailingRest(rep models.Segment) string {
	var body []bodyLeaf
	var collect func(s models.Segment, nested bool)
	collect = func(s models.Segment, nested bool) {
		if s.IsContainer() {
			if s.Kind == models.SegmentKindRepeat {
				if !hasRunnable(s) {
					return
				}
				nested = true
			}
			for _, child := range s.Children {
				collect(child, nested)
			}
			return
		}
		if runnable(s) {
			body = append(body, bodyLeaf{seg: s, nested: nested})
		}
	}
	for _, child := range rep.Children {
		collect(child, false)
	}

	if len(body) < 2 {
		return ""
	}
	last := body[len(body)-1]
	if last.nested || !last.seg.IsCountdown() || last.seg.Label != models.RestLabel {
		return ""
	}
	for _, l := range body[:len(body)-1] {
		if !l.nested && l.seg.IsCountdown() && l.seg.Label == models.WorkLabel {
			return last.seg.BlockID
		}
	}
	return ""
}
