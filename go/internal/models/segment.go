package models

// SegmentKind defines the kind of a runtime timer-tree node.
type SegmentKind string

const (
	SegmentKindSequence SegmentKind = "sequence"
	SegmentKindRepeat   SegmentKind = "repeat"
	SegmentKindTimer    SegmentKind = "timer"
	SegmentKindStep     SegmentKind = "step"
	SegmentKindNote     SegmentKind = "note"
)

// Labels of the timers generated for interval phases. Trailing-rest elision
// recognizes interval rounds by these labels.
const (
	WorkLabel = "Work"
	RestLabel = "Rest"
)

// Segment is a node of the compiled runtime timer tree. A compiled tree is
// never mutated; BlockID addresses the node for round and group tracking.
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	BlockID  string      `json:"blockId"`
	Label    string      `json:"label,omitempty"`
	Children []Segment   `json:"children,omitempty"`

	// Rounds is set on repeat segments only. Nil means open-ended.
	Rounds *int `json:"rounds,omitempty"`

	Mode       TimerMode `json:"mode,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`
	Tag        string    `json:"tag,omitempty"`

	Text string `json:"text,omitempty"`
}

// IsContainer reports whether the segment holds children that run in order.
func (s Segment) IsContainer() bool {
	return s.Kind == SegmentKindSequence || s.Kind == SegmentKindRepeat
}

// IsCountdown reports whether the segment is a countdown timer leaf.
func (s Segment) IsCountdown() bool {
	return s.Kind == SegmentKindTimer && s.Mode == TimerModeCountdown
}
