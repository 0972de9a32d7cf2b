package models

// RunStatus defines the display status of a run.
type RunStatus string

const (
	RunStatusIdle     RunStatus = "idle"
	RunStatusRunning  RunStatus = "running"
	RunStatusPaused   RunStatus = "paused"
	RunStatusFinished RunStatus = "finished"
)

// DerivedState is what should be on screen at one instant. It is recomputed
// from (tree, events, now, time scale) and never persisted.
type DerivedState struct {
	Status       RunStatus      `json:"status"`
	StartedAtMs  *int64         `json:"startedAtMs,omitempty"`
	FinishedAtMs *int64         `json:"finishedAtMs,omitempty"`
	ElapsedMs    int64          `json:"elapsedMs"`
	Active       *ActiveSegment `json:"active,omitempty"`
	Stack        []Frame        `json:"stack"`
	Counters     []RoundCounter `json:"counters"`
	Splits       []Split        `json:"splits"`
	Amrap        bool           `json:"amrap,omitempty"`
}

// ActiveSegment is the leaf currently on the clock.
type ActiveSegment struct {
	BlockID     string      `json:"blockId"`
	Kind        SegmentKind `json:"kind"`
	Mode        TimerMode   `json:"mode,omitempty"`
	Label       string      `json:"label,omitempty"`
	Index       int         `json:"index"`
	GroupID     string      `json:"groupId"`
	DurationMs  int64       `json:"durationMs,omitempty"`
	ElapsedMs   int64       `json:"elapsedMs"`
	RemainingMs *int64      `json:"remainingMs,omitempty"`
}

// Frame is one ancestor of a leaf. Round and Rounds are set for repeats only.
type Frame struct {
	BlockID string      `json:"blockId"`
	Kind    SegmentKind `json:"kind"`
	Label   string      `json:"label,omitempty"`
	Round   int         `json:"round,omitempty"`
	Rounds  *int        `json:"rounds,omitempty"`
}

// RoundCounter reports progress through a repeat. Target is nil for open-ended repeats.
type RoundCounter struct {
	BlockID string `json:"blockId"`
	Label   string `json:"label,omitempty"`
	Current int    `json:"current"`
	Target  *int   `json:"target"`
}

// Split is a recorded lap.
type Split struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	AtMs      int64  `json:"atMs"`
	ElapsedMs int64  `json:"elapsedMs"`
	DeltaMs   int64  `json:"deltaMs"`
}
