package models

// BlockType defines the kind of an author-time block.
type BlockType string

const (
	BlockTypeSequence BlockType = "sequence"
	BlockTypeRepeat   BlockType = "repeat"
	BlockTypeInterval BlockType = "interval"
	BlockTypeTimer    BlockType = "timer"
	BlockTypeStep     BlockType = "step"
	BlockTypeNote     BlockType = "note"
)

// TimerMode defines whether a timer counts down from a duration or up from zero.
type TimerMode string

const (
	TimerModeCountdown TimerMode = "countdown"
	TimerModeCountup   TimerMode = "countup"
)

// IntervalPhase selects which phase an interval round opens with.
type IntervalPhase string

const (
	IntervalPhaseWork IntervalPhase = "work"
	IntervalPhaseRest IntervalPhase = "rest"
)

// Workout is the author-time root: a titled list of blocks.
type Workout struct {
	Title  string  `json:"title" yaml:"title"`
	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// Block is a node of the author-time workout tree.
type Block struct {
	Type     BlockType `json:"type" yaml:"type"`
	BlockID  string    `json:"blockId,omitempty" yaml:"blockId,omitempty"`
	Label    string    `json:"label,omitempty" yaml:"label,omitempty"`
	Children []Block   `json:"children,omitempty" yaml:"children,omitempty"`

	// repeat, interval; nil means open-ended
	Rounds *int `json:"rounds,omitempty" yaml:"rounds,omitempty"`

	// interval
	WorkMs    int64         `json:"workMs,omitempty" yaml:"workMs,omitempty"`
	RestMs    int64         `json:"restMs,omitempty" yaml:"restMs,omitempty"`
	StartWith IntervalPhase `json:"startWith,omitempty" yaml:"startWith,omitempty"`

	// timer
	Mode       TimerMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty" yaml:"durationMs,omitempty"`
	Tag        string    `json:"tag,omitempty" yaml:"tag,omitempty"`

	// note
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}
