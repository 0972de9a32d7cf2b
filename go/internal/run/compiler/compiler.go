// Package compiler turns an author-time workout tree into the runtime timer
// tree that a run executes.
package compiler

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/mcdev12/tempo/go/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrUnknownBlockType is returned for a block outside the closed block-type set.
var ErrUnknownBlockType = errors.New("unknown block type")

const defaultStepLabel = "Step"

// IDFunc generates block ids for blocks authored without one.
type IDFunc func() string

// Compiler maps author-time blocks to runtime segments.
type Compiler struct {
	newID IDFunc
}

// New returns a Compiler that generates missing ids with uuid.
func New() *Compiler {
	return &Compiler{newID: uuid.NewString}
}

// NewWithIDFunc returns a Compiler that generates missing ids with fn.
func NewWithIDFunc(fn IDFunc) *Compiler {
	return &Compiler{newID: fn}
}

// Compile compiles a workout with a default Compiler.
func Compile(w models.Workout) (models.Segment, error) {
	return New().Compile(w)
}

// CompileYAML decodes a YAML workout plan and compiles it.
func CompileYAML(r io.Reader) (models.Segment, error) {
	var w models.Workout
	if err := yaml.NewDecoder(r).Decode(&w); err != nil {
		return models.Segment{}, fmt.Errorf("failed to decode workout plan: %w", err)
	}
	return Compile(w)
}

// Compile wraps the workout's blocks in a root sequence labeled with its title.
func (c *Compiler) Compile(w models.Workout) (models.Segment, error) {
	children, err := c.compileAll(w.Blocks)
	if err != nil {
		return models.Segment{}, err
	}
	return models.Segment{
		Kind:     models.SegmentKindSequence,
		BlockID:  c.newID(),
		Label:    w.Title,
		Children: children,
	}, nil
}

func (c *Compiler) compileAll(blocks []models.Block) ([]models.Segment, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	out := make([]models.Segment, 0, len(blocks))
	for _, b := range blocks {
		seg, err := c.compileBlock(b)
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}

func (c *Compiler) compileBlock(b models.Block) (models.Segment, error) {
	id := b.BlockID
	if id == "" {
		id = c.newID()
	}

	switch b.Type {
	case models.BlockTypeSequence:
		children, err := c.compileAll(b.Children)
		if err != nil {
			return models.Segment{}, err
		}
		return models.Segment{
			Kind:     models.SegmentKindSequence,
			BlockID:  id,
			Label:    b.Label,
			Children: children,
		}, nil

	case models.BlockTypeRepeat:
		children, err := c.compileAll(b.Children)
		if err != nil {
			return models.Segment{}, err
		}
		return models.Segment{
			Kind:     models.SegmentKindRepeat,
			BlockID:  id,
			Label:    b.Label,
			Rounds:   copyRounds(b.Rounds),
			Children: children,
		}, nil

	case models.BlockTypeInterval:
		return c.compileInterval(id, b)

	case models.BlockTypeTimer:
		timer := models.Segment{
			Kind:       models.SegmentKindTimer,
			BlockID:    id,
			Label:      b.Label,
			Mode:       timerMode(b.Mode),
			DurationMs: b.DurationMs,
			Tag:        b.Tag,
		}
		if timer.Mode != models.TimerModeCountdown || len(b.Children) == 0 {
			return timer, nil
		}
		// A countdown that owns steps runs next to them, not around them.
		children, err := c.compileAll(b.Children)
		if err != nil {
			return models.Segment{}, err
		}
		return models.Segment{
			Kind:     models.SegmentKindSequence,
			BlockID:  id + "/group",
			Label:    b.Label,
			Children: append([]models.Segment{timer}, children...),
		}, nil

	case models.BlockTypeStep:
		label := b.Label
		if label == "" {
			label = b.Text
		}
		if label == "" {
			label = defaultStepLabel
		}
		return models.Segment{
			Kind:    models.SegmentKindStep,
			BlockID: id,
			Label:   label,
		}, nil

	case models.BlockTypeNote:
		text := b.Text
		if text == "" {
			text = b.Label
		}
		return models.Segment{
			Kind:    models.SegmentKindNote,
			BlockID: id,
			Label:   b.Label,
			Text:    text,
		}, nil

	default:
		return models.Segment{}, fmt.Errorf("%w: %q (block %s)", ErrUnknownBlockType, b.Type, id)
	}
}

func (c *Compiler) compileInterval(id string, b models.Block) (models.Segment, error) {
	children, err := c.compileAll(b.Children)
	if err != nil {
		return models.Segment{}, err
	}

	var work, rest *models.Segment
	if b.WorkMs > 0 {
		work = &models.Segment{
			Kind:       models.SegmentKindTimer,
			BlockID:    id + "/work",
			Label:      models.WorkLabel,
			Mode:       models.TimerModeCountdown,
			DurationMs: b.WorkMs,
		}
	}
	if b.RestMs > 0 {
		rest = &models.Segment{
			Kind:       models.SegmentKindTimer,
			BlockID:    id + "/rest",
			Label:      models.RestLabel,
			Mode:       models.TimerModeCountdown,
			DurationMs: b.RestMs,
		}
	}

	first, last := work, rest
	if b.StartWith == models.IntervalPhaseRest {
		first, last = rest, work
	}

	body := make([]models.Segment, 0, len(children)+2)
	if first != nil {
		body = append(body, *first)
	}
	body = append(body, children...)
	if last != nil {
		body = append(body, *last)
	}

	return models.Segment{
		Kind:    models.SegmentKindRepeat,
		BlockID: id,
		Label:   b.Label,
		Rounds:  copyRounds(b.Rounds),
		Children: []models.Segment{{
			Kind:     models.SegmentKindSequence,
			BlockID:  id + "/round",
			Label:    b.Label,
			Children: body,
		}},
	}, nil
}

func timerMode(m models.TimerMode) models.TimerMode {
	if m == models.TimerModeCountdown {
		return m
	}
	return models.TimerModeCountup
}

func copyRounds(r *int) *int {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
