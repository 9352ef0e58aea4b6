// Package playback scrubs, auto-plays and renders a precomputed
// gradient descent trajectory.
package playback

import "github.com/san-kum/gdlab/internal/descent"

type State int

const (
	Paused State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "PLAYING"
	}
	return "PAUSED"
}

// Controller owns the playback position. Position is only ever changed
// through Seek, and auto-advance only happens through Tick.
//
// Every transition into or out of Playing bumps the generation. A timer
// driver tags its ticks with the generation returned by Play; ticks
// scheduled before the last Pause carry an old generation and are
// ignored, so a paused controller never advances.
type Controller struct {
	steps  int
	pos    int
	state  State
	gen    uint64
	redraw func(pos int)
}

type Option func(*Controller)

// WithRedraw registers the hook invoked after every Seek.
func WithRedraw(fn func(pos int)) Option {
	return func(c *Controller) { c.redraw = fn }
}

func New(traj *descent.Trajectory, opts ...Option) *Controller {
	c := &Controller{steps: traj.Len(), pos: 1, state: Paused}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Position() int      { return c.pos }
func (c *Controller) Steps() int         { return c.steps }
func (c *Controller) State() State       { return c.state }
func (c *Controller) Playing() bool      { return c.state == Playing }
func (c *Controller) Generation() uint64 { return c.gen }

// Seek moves to step k clamped to [1, Steps] and triggers a redraw.
func (c *Controller) Seek(k int) int {
	if k < 1 {
		k = 1
	}
	if k > c.steps {
		k = c.steps
	}
	c.pos = k
	if c.redraw != nil {
		c.redraw(c.pos)
	}
	return c.pos
}

// Step seeks relative to the current position.
func (c *Controller) Step(delta int) int { return c.Seek(c.pos + delta) }

// Play starts auto-advance and returns the generation ticks must carry.
// At the final step there is nothing to advance to and the controller
// stays paused.
func (c *Controller) Play() uint64 {
	if c.state == Playing {
		return c.gen
	}
	if c.pos >= c.steps {
		return c.gen
	}
	c.state = Playing
	c.gen++
	return c.gen
}

// Pause stops auto-advance. Pausing a paused controller is a no-op.
func (c *Controller) Pause() {
	if c.state != Playing {
		return
	}
	c.state = Paused
	c.gen++
}

// Toggle flips between Playing and Paused and returns the new state and
// the current generation.
func (c *Controller) Toggle() (State, uint64) {
	if c.state == Playing {
		c.Pause()
	} else {
		c.Play()
	}
	return c.state, c.gen
}

// Reset pauses and rewinds to the first step.
func (c *Controller) Reset() {
	c.Pause()
	c.Seek(1)
}

// Tick is the single auto-advance event. It reports whether the
// position moved. Reaching the final step pauses playback.
func (c *Controller) Tick(gen uint64) bool {
	if c.state != Playing || gen != c.gen {
		return false
	}
	advanced := false
	if c.pos < c.steps {
		c.Seek(c.pos + 1)
		advanced = true
	}
	if c.pos >= c.steps {
		c.Pause()
	}
	return advanced
}
