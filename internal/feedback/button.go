// Package feedback holds the transient UI state shared by the metadata and
// download flows: per-button status with a timed revert, the loading
// indicator, and the rows bound to download triggers.
package feedback

import (
	"sync"
	"time"
)

// State is the lifecycle of a download button.
type State int

const (
	Idle State = iota
	Preparing
	Started
	Errored
)

func (s State) String() string {
	switch s {
	case Preparing:
		return "preparing"
	case Started:
		return "started"
	case Errored:
		return "errored"
	default:
		return "idle"
	}
}

// Style is the visual treatment; renderers map it to colors.
type Style int

const (
	StyleNormal Style = iota
	StyleBusy
	StyleSuccess
	StyleError
)

const (
	LabelPreparing = "Preparing…"
	LabelStarted   = "Started!"
	LabelError     = "Error!"
)

// Appearance is what a button shows.
type Appearance struct {
	Label string
	Style Style
}

// Button is one download control. Each Begin starts a new generation;
// completions and reverts carrying an older generation are ignored, so a
// stale timer can never clobber a newer invocation.
type Button struct {
	ID string

	mu       sync.Mutex
	original Appearance
	cur      Appearance
	state    State
	gen      uint64

	// OnChange, if set, runs after every applied transition (outside the lock).
	OnChange func(State, Appearance)
}

func NewButton(id, label string) *Button {
	a := Appearance{Label: label, Style: StyleNormal}
	return &Button{ID: id, original: a, cur: a}
}

// Begin moves the button to Preparing and returns the generation that the
// caller must pass to Succeed/Fail/Revert.
func (b *Button) Begin() uint64 {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.state = Preparing
	b.cur = Appearance{Label: LabelPreparing, Style: StyleBusy}
	st, ap := b.state, b.cur
	b.mu.Unlock()
	b.notify(st, ap)
	return gen
}

// Succeed moves Preparing -> Started.
func (b *Button) Succeed(gen uint64) bool {
	return b.finish(gen, Started, Appearance{Label: LabelStarted, Style: StyleSuccess})
}

// Fail moves Preparing -> Errored.
func (b *Button) Fail(gen uint64) bool {
	return b.finish(gen, Errored, Appearance{Label: LabelError, Style: StyleError})
}

func (b *Button) finish(gen uint64, to State, ap Appearance) bool {
	b.mu.Lock()
	if gen != b.gen || b.state != Preparing {
		b.mu.Unlock()
		return false
	}
	b.state = to
	b.cur = ap
	b.mu.Unlock()
	b.notify(to, ap)
	return true
}

// Revert restores the original label and style after Started or Errored.
// Calling it twice, or for an old generation, is a no-op.
func (b *Button) Revert(gen uint64) bool {
	b.mu.Lock()
	if gen != b.gen || (b.state != Started && b.state != Errored) {
		b.mu.Unlock()
		return false
	}
	b.state = Idle
	b.cur = b.original
	ap := b.cur
	b.mu.Unlock()
	b.notify(Idle, ap)
	return true
}

func (b *Button) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Button) Appearance() Appearance {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

// Original is the idle appearance the button reverts to.
func (b *Button) Original() Appearance { return b.original }

func (b *Button) notify(s State, a Appearance) {
	if b.OnChange != nil {
		b.OnChange(s, a)
	}
}

// AfterFunc schedules f after d; time.AfterFunc satisfies it via TimerFunc.
type AfterFunc func(d time.Duration, f func())

// TimerFunc is the real-clock AfterFunc.
func TimerFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Run drives one invocation on b: Begin, act, Succeed or Fail, then arm the
// revert after delay. The revert is armed on both paths.
func Run(b *Button, delay time.Duration, after AfterFunc, act func() error) error {
	gen := b.Begin()
	err := act()
	if err != nil {
		b.Fail(gen)
	} else {
		b.Succeed(gen)
	}
	if after == nil {
		after = TimerFunc
	}
	after(delay, func() { b.Revert(gen) })
	return err
}
