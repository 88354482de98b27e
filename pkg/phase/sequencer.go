// Package phase paces the generation progress indicator.
//
// While a puzzle streams in, the generator reports which part of the output
// it has reached (title, puzzle, answer, key points). Reports can arrive in
// bursts or out of order; the Sequencer turns them into a forward-only series
// of visible phase changes, each held on screen for at least Dwell, and runs
// a completion callback only after the last queued phase has been shown.
package phase

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Dwell is the minimum time a phase stays visible before the next one.
const Dwell = 1000 * time.Millisecond

// State is a snapshot of the sequencer.
type State struct {
	Index      int  // phase currently shown
	Generating bool // true once any phase past 0 has been shown
	Watermark  int  // highest phase ever accepted
	Queued     int  // accepted phases not yet shown
	Pending    bool // a switch timer is armed
}

// Sequencer queues phase indices and releases them one at a time.
type Sequencer struct {
	clock clockwork.Clock

	mu         sync.Mutex
	queue      []int
	index      int
	generating bool
	watermark  int
	lastSwitch time.Time
	timer      clockwork.Timer
	gen        uint64
	onDone     func()
	onChange   func(State)
}

// NewSequencer creates an idle sequencer. A nil clock uses wall time.
func NewSequencer(clock clockwork.Clock) *Sequencer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sequencer{clock: clock}
}

// OnChange registers a listener called after every visible phase change and
// after Reset. Listeners run outside the sequencer's lock and may call back
// into it.
func (s *Sequencer) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Request asks for phase index to be shown. Indices at or below the highest
// one already accepted are ignored, even if that phase has not been shown
// yet.
func (s *Sequencer) Request(index int) {
	s.mu.Lock()
	if index <= s.watermark {
		s.mu.Unlock()
		return
	}
	s.watermark = index
	s.queue = append(s.queue, index)
	done := s.process()
	s.mu.Unlock()

	if done != nil {
		done()
	}
}

// WaitAndFinish stores cb to run once every queued phase has been shown. If
// nothing is queued or pending, cb runs before WaitAndFinish returns. A
// second call before completion replaces the first callback.
func (s *Sequencer) WaitAndFinish(cb func()) {
	s.mu.Lock()
	if len(s.queue) == 0 && s.timer == nil {
		s.onDone = nil
		s.mu.Unlock()
		if cb != nil {
			cb()
		}
		return
	}
	s.onDone = cb
	s.mu.Unlock()
}

// Reset cancels any pending switch and returns to the initial state. A stored
// completion callback is dropped without being called.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.queue = nil
	s.index = 0
	s.generating = false
	s.watermark = 0
	s.lastSwitch = time.Time{}
	s.onDone = nil
	st := s.state()
	listener := s.onChange
	s.mu.Unlock()

	if listener != nil {
		listener(st)
	}
}

// State returns a snapshot.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Sequencer) state() State {
	return State{
		Index:      s.index,
		Generating: s.generating,
		Watermark:  s.watermark,
		Queued:     len(s.queue),
		Pending:    s.timer != nil,
	}
}

// process arms the switch timer for the head of the queue. When the queue is
// drained it hands back the completion callback for the caller to run once
// the lock is released. Must be called with mu held.
func (s *Sequencer) process() func() {
	if s.timer != nil {
		return nil
	}
	if len(s.queue) == 0 {
		done := s.onDone
		s.onDone = nil
		return done
	}

	next := s.queue[0]
	delay := Dwell - s.clock.Now().Sub(s.lastSwitch)
	if delay < 0 {
		delay = 0
	}
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() {
		s.fire(gen, next)
	})
	return nil
}

func (s *Sequencer) fire(gen uint64, next int) {
	s.mu.Lock()
	if gen != s.gen || len(s.queue) == 0 {
		// armed before a Reset that could not stop it
		s.mu.Unlock()
		return
	}
	s.queue = s.queue[1:]
	s.index = next
	s.generating = next > 0
	s.lastSwitch = s.clock.Now()
	s.timer = nil
	done := s.process()
	st := s.state()
	listener := s.onChange
	s.mu.Unlock()

	if listener != nil {
		listener(st)
	}
	if done != nil {
		done()
	}
}
