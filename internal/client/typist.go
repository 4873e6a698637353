package client

import (
	"sync"
	"time"
)

// TypingQuietPeriod is how long after the last keystroke typing:stop is sent.
const TypingQuietPeriod = 900 * time.Millisecond

// Typist debounces keystrokes into typing start/stop signals. Start fires
// on the first keystroke of a burst, stop after the quiet period or when
// the message is sent.
type Typist struct {
	mu      sync.Mutex
	quiet   time.Duration
	timer   *time.Timer
	typing  bool
	gen     uint64
	onStart func()
	onStop  func()
}

func NewTypist(quiet time.Duration, onStart, onStop func()) *Typist {
	return &Typist{quiet: quiet, onStart: onStart, onStop: onStop}
}

// Keystroke resets the quiet timer.
func (t *Typist) Keystroke() {
	t.mu.Lock()
	start := !t.typing
	t.typing = true
	t.gen++
	gen := t.gen
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.quiet, func() { t.expire(gen) })
	t.mu.Unlock()

	if start {
		t.onStart()
	}
}

// Sent cancels the timer and ends the burst immediately.
func (t *Typist) Sent() {
	t.mu.Lock()
	stop := t.typing
	t.reset()
	t.mu.Unlock()

	if stop {
		t.onStop()
	}
}

// Cancel ends the burst without emitting stop.
func (t *Typist) Cancel() {
	t.mu.Lock()
	t.reset()
	t.mu.Unlock()
}

// Typing reports whether a burst is in progress.
func (t *Typist) Typing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

func (t *Typist) reset() {
	t.typing = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// expire ignores timers that were superseded after they fired.
func (t *Typist) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.typing {
		t.mu.Unlock()
		return
	}
	t.typing = false
	t.timer = nil
	t.mu.Unlock()

	t.onStop()
}
