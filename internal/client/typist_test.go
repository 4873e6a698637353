package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type typingCounter struct {
	starts atomic.Int32
	stops  atomic.Int32
}

func (c *typingCounter) typist(quiet time.Duration) *Typist {
	return NewTypist(quiet, func() { c.starts.Add(1) }, func() { c.stops.Add(1) })
}

func TestTypist_Debounces_Burst(t *testing.T) {
	req := require.New(t)
	var counter typingCounter
	typist := counter.typist(200 * time.Millisecond)

	for i := 0; i < 5; i++ {
		typist.Keystroke()
		time.Sleep(10 * time.Millisecond)
	}
	req.Equal(int32(1), counter.starts.Load())
	req.Zero(counter.stops.Load())

	req.Eventually(func() bool { return counter.stops.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	req.False(typist.Typing())
}

func TestTypist_Sent_Stops_Once(t *testing.T) {
	req := require.New(t)
	var counter typingCounter
	typist := counter.typist(30 * time.Millisecond)

	typist.Keystroke()
	typist.Sent()
	req.Equal(int32(1), counter.stops.Load())

	time.Sleep(60 * time.Millisecond)
	req.Equal(int32(1), counter.stops.Load())

	// sending without typing emits nothing
	typist.Sent()
	req.Equal(int32(1), counter.stops.Load())
}

func TestTypist_Cancel_Is_Silent(t *testing.T) {
	req := require.New(t)
	var counter typingCounter
	typist := counter.typist(20 * time.Millisecond)

	typist.Keystroke()
	typist.Cancel()
	time.Sleep(50 * time.Millisecond)

	req.Equal(int32(1), counter.starts.Load())
	req.Zero(counter.stops.Load())
}
