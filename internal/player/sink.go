package player

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Source hands the playback buffer to a sink one period at a time.
type Source interface {
	// ReadFrames fills dst with the next samples of the loop and returns
	// len(dst). It never blocks.
	ReadFrames(dst []float32) int
}

// Sink consumes audio from a Source on its own goroutine.
type Sink interface {
	Name() string
	// Open starts pulling from src.
	Open(src Source) error
	// Close stops pulling and returns once src is no longer read.
	Close() error
}

// Loop is a Source that repeats an immutable buffer forever.
// It is read by exactly one sink goroutine.
type Loop struct {
	buf     []float32
	pos     int
	pulled  atomic.Uint64
	counter prometheus.Counter
}

// NewLoop returns a Loop over buf. buf must not be modified afterwards.
// counter may be nil.
func NewLoop(buf []float32, counter prometheus.Counter) *Loop {
	return &Loop{buf: buf, counter: counter}
}

// ReadFrames implements Source. An empty buffer reads as silence.
func (l *Loop) ReadFrames(dst []float32) int {
	if len(l.buf) == 0 {
		clear(dst)
	} else {
		for n := 0; n < len(dst); {
			c := copy(dst[n:], l.buf[l.pos:])
			n += c
			l.pos = (l.pos + c) % len(l.buf)
		}
	}
	l.pulled.Add(uint64(len(dst)))
	if l.counter != nil {
		l.counter.Add(float64(len(dst)))
	}
	return len(dst)
}

// Pulled returns how many samples have been read so far.
func (l *Loop) Pulled() uint64 {
	return l.pulled.Load()
}
