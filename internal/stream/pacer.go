package stream

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satindergrewal/mnome/internal/audio"
	"github.com/satindergrewal/mnome/internal/metrics"
	"github.com/satindergrewal/mnome/internal/player"
)

// Pacer is a player.Sink that pulls 20ms frames from the engine at real-time
// rate and publishes them as int16 PCM for network listeners.
//
// The frame channel outlives playback sessions: Close stops the ticker but
// never closes the channel, so a Broadcaster can keep reading from it across
// restarts.
type Pacer struct {
	logger   *zap.Logger
	interval time.Duration
	frameCh  chan []int16

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewPacer creates an idle pacer.
func NewPacer(logger *zap.Logger) *Pacer {
	return &Pacer{
		logger:   logger,
		interval: audio.FrameDuration,
		frameCh:  make(chan []int16, 100),
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (p *Pacer) Frames() <-chan []int16 {
	return p.frameCh
}

// Name implements player.Sink.
func (p *Pacer) Name() string { return "stream" }

// Open implements player.Sink.
func (p *Pacer) Open(src player.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		p.closeLocked()
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(src, p.stop, p.done)
	return nil
}

// Close implements player.Sink. It returns once the source is no longer read.
func (p *Pacer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Pacer) closeLocked() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil
}

func (p *Pacer) run(src player.Source, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	pcm := make([]float32, audio.FrameSamples)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			src.ReadFrames(pcm)
			frame := audio.ToInt16(nil, pcm)
			select {
			case p.frameCh <- frame:
			default:
				metrics.StreamFramesDroppedTotal.Inc()
				p.logger.Debug("stream frame dropped, no reader")
			}
		}
	}
}
