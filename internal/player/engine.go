package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satindergrewal/mnome/internal/audio"
	"github.com/satindergrewal/mnome/internal/beat"
	"github.com/satindergrewal/mnome/internal/metrics"
)

// DefaultBPM is the tempo of a new Engine.
const DefaultBPM = 100

var (
	ErrAlreadyRunning = errors.New("playback is already running")
	ErrNotRunning     = errors.New("playback is not running")
	ErrEmptyPattern   = beat.ErrEmptyPattern
	ErrDeviceInit     = errors.New("audio sink could not be started")
)

// Status is a snapshot of the engine state.
type Status struct {
	Running       bool     `json:"running"`
	BPM           int      `json:"bpm"`
	Pattern       string   `json:"pattern"`
	BufferSeconds float64  `json:"buffer_seconds"`
	FramesPulled  uint64   `json:"frames_pulled"`
	Sinks         []string `json:"sinks"`
}

// Engine owns the playback buffer and feeds it to its sinks in a loop.
//
// Every exported method takes mu exactly once; the *Locked helpers assume it
// is held, which lets setters restart playback without re-locking.
type Engine struct {
	logger *zap.Logger
	cfg    audio.Config
	sinks  []Sink

	mu      sync.Mutex
	bpm     int
	click   audio.Signal
	accent  audio.Signal
	pattern beat.Pattern
	buffer  audio.Signal
	running bool
	loops   []*Loop
}

// New creates a stopped engine producing audio in cfg for the given sinks.
func New(cfg audio.Config, logger *zap.Logger, sinks ...Sink) *Engine {
	metrics.TempoBPM.Set(DefaultBPM)
	return &Engine{
		logger:  logger,
		cfg:     cfg,
		sinks:   sinks,
		bpm:     DefaultBPM,
		click:   audio.NewSignal(cfg, nil),
		accent:  audio.NewSignal(cfg, nil),
		pattern: beat.DefaultPattern(),
	}
}

// Start builds the playback buffer and opens every sink.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

// Stop closes every sink and waits for them to let go of the buffer.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

// Toggle stops a running engine and starts a stopped one.
func (e *Engine) Toggle() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return e.stopLocked()
	}
	return e.startLocked()
}

// Close stops playback if it is running.
func (e *Engine) Close() error {
	err := e.Stop()
	if errors.Is(err, ErrNotRunning) {
		return nil
	}
	return err
}

// SetBPM changes the tempo.
func (e *Engine) SetBPM(bpm int) error {
	if bpm <= 0 {
		return beat.ErrInvalidTempo
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bpm = bpm
	metrics.TempoBPM.Set(float64(bpm))
	return e.restartLocked()
}

// SetBeat changes the sound of a plain beat. An empty signal plays silence.
func (e *Engine) SetBeat(sig audio.Signal) error {
	sig, err := e.adopt(sig)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.click = sig
	return e.restartLocked()
}

// SetAccentBeat changes the sound of an accented beat. An empty signal makes
// accents sound like plain beats.
func (e *Engine) SetAccentBeat(sig audio.Signal) error {
	sig, err := e.adopt(sig)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accent = sig
	return e.restartLocked()
}

// SetBeatAndBPM changes the beat sound and the tempo with a single restart.
func (e *Engine) SetBeatAndBPM(sig audio.Signal, bpm int) error {
	if bpm <= 0 {
		return beat.ErrInvalidTempo
	}
	sig, err := e.adopt(sig)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.click = sig
	e.bpm = bpm
	metrics.TempoBPM.Set(float64(bpm))
	return e.restartLocked()
}

// SetPattern changes the accent pattern.
func (e *Engine) SetPattern(p beat.Pattern) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pattern = p.Clone()
	return e.restartLocked()
}

// BPM returns the configured tempo.
func (e *Engine) BPM() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bpm
}

// Pattern returns a copy of the configured pattern.
func (e *Engine) Pattern() beat.Pattern {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pattern.Clone()
}

// IsRunning reports whether playback is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Buffer returns a copy of the last assembled playback buffer.
func (e *Engine) Buffer() audio.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer.Clone()
}

// Status returns a snapshot for status displays.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Running:       e.running,
		BPM:           e.bpm,
		Pattern:       e.pattern.String(),
		BufferSeconds: e.buffer.Seconds(),
		Sinks:         make([]string, 0, len(e.sinks)),
	}
	for _, s := range e.sinks {
		st.Sinks = append(st.Sinks, s.Name())
	}
	for _, l := range e.loops {
		st.FramesPulled = max(st.FramesPulled, l.Pulled())
	}
	return st
}

// adopt validates sig against the engine configuration and returns a private copy.
func (e *Engine) adopt(sig audio.Signal) (audio.Signal, error) {
	if sig.Empty() {
		return audio.NewSignal(e.cfg, nil), nil
	}
	if sig.Config() != e.cfg {
		return audio.Signal{}, fmt.Errorf("signal %+v, playback %+v: %w", sig.Config(), e.cfg, audio.ErrIncompatibleSignals)
	}
	return sig.Clone(), nil
}

func (e *Engine) startLocked() error {
	if e.running {
		e.logger.Warn("playback already running, start ignored")
		metrics.StartsTotal.WithLabelValues("already_running").Inc()
		return ErrAlreadyRunning
	}
	if len(e.pattern) == 0 {
		e.logger.Info("not playing, beat pattern is empty")
		metrics.StartsTotal.WithLabelValues("empty_pattern").Inc()
		return ErrEmptyPattern
	}
	if e.click.Empty() {
		e.logger.Warn("the beat is silence, you will not hear anything")
	}

	begin := time.Now()
	buf, err := beat.Sequence(e.click, e.accent, e.pattern, e.bpm)
	if err != nil {
		metrics.StartsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("build playback buffer: %w", err)
	}
	metrics.BufferBuildDuration.Observe(float64(time.Since(begin).Microseconds()) / 1000)
	metrics.BufferSamples.Set(float64(buf.Len()))
	e.buffer = buf

	loops := make([]*Loop, 0, len(e.sinks))
	for i, s := range e.sinks {
		loop := NewLoop(buf.Samples(), metrics.FramesPulledTotal.WithLabelValues(s.Name()))
		if err := s.Open(loop); err != nil {
			for _, opened := range e.sinks[:i] {
				if cerr := opened.Close(); cerr != nil {
					e.logger.Warn("close sink after failed start", zap.String("sink", opened.Name()), zap.Error(cerr))
				}
			}
			e.logger.Error("audio sink failed to start", zap.String("sink", s.Name()), zap.Error(err))
			metrics.StartsTotal.WithLabelValues("device_error").Inc()
			return fmt.Errorf("%w: %s: %w", ErrDeviceInit, s.Name(), err)
		}
		loops = append(loops, loop)
	}

	e.loops = loops
	e.running = true
	metrics.Running.Set(1)
	metrics.StartsTotal.WithLabelValues("ok").Inc()
	e.logger.Info("playing",
		zap.String("pattern", e.pattern.String()),
		zap.Int("bpm", e.bpm),
		zap.Int("samples", buf.Len()),
	)
	return nil
}

func (e *Engine) stopLocked() error {
	if !e.running {
		return ErrNotRunning
	}
	var errs []error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	e.running = false
	e.loops = nil
	metrics.Running.Set(0)
	e.logger.Info("stopping playback")
	return errors.Join(errs...)
}

// restartLocked applies a configuration change. A stopped engine only keeps
// the staged values for the next Start.
func (e *Engine) restartLocked() error {
	if !e.running {
		return nil
	}
	metrics.RestartsTotal.Inc()
	if err := e.stopLocked(); err != nil {
		e.logger.Warn("stop during restart", zap.Error(err))
	}
	return e.startLocked()
}
