// Package trainer ramps the metronome tempo up while the user practices.
package trainer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidSettings is returned by Configure for non-positive values.
var ErrInvalidSettings = errors.New("ramp needs a positive step, interval and maximum")

// Tempo is the part of the playback engine the trainer drives.
type Tempo interface {
	BPM() int
	SetBPM(bpm int) error
	IsRunning() bool
}

// Settings describe a ramp: every Every, raise the tempo by Step until Max.
type Settings struct {
	Step  int
	Every time.Duration
	Max   int
}

// Status is the current state of the trainer.
type Status struct {
	Enabled bool    `json:"enabled"`
	Step    int     `json:"step,omitempty"`
	Every   float64 `json:"every,omitempty"` // seconds
	Max     int     `json:"max,omitempty"`
	NextIn  float64 `json:"next_in,omitempty"` // seconds
}

// Trainer raises the tempo on a schedule. The schedule only advances while
// the engine is playing.
type Trainer struct {
	tempo      Tempo
	logger     *zap.Logger
	resolution time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	settings Settings
	enabled  bool
	next     time.Time
	gen      uint64 // bumped whenever the ramp is replaced or disabled
}

// New creates a disabled trainer.
func New(tempo Tempo, logger *zap.Logger) *Trainer {
	return &Trainer{
		tempo:      tempo,
		logger:     logger,
		resolution: 250 * time.Millisecond,
		now:        time.Now,
	}
}

// Configure enables the trainer with s. The first step happens s.Every from now.
func (t *Trainer) Configure(s Settings) error {
	if s.Step <= 0 || s.Every <= 0 || s.Max <= 0 {
		return ErrInvalidSettings
	}
	t.mu.Lock()
	t.settings = s
	t.enabled = true
	t.gen++
	t.next = t.now().Add(s.Every)
	t.mu.Unlock()
	t.logger.Info("tempo ramp enabled",
		zap.Int("step", s.Step),
		zap.Duration("every", s.Every),
		zap.Int("max", s.Max),
	)
	return nil
}

// Disable stops the ramp and keeps the current tempo.
func (t *Trainer) Disable() {
	t.mu.Lock()
	was := t.enabled
	t.enabled = false
	t.gen++
	t.mu.Unlock()
	if was {
		t.logger.Info("tempo ramp disabled")
	}
}

// Status returns the current trainer state.
func (t *Trainer) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.enabled {
		return Status{}
	}
	remaining := t.next.Sub(t.now()).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Enabled: true,
		Step:    t.settings.Step,
		Every:   t.settings.Every.Seconds(),
		Max:     t.settings.Max,
		NextIn:  remaining,
	}
}

// Run drives the ramp. Blocks until ctx is cancelled.
func (t *Trainer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.resolution)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// tick applies one ramp step if it is due.
func (t *Trainer) tick() {
	now := t.now()

	t.mu.Lock()
	if !t.enabled {
		t.mu.Unlock()
		return
	}
	if !t.tempo.IsRunning() {
		// paused playback pauses the schedule
		t.next = now.Add(t.settings.Every)
		t.mu.Unlock()
		return
	}
	if now.Before(t.next) {
		t.mu.Unlock()
		return
	}
	s, gen := t.settings, t.gen
	t.next = now.Add(s.Every)
	t.mu.Unlock()

	bpm := t.tempo.BPM()
	if bpm >= s.Max {
		t.finish(gen, bpm)
		return
	}
	bpm = min(bpm+s.Step, s.Max)
	if err := t.tempo.SetBPM(bpm); err != nil {
		t.logger.Warn("tempo ramp step failed", zap.Int("bpm", bpm), zap.Error(err))
		return
	}
	t.logger.Info("tempo ramp step", zap.Int("bpm", bpm))
	if bpm >= s.Max {
		t.finish(gen, bpm)
	}
}

// finish disables the ramp of generation gen. A ramp configured while the
// last step was being applied stays enabled.
func (t *Trainer) finish(gen uint64, bpm int) {
	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.enabled = false
	t.mu.Unlock()
	t.logger.Info("tempo ramp reached its maximum", zap.Int("bpm", bpm))
}
