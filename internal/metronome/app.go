// Package metronome binds the playback engine to user commands.
package metronome

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satindergrewal/mnome/internal/audio"
	"github.com/satindergrewal/mnome/internal/beat"
	"github.com/satindergrewal/mnome/internal/metrics"
	"github.com/satindergrewal/mnome/internal/player"
	"github.com/satindergrewal/mnome/internal/trainer"
)

// ErrInvalidArgument is returned when a command argument cannot be used.
var ErrInvalidArgument = errors.New("invalid argument")

// Tempo limits accepted from users.
const (
	DefaultBPM = 80
	MinBPM     = 1
	MaxBPM     = 1000
)

// Options configure the sounds and the initial state of the metronome.
type Options struct {
	BaseFrequency float64 // Hz, the beat sounds two semitones above
	ToneLength    time.Duration
	Overtones     int
	BPM           int
	Pattern       beat.Pattern
}

// DefaultOptions returns a B click with an accent a fifth above, at 80 BPM
// in 4/4 with the first beat accented.
func DefaultOptions() Options {
	return Options{
		BaseFrequency: 440,
		ToneLength:    75 * time.Millisecond,
		Overtones:     4,
		BPM:           DefaultBPM,
		Pattern:       beat.Parse("!+++"),
	}
}

// Tones synthesizes the plain and the accented click for opts.
func Tones(cfg audio.Config, opts Options) (click, accent audio.Signal) {
	beatHz := audio.HalfToneOffset(opts.BaseFrequency, 2)
	accentHz := audio.HalfToneOffset(beatHz, 7)
	click = audio.GenerateTone(cfg, audio.Tone{
		Frequency: beatHz,
		Duration:  opts.ToneLength.Seconds(),
		Harmonics: opts.Overtones,
	})
	accent = audio.GenerateTone(cfg, audio.Tone{
		Frequency: accentHz,
		Duration:  opts.ToneLength.Seconds(),
		Harmonics: opts.Overtones,
	})
	return click, accent
}

// Status combines the engine and trainer state.
type Status struct {
	player.Status
	Ramp trainer.Status `json:"ramp"`
}

// App serializes commands from every front end onto one engine.
type App struct {
	engine  *player.Engine
	trainer *trainer.Trainer
	out     io.Writer
	logger  *zap.Logger

	mu sync.Mutex
}

// New configures engine with the sounds, tempo and pattern in opts.
// Feedback for interactive commands is written to out.
func New(engine *player.Engine, tr *trainer.Trainer, out io.Writer, logger *zap.Logger, opts Options) (*App, error) {
	if opts.BPM < MinBPM || opts.BPM > MaxBPM {
		return nil, fmt.Errorf("%w: bpm %d outside %d..%d", ErrInvalidArgument, opts.BPM, MinBPM, MaxBPM)
	}
	if !opts.Pattern.Audible() {
		return nil, fmt.Errorf("%w: pattern %q has no beat", ErrInvalidArgument, opts.Pattern.String())
	}
	click, accent := Tones(audio.Playback, opts)
	if err := engine.SetBeat(click); err != nil {
		return nil, fmt.Errorf("set beat: %w", err)
	}
	if err := engine.SetAccentBeat(accent); err != nil {
		return nil, fmt.Errorf("set accent: %w", err)
	}
	if err := engine.SetBPM(opts.BPM); err != nil {
		return nil, fmt.Errorf("set bpm %d: %w", opts.BPM, err)
	}
	if err := engine.SetPattern(opts.Pattern); err != nil {
		return nil, fmt.Errorf("set pattern: %w", err)
	}
	return &App{engine: engine, trainer: tr, out: out, logger: logger}, nil
}

// Start starts playback.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.observe("start", a.engine.Start())
}

// Stop stops playback.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.observe("stop", a.engine.Stop())
}

// Toggle starts or stops playback.
func (a *App) Toggle() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.observe("toggle", a.engine.Toggle())
}

// SetBPM changes the tempo. Values outside [MinBPM, MaxBPM] are rejected.
func (a *App) SetBPM(bpm int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if bpm < MinBPM || bpm > MaxBPM {
		return a.observe("bpm", fmt.Errorf("%w: bpm %d outside %d..%d", ErrInvalidArgument, bpm, MinBPM, MaxBPM))
	}
	return a.observe("bpm", a.engine.SetBPM(bpm))
}

// SetPattern parses s and installs it. A pattern without any accent or beat
// is rejected.
func (a *App) SetPattern(s string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := beat.Parse(s)
	if !p.Audible() {
		return a.observe("pattern", fmt.Errorf("%w: pattern %q has no beat", ErrInvalidArgument, s))
	}
	return a.observe("pattern", a.engine.SetPattern(p))
}

// Ramp enables the tempo trainer.
func (a *App) Ramp(s trainer.Settings) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s.Max > MaxBPM {
		return a.observe("ramp", fmt.Errorf("%w: ramp max %d above %d", ErrInvalidArgument, s.Max, MaxBPM))
	}
	if err := a.trainer.Configure(s); err != nil {
		return a.observe("ramp", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}
	return a.observe("ramp", nil)
}

// StopRamp disables the tempo trainer.
func (a *App) StopRamp() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trainer.Disable()
	a.observe("ramp", nil)
}

// Status returns a snapshot of the metronome.
func (a *App) Status() Status {
	return Status{Status: a.engine.Status(), Ramp: a.trainer.Status()}
}

// observe records the outcome of a command and passes err through.
func (a *App) observe(command string, err error) error {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, player.ErrEmptyPattern):
		outcome = "invalid"
	case errors.Is(err, player.ErrAlreadyRunning), errors.Is(err, player.ErrNotRunning):
		outcome = "noop"
	default:
		outcome = "error"
	}
	metrics.CommandsTotal.WithLabelValues(command, outcome).Inc()
	if outcome == "error" {
		a.logger.Error("command failed", zap.String("command", command), zap.Error(err))
	}
	return err
}
