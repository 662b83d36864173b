package audio

import "errors"

// ErrIncompatibleSignals is returned when two signals with different
// configurations are mixed.
var ErrIncompatibleSignals = errors.New("incompatible signal configurations")

// Config describes how samples of a Signal are laid out.
type Config struct {
	SampleRate float64 // Hz
	Channels   int     // interleaved channels per frame
}

// Signal is a buffer of interleaved float32 samples bound to a Config.
//
// Copying a Signal value shares the underlying samples; use Clone to get an
// independent copy.
type Signal struct {
	cfg  Config
	data []float32
}

// NewSignal wraps data as a Signal. The signal takes ownership of data.
func NewSignal(cfg Config, data []float32) Signal {
	return Signal{cfg: cfg, data: data}
}

// Silence returns a zero-valued signal of the given length in seconds.
func Silence(cfg Config, seconds float64) Signal {
	n := int(float64(cfg.Channels) * cfg.SampleRate * seconds)
	if n < 0 {
		n = 0
	}
	return Signal{cfg: cfg, data: make([]float32, n)}
}

// Config returns the signal configuration.
func (s Signal) Config() Config { return s.cfg }

// Samples returns the interleaved samples. Callers must not modify them.
func (s Signal) Samples() []float32 { return s.data }

// Len returns the number of samples over all channels.
func (s Signal) Len() int { return len(s.data) }

// Frames returns the number of frames (samples per channel).
func (s Signal) Frames() int {
	if s.cfg.Channels <= 0 {
		return 0
	}
	return len(s.data) / s.cfg.Channels
}

// Empty reports whether the signal has no samples.
func (s Signal) Empty() bool { return len(s.data) == 0 }

// Seconds returns the playback length of the signal.
func (s Signal) Seconds() float64 {
	if s.cfg.SampleRate <= 0 || s.cfg.Channels <= 0 {
		return 0
	}
	return float64(len(s.data)) / (s.cfg.SampleRate * float64(s.cfg.Channels))
}

// Clone returns a deep copy.
func (s Signal) Clone() Signal {
	data := make([]float32, len(s.data))
	copy(data, s.data)
	return Signal{cfg: s.cfg, data: data}
}

// Resize truncates or zero-pads the signal to n samples.
func (s *Signal) Resize(n int) {
	if n < 0 {
		n = 0
	}
	if n <= len(s.data) {
		s.data = s.data[:n:n]
		return
	}
	grown := make([]float32, n)
	copy(grown, s.data)
	s.data = grown
}

// Compatible reports whether s and o can be mixed.
func (s Signal) Compatible(o Signal) bool {
	return s.cfg == o.cfg
}

// Add mixes o into s. The result is as long as the longer operand.
func (s *Signal) Add(o Signal) error {
	return s.mix(o, 1)
}

// Sub subtracts o from s. The result is as long as the longer operand.
func (s *Signal) Sub(o Signal) error {
	return s.mix(o, -1)
}

func (s *Signal) mix(o Signal, sign float32) error {
	if !s.Compatible(o) {
		return ErrIncompatibleSignals
	}
	if len(o.data) > len(s.data) {
		s.Resize(len(o.data))
	}
	for i, v := range o.data {
		s.data[i] += sign * v
	}
	return nil
}

// Sum returns a + b without modifying either operand.
func Sum(a, b Signal) (Signal, error) {
	if !a.Compatible(b) {
		return Signal{}, ErrIncompatibleSignals
	}
	out := a.Clone()
	if err := out.Add(b); err != nil {
		return Signal{}, err
	}
	return out, nil
}

// Diff returns a - b without modifying either operand.
func Diff(a, b Signal) (Signal, error) {
	if !a.Compatible(b) {
		return Signal{}, ErrIncompatibleSignals
	}
	out := a.Clone()
	if err := out.Sub(b); err != nil {
		return Signal{}, err
	}
	return out, nil
}
