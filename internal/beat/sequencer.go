package beat

import (
	"errors"
	"math"

	"github.com/satindergrewal/mnome/internal/audio"
)

const (
	// FadeMinTime caps the click ramps.
	FadeMinTime = 0.025 // seconds
	// FadeMinPercentage is the share of a short sound used for each ramp.
	FadeMinPercentage = 0.30
)

var (
	// ErrEmptyPattern is returned when there is nothing to play.
	ErrEmptyPattern = errors.New("beat pattern is empty")
	// ErrInvalidTempo is returned for a tempo that is not a positive BPM.
	ErrInvalidTempo = errors.New("tempo must be a positive number of beats per minute")
)

// IntervalFrames returns the frames one slot lasts at bpm.
func IntervalFrames(sampleRate float64, bpm int) int {
	if bpm <= 0 {
		return 0
	}
	return int(math.Floor(sampleRate / (float64(bpm) / 60)))
}

// RampFrames returns the fade length for a sound lasting seconds.
func RampFrames(seconds, sampleRate float64) int {
	ramp := math.Min(seconds*FadeMinPercentage, FadeMinTime)
	return int(math.Round(ramp * sampleRate))
}

// Sequence renders one cycle of p at bpm. Each slot holds the accent, the beat
// or silence, faded at its edges so the loop never clicks. An empty accent is
// replaced by the beat.
func Sequence(click, accent audio.Signal, p Pattern, bpm int) (audio.Signal, error) {
	if len(p) == 0 {
		return audio.Signal{}, ErrEmptyPattern
	}
	if bpm <= 0 {
		return audio.Signal{}, ErrInvalidTempo
	}
	cfg := click.Config()
	if !accent.Empty() && !click.Compatible(accent) {
		return audio.Signal{}, audio.ErrIncompatibleSignals
	}

	slot := IntervalFrames(cfg.SampleRate, bpm) * cfg.Channels
	// the ramp follows the beat, or the accent when the beat is silent
	shaped := click
	if shaped.Empty() {
		shaped = accent
	}
	ramp := RampFrames(shaped.Seconds(), cfg.SampleRate)

	beatSlot := fitSlot(click, slot, ramp)
	var accentSlot audio.Signal
	if accent.Empty() {
		accentSlot = beatSlot
	} else {
		accentSlot = fitSlot(accent, slot, ramp)
	}

	out := make([]float32, 0, slot*len(p))
	for _, t := range p {
		switch t {
		case Accent:
			out = append(out, accentSlot.Samples()...)
		case Beat:
			out = append(out, beatSlot.Samples()...)
		default:
			out = append(out, make([]float32, slot)...)
		}
	}
	return audio.NewSignal(cfg, out), nil
}

// fitSlot makes a copy of sound exactly slot samples long, with ramp frames
// faded at each end. Fading only ever touches real content: a long sound is
// cut before fading, a short one is faded before padding with silence.
func fitSlot(sound audio.Signal, slot, ramp int) audio.Signal {
	s := sound.Clone()
	if s.Len() > slot {
		s.Resize(slot)
		s.FadeInOut(ramp, ramp)
		s.Condition()
		return s
	}
	s.FadeInOut(ramp, ramp)
	s.Condition()
	s.Resize(slot)
	return s
}
