package audio

import "math"

// FadeStart is the envelope factor at the silent end of a fade, about -90dB.
const FadeStart = 1.0 / math.MaxInt16

// fadeRatio solves FadeStart * r^steps = 1.
func fadeRatio(steps int) float64 {
	return math.Pow(1/FadeStart, 1/float64(steps))
}

// FadeInOut applies exponential ramps to the first fadeIn and the last fadeOut
// frames. Every channel of a frame gets the same factor. A zero-length ramp is
// skipped.
//
// The fade-out is the mirror of the fade-in: the last frame is scaled by
// FadeStart and the factor grows towards 1 walking backwards, so the envelope
// decreases monotonically over the tail.
func (s *Signal) FadeInOut(fadeIn, fadeOut int) {
	ch := max(1, s.cfg.Channels)
	frames := len(s.data) / ch

	if fadeIn > 0 {
		ratio := fadeRatio(fadeIn)
		factor := FadeStart
		for f := 0; f < fadeIn && f < frames; f++ {
			s.scaleFrame(f, ch, factor)
			factor *= ratio
		}
	}

	if fadeOut > 0 {
		ratio := fadeRatio(fadeOut)
		factor := FadeStart
		start := max(0, frames-fadeOut)
		for f := frames - 1; f >= start; f-- {
			s.scaleFrame(f, ch, factor)
			factor *= ratio
		}
	}
}

func (s *Signal) scaleFrame(f, ch int, factor float64) {
	for i := f * ch; i < (f+1)*ch; i++ {
		s.data[i] = float32(float64(s.data[i]) * factor)
	}
}
