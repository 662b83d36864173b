package audio

import "math"

// Tone describes a synthesized click.
type Tone struct {
	Frequency float64 // Hz
	Duration  float64 // seconds
	Harmonics int     // overtones added on top of the fundamental
}

// GenerateTone synthesizes a sine at tone.Frequency with tone.Harmonics
// overtones at integer multiples (2f, 3f, ...), each half as loud as the
// previous one. The result is scaled by 0.5 and copied to every channel.
func GenerateTone(cfg Config, tone Tone) Signal {
	frames := int(math.Floor(cfg.SampleRate * tone.Duration))
	if frames < 0 {
		frames = 0
	}
	data := make([]float32, 0, frames*cfg.Channels)

	step := 2 * math.Pi * tone.Frequency / cfg.SampleRate
	for n := 0; n < frames; n++ {
		sample := math.Sin(float64(n) * step)

		gain := 0.5
		for h := 0; h < tone.Harmonics; h++ {
			gain *= 0.5
			sample += gain * math.Sin(float64(n)*step*float64(h+2))
		}
		for c := 0; c < cfg.Channels; c++ {
			data = append(data, float32(0.5*sample))
		}
	}
	return NewSignal(cfg, data)
}

// HalfToneOffset returns the frequency the given number of equal-tempered
// semitones above base.
func HalfToneOffset(base float64, semitones int) float64 {
	return base * math.Pow(2, float64(semitones)/12)
}
