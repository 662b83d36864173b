package audio

// biquad is a second order direct-form-I IIR section as produced by
// A.J. Fisher's mkfilter (Butterworth, order 2).
type biquad struct {
	gain float64
	x1   float64 // weight of the previous input, +2 for low-pass and -2 for high-pass
	c0   float64 // weight of y[n-2]
	c1   float64 // weight of y[n-1]
}

var (
	// 20kHz low-pass at 48kHz (mkfilter -Bu -Lp -o 2 -a 4.1666666667e-01).
	lowPass20kHz = biquad{gain: 1.450734152e+00, x1: 2, c0: -0.4775922501, c1: -1.2796324250}

	// 20Hz high-pass at 48kHz (mkfilter -Bu -Hp -o 2 -a 4.1666666667e-04).
	highPass20Hz = biquad{gain: 1.001852916e+00, x1: -2, c0: -0.9963044430, c1: 1.9962976018}
)

// apply runs one filter pass over interleaved data in place, keeping separate
// history per channel. History starts at zero.
func (f biquad) apply(data []float32, channels int) {
	channels = max(1, channels)
	for c := 0; c < channels; c++ {
		var xv, yv [3]float64
		for i := c; i < len(data); i += channels {
			xv[0], xv[1] = xv[1], xv[2]
			xv[2] = float64(data[i]) / f.gain
			yv[0], yv[1] = yv[1], yv[2]
			yv[2] = (xv[0] + xv[2]) + f.x1*xv[1] + f.c0*yv[0] + f.c1*yv[1]
			data[i] = float32(yv[2])
		}
	}
}

// LowPass20kHz removes content above ~20kHz.
func (s *Signal) LowPass20kHz() {
	lowPass20kHz.apply(s.data, s.cfg.Channels)
}

// HighPass20Hz removes DC and content below ~20Hz.
func (s *Signal) HighPass20Hz() {
	highPass20Hz.apply(s.data, s.cfg.Channels)
}

// Condition keeps the signal inside the audible band: low-pass then high-pass.
// Used after fading to remove the aliasing an envelope edge introduces.
func (s *Signal) Condition() {
	s.LowPass20kHz()
	s.HighPass20Hz()
}
