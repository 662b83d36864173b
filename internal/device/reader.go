// Package device plays the metronome on the local sound card.
package device

import (
	"github.com/satindergrewal/mnome/internal/audio"
	"github.com/satindergrewal/mnome/internal/player"
)

// reader adapts a player.Source to the io.Reader a sound backend pulls
// float32 little-endian PCM from.
type reader struct {
	src player.Source
	buf []float32
}

func newReader(src player.Source, samples int) *reader {
	return &reader{src: src, buf: make([]float32, samples)}
}

func (r *reader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if len(r.buf) < n {
		r.buf = make([]float32, n)
	}
	samples := r.buf[:n]
	r.src.ReadFrames(samples)
	return audio.PutFloat32LE(p, samples), nil
}

// periodBytes is the backend buffer size for one pull period.
func periodBytes(cfg audio.Config, seconds float64) int {
	return int(cfg.SampleRate*seconds) * cfg.Channels * 4
}
