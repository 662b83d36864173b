package audio

import (
	"encoding/binary"
	"math"
)

// ToInt16 converts float samples in [-1, 1] to int16, clipping out of range values.
func ToInt16(dst []int16, src []float32) []int16 {
	if cap(dst) < len(src) {
		dst = make([]int16, len(src))
	}
	dst = dst[:len(src)]
	for i, v := range src {
		scaled := float64(v) * math.MaxInt16
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		dst[i] = int16(scaled)
	}
	return dst
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// PutFloat32LE writes samples into p as little-endian IEEE 754 floats and
// returns the number of bytes written. p must hold 4 bytes per sample.
func PutFloat32LE(p []byte, samples []float32) int {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return len(samples) * 4
}
