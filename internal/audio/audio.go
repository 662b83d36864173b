package audio

import "time"

const (
	SampleRate    = 48000
	Channels      = 1
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)

	// PeriodDuration is how much audio the hardware sink asks for per pull.
	PeriodDuration = 100 * time.Millisecond
)

// Playback is the signal configuration every sink consumes.
var Playback = Config{SampleRate: SampleRate, Channels: Channels}
