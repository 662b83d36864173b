package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Audio output modes.
const (
	AudioDevice = "device"
	AudioNone   = "none"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Metronome
	BPM     int
	Pattern string // `!` accent, `+` beat, `.` pause

	// Click sound
	BaseFrequency float64       // Hz, the beat is two semitones above
	ToneLength    time.Duration // length of one click
	Overtones     int           // harmonics added to each click

	// Output
	Audio  string        // "device" or "none"
	Period time.Duration // hardware buffer size

	// Server
	HTTPAddr string   // empty disables the HTTP API and streams
	STUNURLs []string // ICE servers offered to WebRTC peers

	LogLevel  string
	AutoStart bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		BPM:     envInt("MNOME_BPM", 80),
		Pattern: envStr("MNOME_PATTERN", "!+++"),

		BaseFrequency: envFloat("MNOME_BASE_FREQ", 440),
		ToneLength:    envDuration("MNOME_TONE_LENGTH", 75*time.Millisecond),
		Overtones:     envInt("MNOME_OVERTONES", 4),

		Audio:  envStr("MNOME_AUDIO", AudioDevice),
		Period: envDuration("MNOME_PERIOD", 100*time.Millisecond),

		HTTPAddr: envStr("MNOME_HTTP_ADDR", ""),
		STUNURLs: envList("MNOME_STUN_URLS", []string{"stun:stun.l.google.com:19302"}),

		LogLevel:  envStr("MNOME_LOG_LEVEL", "info"),
		AutoStart: envBool("MNOME_AUTOSTART", false),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("75ms") or plain milliseconds ("75").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	return fallback
}

// envList splits a comma separated value. "none" yields an empty list.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if v == "none" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
