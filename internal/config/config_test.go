package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"MNOME_BPM", "MNOME_PATTERN", "MNOME_BASE_FREQ", "MNOME_TONE_LENGTH",
		"MNOME_OVERTONES", "MNOME_AUDIO", "MNOME_PERIOD", "MNOME_HTTP_ADDR",
		"MNOME_STUN_URLS", "MNOME_LOG_LEVEL", "MNOME_AUTOSTART",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.BPM != 80 {
		t.Errorf("BPM = %d, want 80", cfg.BPM)
	}
	if cfg.Pattern != "!+++" {
		t.Errorf("Pattern = %q, want '!+++'", cfg.Pattern)
	}
	if cfg.BaseFrequency != 440 {
		t.Errorf("BaseFrequency = %f, want 440", cfg.BaseFrequency)
	}
	if cfg.ToneLength != 75*time.Millisecond {
		t.Errorf("ToneLength = %v, want 75ms", cfg.ToneLength)
	}
	if cfg.Overtones != 4 {
		t.Errorf("Overtones = %d, want 4", cfg.Overtones)
	}
	if cfg.Audio != AudioDevice {
		t.Errorf("Audio = %q, want %q", cfg.Audio, AudioDevice)
	}
	if cfg.Period != 100*time.Millisecond {
		t.Errorf("Period = %v, want 100ms", cfg.Period)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr = %q, want empty default", cfg.HTTPAddr)
	}
	if len(cfg.STUNURLs) != 1 || cfg.STUNURLs[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("STUNURLs = %v, want google stun default", cfg.STUNURLs)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want 'info'", cfg.LogLevel)
	}
	if cfg.AutoStart {
		t.Error("AutoStart = true, want false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MNOME_BPM", "120")
	t.Setenv("MNOME_PATTERN", "!+.+")
	t.Setenv("MNOME_BASE_FREQ", "415.3")
	t.Setenv("MNOME_TONE_LENGTH", "50ms")
	t.Setenv("MNOME_OVERTONES", "2")
	t.Setenv("MNOME_AUDIO", "none")
	t.Setenv("MNOME_PERIOD", "40")
	t.Setenv("MNOME_HTTP_ADDR", ":8080")
	t.Setenv("MNOME_STUN_URLS", "stun:a.example:3478, stun:b.example:3478")
	t.Setenv("MNOME_LOG_LEVEL", "debug")
	t.Setenv("MNOME_AUTOSTART", "true")

	cfg := Load()

	if cfg.BPM != 120 {
		t.Errorf("BPM = %d, want 120", cfg.BPM)
	}
	if cfg.Pattern != "!+.+" {
		t.Errorf("Pattern = %q, want env override", cfg.Pattern)
	}
	if cfg.BaseFrequency != 415.3 {
		t.Errorf("BaseFrequency = %f, want 415.3", cfg.BaseFrequency)
	}
	if cfg.ToneLength != 50*time.Millisecond {
		t.Errorf("ToneLength = %v, want 50ms", cfg.ToneLength)
	}
	if cfg.Overtones != 2 {
		t.Errorf("Overtones = %d, want 2", cfg.Overtones)
	}
	if cfg.Audio != AudioNone {
		t.Errorf("Audio = %q, want %q", cfg.Audio, AudioNone)
	}
	if cfg.Period != 40*time.Millisecond {
		t.Errorf("Period = %v, want 40ms from plain milliseconds", cfg.Period)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want ':8080'", cfg.HTTPAddr)
	}
	if len(cfg.STUNURLs) != 2 || cfg.STUNURLs[1] != "stun:b.example:3478" {
		t.Errorf("STUNURLs = %v, want two trimmed entries", cfg.STUNURLs)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want 'debug'", cfg.LogLevel)
	}
	if !cfg.AutoStart {
		t.Error("AutoStart = false, want true")
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("MNOME_BPM", "not-a-number")
	cfg := Load()
	if cfg.BPM != 80 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 80", cfg.BPM)
	}
}

func TestEnvDurationInvalidFallsBack(t *testing.T) {
	t.Setenv("MNOME_TONE_LENGTH", "soon")
	cfg := Load()
	if cfg.ToneLength != 75*time.Millisecond {
		t.Errorf("Invalid duration should fallback: got %v", cfg.ToneLength)
	}
}

func TestEnvBoolInvalidFallsBack(t *testing.T) {
	t.Setenv("MNOME_AUTOSTART", "perhaps")
	cfg := Load()
	if cfg.AutoStart {
		t.Error("Invalid bool should fallback to false")
	}
}

func TestSTUNNone(t *testing.T) {
	t.Setenv("MNOME_STUN_URLS", "none")
	cfg := Load()
	if len(cfg.STUNURLs) != 0 {
		t.Errorf("STUNURLs = %v, want empty", cfg.STUNURLs)
	}
}

func TestEnvStrEmpty(t *testing.T) {
	// Empty string should use fallback
	os.Unsetenv("MNOME_PATTERN")
	cfg := Load()
	if cfg.Pattern != "!+++" {
		t.Errorf("Unset env should use fallback: got %q", cfg.Pattern)
	}
}
