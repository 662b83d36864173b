//go:build headless

package device

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satindergrewal/mnome/internal/audio"
	"github.com/satindergrewal/mnome/internal/player"
)

// Device is a silent stand-in for builds without a sound backend.
type Device struct {
	logger *zap.Logger

	mu   sync.Mutex
	open bool
}

func New(cfg audio.Config, period time.Duration, logger *zap.Logger) *Device {
	return &Device{logger: logger}
}

func (d *Device) Name() string { return "device" }

func (d *Device) Open(src player.Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		d.logger.Warn("headless build, local audio output is disabled")
	}
	d.open = true
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}
