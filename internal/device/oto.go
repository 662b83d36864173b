//go:build !headless

package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/satindergrewal/mnome/internal/audio"
	"github.com/satindergrewal/mnome/internal/player"
)

// Device is a player.Sink backed by oto. The oto context can only be created
// once per process, so it is kept across Open/Close; each Open gets a fresh
// player.
type Device struct {
	logger *zap.Logger
	cfg    audio.Config
	period time.Duration

	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

// New returns a closed device. Nothing touches the sound card before Open.
func New(cfg audio.Config, period time.Duration, logger *zap.Logger) *Device {
	return &Device{logger: logger, cfg: cfg, period: period}
}

func (d *Device) Name() string { return "device" }

// Open starts pulling from src in periods of d.period.
func (d *Device) Open(src player.Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player != nil {
		return errors.New("device already open")
	}
	if d.ctx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   int(d.cfg.SampleRate),
			ChannelCount: d.cfg.Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   d.period,
		})
		if err != nil {
			return fmt.Errorf("open audio context: %w", err)
		}
		<-ready
		d.ctx = ctx
		d.logger.Info("audio context ready",
			zap.Float64("rate", d.cfg.SampleRate),
			zap.Int("channels", d.cfg.Channels),
			zap.Duration("period", d.period),
		)
	}
	if err := d.ctx.Err(); err != nil {
		return fmt.Errorf("audio context: %w", err)
	}

	size := periodBytes(d.cfg, d.period.Seconds())
	p := d.ctx.NewPlayer(newReader(src, size/4))
	p.SetBufferSize(size)
	p.Play()
	d.player = p
	return nil
}

// Close stops the player. The backend no longer reads the source afterwards.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player == nil {
		return nil
	}
	p := d.player
	d.player = nil
	p.Pause()
	if err := p.Close(); err != nil {
		return fmt.Errorf("close audio player: %w", err)
	}
	return nil
}

// IsOpen reports whether a player is active.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.player != nil
}
