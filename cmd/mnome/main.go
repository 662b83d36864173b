package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/satindergrewal/mnome/internal/api"
	"github.com/satindergrewal/mnome/internal/audio"
	"github.com/satindergrewal/mnome/internal/beat"
	"github.com/satindergrewal/mnome/internal/config"
	"github.com/satindergrewal/mnome/internal/device"
	"github.com/satindergrewal/mnome/internal/metronome"
	"github.com/satindergrewal/mnome/internal/player"
	"github.com/satindergrewal/mnome/internal/repl"
	"github.com/satindergrewal/mnome/internal/stream"
	"github.com/satindergrewal/mnome/internal/trainer"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	con := openConsole()
	defer con.restore()

	logger := newLogger(cfg.LogLevel, con)
	defer logger.Sync()

	logger.Info("mnome starting up",
		zap.Int("bpm", cfg.BPM),
		zap.String("pattern", cfg.Pattern),
		zap.String("audio", cfg.Audio),
		zap.String("http", cfg.HTTPAddr),
	)

	// Sinks: the local sound card and the network pacer
	var sinks []player.Sink
	if cfg.Audio != config.AudioNone {
		sinks = append(sinks, device.New(audio.Playback, cfg.Period, logger.Named("device")))
	}
	var pacer *stream.Pacer
	if cfg.HTTPAddr != "" {
		pacer = stream.NewPacer(logger.Named("stream"))
		sinks = append(sinks, pacer)
	}
	if len(sinks) == 0 {
		logger.Warn("no audio output configured, the metronome will be silent")
	}

	engine := player.New(audio.Playback, logger.Named("player"), sinks...)
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("close playback", zap.Error(err))
		}
	}()

	tr := trainer.New(engine, logger.Named("trainer"))
	go tr.Run(ctx)

	app, err := metronome.New(engine, tr, con.out, logger, metronome.Options{
		BaseFrequency: cfg.BaseFrequency,
		ToneLength:    cfg.ToneLength,
		Overtones:     cfg.Overtones,
		BPM:           cfg.BPM,
		Pattern:       beat.Parse(cfg.Pattern),
	})
	if err != nil {
		logger.Error("failed to configure metronome", zap.Error(err))
		return 1
	}

	var srv *http.Server
	var webrtcHandler *stream.WebRTCHandler
	if cfg.HTTPAddr != "" {
		// Broadcaster: fan-out PCM frames to all listeners
		broadcaster := stream.NewBroadcaster()
		go broadcaster.Run(ctx, pacer.Frames())

		streams := api.Streams{HTTP: stream.NewHTTPHandler(broadcaster, logger.Named("http"))}
		webrtcHandler, err = stream.NewWebRTCHandler(broadcaster, cfg.STUNURLs, logger.Named("webrtc"))
		if err != nil {
			logger.Warn("webrtc disabled", zap.Error(err))
		} else {
			streams.WebRTC = webrtcHandler
		}

		srv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(app, logger.Named("api"), streams),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http api listening", zap.String("addr", cfg.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", zap.Error(err))
				cancel()
			}
		}()
	}

	if cfg.AutoStart {
		if err := app.Start(); err != nil {
			logger.Warn("autostart failed", zap.Error(err))
		}
	}

	r := repl.New(con.in, con.out, logger.Named("repl"), app.Commands()...)
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("command loop ended", zap.Error(err))
	}
	if srv != nil && ctx.Err() == nil {
		if _, interactive := con.in.(interface{ SetPrompt(string) }); !interactive {
			logger.Info("input closed, serving until interrupted")
			<-ctx.Done()
		}
	}

	logger.Info("shutting down")
	cancel()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
		}
	}
	if webrtcHandler != nil {
		webrtcHandler.Close()
	}
	return 0
}
