package stream

import (
	"encoding/binary"
	"net/http"

	"go.uber.org/zap"

	"github.com/satindergrewal/mnome/internal/audio"
)

// unknownLength marks RIFF and data chunk sizes of an endless stream.
const unknownLength = 0xFFFFFFFF

// wavHeader returns a 44-byte PCM WAV header for a stream of unknown length.
func wavHeader(sampleRate, channels, bitDepth int) []byte {
	blockAlign := channels * bitDepth / 8
	h := make([]byte, 44)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], unknownLength)
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:], uint16(bitDepth))
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], unknownLength)
	return h
}

// HTTPHandler serves the click track as a chunked 16-bit PCM WAV stream.
type HTTPHandler struct {
	broadcaster *Broadcaster
	logger      *zap.Logger
}

// NewHTTPHandler creates an HTTP stream handler.
func NewHTTPHandler(b *Broadcaster, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{broadcaster: b, logger: logger}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("ICY-Name", "mnome click track")

	if _, err := w.Write(wavHeader(audio.SampleRate, audio.Channels, audio.BitDepth)); err != nil {
		return
	}
	flusher.Flush()

	listener := h.broadcaster.Subscribe("http")
	defer h.broadcaster.Unsubscribe(listener)

	logger := h.logger.With(zap.String("remote", r.RemoteAddr))
	logger.Info("http listener connected", zap.Int("listeners", h.broadcaster.ListenerCount()))
	defer logger.Info("http listener disconnected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-listener.Done():
			return
		case frame := <-listener.C:
			if _, err := w.Write(audio.SamplesToBytes(frame)); err != nil {
				logger.Debug("http stream write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}
