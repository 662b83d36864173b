package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/nack"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"go.uber.org/zap"
	"gopkg.in/hraban/opus.v2"

	"github.com/satindergrewal/mnome/internal/audio"
	"github.com/satindergrewal/mnome/internal/metrics"
)

const (
	iceGatherTimeout = 10 * time.Second
	opusBitrate      = 64000
)

type peer struct {
	pc       *webrtc.PeerConnection
	listener *Listener
}

// WebRTCHandler serves WebRTC SDP negotiation for low-latency Opus streaming.
type WebRTCHandler struct {
	broadcaster *Broadcaster
	api         *webrtc.API
	iceServers  []webrtc.ICEServer
	logger      *zap.Logger

	mu    sync.Mutex
	peers map[string]*peer
}

// NewWebRTCHandler creates a WebRTC stream handler with the Opus codec
// registered and NACK responses enabled. stunURLs may be empty.
func NewWebRTCHandler(b *Broadcaster, stunURLs []string, logger *zap.Logger) (*WebRTCHandler, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   audio.SampleRate,
			Channels:    2,
			SDPFmtpLine: "minptime=10;useinbandfec=1",
		},
		PayloadType: 111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("register opus codec: %w", err)
	}

	ir := &interceptor.Registry{}
	responder, err := nack.NewResponderInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create nack responder: %w", err)
	}
	ir.Add(responder)

	var ice []webrtc.ICEServer
	if len(stunURLs) > 0 {
		urls := make([]string, len(stunURLs))
		copy(urls, stunURLs)
		ice = []webrtc.ICEServer{{URLs: urls}}
	}

	return &WebRTCHandler{
		broadcaster: b,
		api:         webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(ir)),
		iceServers:  ice,
		logger:      logger,
		peers:       make(map[string]*peer),
	}, nil
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	logger := h.logger.With(zap.String("peer", id))

	pc, err := h.api.NewPeerConnection(webrtc.Configuration{ICEServers: h.iceServers})
	if err != nil {
		logger.Error("create peer connection", zap.Error(err))
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: audio.SampleRate,
			Channels:  2,
		},
		"audio",
		"mnome",
	)
	if err != nil {
		pc.Close()
		http.Error(w, "create audio track failed", http.StatusInternalServerError)
		return
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		http.Error(w, "add track failed", http.StatusInternalServerError)
		return
	}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		logger.Debug("peer connection state", zap.String("state", s.String()))
		switch s {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			if h.removePeer(id) {
				logger.Info("webrtc peer disconnected", zap.Int("remaining", h.PeerCount()))
			}
		}
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		http.Error(w, "set remote description failed", http.StatusBadRequest)
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		http.Error(w, "create answer failed", http.StatusInternalServerError)
		return
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		http.Error(w, "set local description failed", http.StatusInternalServerError)
		return
	}

	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		logger.Warn("ice gathering timed out, answering with partial candidates")
	case <-r.Context().Done():
		pc.Close()
		return
	}

	p := &peer{pc: pc, listener: h.broadcaster.Subscribe("webrtc")}
	h.mu.Lock()
	h.peers[id] = p
	h.mu.Unlock()
	logger.Info("webrtc peer connected", zap.Int("peers", h.PeerCount()))

	go h.streamToPeer(logger, p.listener, track)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pc.LocalDescription()); err != nil {
		logger.Warn("write answer", zap.Error(err))
	}
}

// Close disconnects every peer.
func (h *WebRTCHandler) Close() error {
	h.mu.Lock()
	ids := make([]string, 0, len(h.peers))
	for id := range h.peers {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.removePeer(id)
	}
	return nil
}

func (h *WebRTCHandler) streamToPeer(logger *zap.Logger, listener *Listener, track *webrtc.TrackLocalStaticSample) {
	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		logger.Error("opus encoder", zap.Error(err))
		return
	}
	if err := enc.SetBitrate(opusBitrate); err != nil {
		logger.Warn("opus bitrate", zap.Error(err))
	}

	opusBuf := make([]byte, 4000)
	for {
		select {
		case <-listener.Done():
			return
		case frame := <-listener.C:
			n, err := enc.Encode(frame, opusBuf)
			if err != nil {
				metrics.EncodeErrorsTotal.Inc()
				logger.Warn("opus encode", zap.Error(err))
				continue
			}
			if err := track.WriteSample(media.Sample{
				Data:     opusBuf[:n],
				Duration: audio.FrameDuration,
			}); err != nil {
				return
			}
		}
	}
}

// removePeer unsubscribes and closes the peer. It reports whether id was
// still registered.
func (h *WebRTCHandler) removePeer(id string) bool {
	h.mu.Lock()
	p, ok := h.peers[id]
	delete(h.peers, id)
	h.mu.Unlock()
	if !ok {
		return false
	}
	h.broadcaster.Unsubscribe(p.listener)
	if err := p.pc.Close(); err != nil {
		h.logger.Debug("close peer connection", zap.String("peer", id), zap.Error(err))
	}
	return true
}
