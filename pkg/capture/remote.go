package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"

	"github.com/signstream/go-signstream/internal/log"
)

// remoteConfig holds Remote source tuning.
type remoteConfig struct {
	producerName   string
	connectTimeout time.Duration
	decodeEvery    time.Duration
	stunURLs       []string
}

// RemoteOption configures a Remote source.
type RemoteOption func(*remoteConfig)

// WithProducerName selects a named producer on the signalling server.
// Empty matches the first advertised producer.
func WithProducerName(name string) RemoteOption {
	return func(c *remoteConfig) { c.producerName = name }
}

// WithConnectTimeout bounds signalling and first-frame waits.
func WithConnectTimeout(d time.Duration) RemoteOption {
	return func(c *remoteConfig) { c.connectTimeout = d }
}

// WithSTUN sets the STUN servers used for ICE.
func WithSTUN(urls ...string) RemoteOption {
	return func(c *remoteConfig) { c.stunURLs = urls }
}

// Remote pulls video from a GStreamer webrtcsink signalling server over
// WebRTC and serves decoded frames through the Source contract.
type Remote struct {
	url string
	cfg remoteConfig

	// mu guards lifecycle state. Never held while touching sigConn.
	mu       sync.Mutex
	pc       *webrtc.PeerConnection
	handle   *remoteHandle
	closed   bool
	h264Path string
	jpegPath string

	// wsMu guards the signalling connection and session id. Signalling
	// callbacks take only this lock so peer teardown cannot deadlock.
	wsMu      sync.Mutex
	sigConn   *websocket.Conn
	sessionID string

	// set during Acquire before any goroutine starts
	peerID     string
	producerID string
}

// NewRemote builds a remote source for the given signalling URL
// (e.g. ws://host:8443).
func NewRemote(signallingURL string, opts ...RemoteOption) *Remote {
	cfg := remoteConfig{
		connectTimeout: 15 * time.Second,
		decodeEvery:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Remote{url: signallingURL, cfg: cfg}
}

// Acquire connects to the signalling server, negotiates a recvonly video
// session, and waits for the first decoded frame.
func (r *Remote) Acquire(ctx context.Context) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil {
		return nil, ErrAlreadyAcquired
	}
	r.closed = false

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: signalling dial %s: %v", ErrDeviceUnavailable, r.url, err)
	}
	r.setSigConn(ws)

	if err := r.waitForWelcome(ws); err != nil {
		r.teardown()
		return nil, fmt.Errorf("%w: signalling welcome: %v", ErrDeviceUnavailable, err)
	}
	if err := r.findProducer(ws); err != nil {
		r.teardown()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	handle := &remoteHandle{first: make(chan struct{}, 1)}
	if err := r.createPeerConnection(handle); err != nil {
		r.teardown()
		return nil, fmt.Errorf("%w: peer connection: %v", ErrDeviceUnavailable, err)
	}
	if err := r.writeJSON(map[string]string{"type": "startSession", "peerId": r.producerID}); err != nil {
		r.teardown()
		return nil, fmt.Errorf("%w: start session: %v", ErrDeviceUnavailable, err)
	}

	go r.handleSignalling(ws)

	select {
	case <-handle.first:
	case <-ctx.Done():
		r.teardown()
		return nil, ctx.Err()
	case <-time.After(r.cfg.connectTimeout):
		r.teardown()
		return nil, fmt.Errorf("%w: no video within %s", ErrDeviceUnavailable, r.cfg.connectTimeout)
	}

	r.handle = handle
	log.Info("remote source acquired", "url", r.url, "producer", r.producerID)
	return handle, nil
}

// Release tears the WebRTC session down. Safe to call repeatedly.
func (r *Remote) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.teardown()
	if r.handle != nil {
		r.handle.invalidate()
		r.handle = nil
		log.Info("remote source released", "url", r.url)
	}
	return nil
}

// teardown closes network state; callers hold r.mu.
func (r *Remote) teardown() {
	r.closed = true
	if r.pc != nil {
		r.pc.Close()
		r.pc = nil
	}
	r.setSigConn(nil)
	if r.h264Path != "" {
		os.Remove(r.h264Path)
		os.Remove(r.jpegPath)
		r.h264Path = ""
		r.jpegPath = ""
	}
}

func (r *Remote) setSigConn(ws *websocket.Conn) {
	r.wsMu.Lock()
	defer r.wsMu.Unlock()
	if r.sigConn != nil && r.sigConn != ws {
		r.sigConn.Close()
	}
	r.sigConn = ws
	if ws == nil {
		r.sessionID = ""
	}
}

func (r *Remote) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Remote) waitForWelcome(ws *websocket.Conn) error {
	ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer ws.SetReadDeadline(time.Time{})

	_, msg, err := ws.ReadMessage()
	if err != nil {
		return err
	}
	var welcome struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId"`
	}
	if err := json.Unmarshal(msg, &welcome); err != nil {
		return err
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %q", welcome.Type)
	}
	r.peerID = welcome.PeerID
	return nil
}

func (r *Remote) findProducer(ws *websocket.Conn) error {
	if err := r.writeJSON(map[string]string{"type": "list"}); err != nil {
		return err
	}

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer ws.SetReadDeadline(time.Time{})

	_, msg, err := ws.ReadMessage()
	if err != nil {
		return err
	}

	var list struct {
		Type      string `json:"type"`
		Producers []struct {
			ID   string         `json:"id"`
			Meta map[string]any `json:"meta"`
		} `json:"producers"`
	}
	if err := json.Unmarshal(msg, &list); err != nil {
		return err
	}

	for _, p := range list.Producers {
		if r.cfg.producerName == "" {
			r.producerID = p.ID
			return nil
		}
		if name, ok := p.Meta["name"].(string); ok && name == r.cfg.producerName {
			r.producerID = p.ID
			return nil
		}
	}
	return fmt.Errorf("producer %q not found among %d producers", r.cfg.producerName, len(list.Producers))
}

func (r *Remote) createPeerConnection(handle *remoteHandle) error {
	var iceServers []webrtc.ICEServer
	if len(r.cfg.stunURLs) > 0 {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: r.cfg.stunURLs})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return err
	}
	r.pc = pc

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Debug("remote track", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go r.consumeVideo(track, handle)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			r.sendICECandidate(candidate)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("remote peer state", "state", state.String())
	})

	return nil
}

func (r *Remote) handleSignalling(ws *websocket.Conn) {
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if !r.isClosed() {
				log.Warn("remote signalling read failed", "error", err)
			}
			return
		}

		var base struct {
			Type      string `json:"type"`
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "sessionStarted":
			r.wsMu.Lock()
			r.sessionID = base.SessionID
			r.wsMu.Unlock()
		case "peer":
			r.handlePeerMessage(msg)
		case "endSession":
			return
		}
	}
}

func (r *Remote) handlePeerMessage(msg []byte) {
	var peer struct {
		SDP *struct {
			Type string `json:"type"`
			SDP  string `json:"sdp"`
		} `json:"sdp"`
		ICE *struct {
			Candidate     string  `json:"candidate"`
			SDPMid        *string `json:"sdpMid"`
			SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
		} `json:"ice"`
	}
	if err := json.Unmarshal(msg, &peer); err != nil {
		return
	}

	if peer.SDP != nil && peer.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: peer.SDP.SDP}
		if err := r.pc.SetRemoteDescription(offer); err != nil {
			log.Warn("remote set offer failed", "error", err)
			return
		}
		answer, err := r.pc.CreateAnswer(nil)
		if err != nil {
			log.Warn("remote create answer failed", "error", err)
			return
		}
		if err := r.pc.SetLocalDescription(answer); err != nil {
			log.Warn("remote set answer failed", "error", err)
			return
		}
		r.sendSDP(answer)
	}

	if peer.ICE != nil {
		r.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     peer.ICE.Candidate,
			SDPMid:        peer.ICE.SDPMid,
			SDPMLineIndex: peer.ICE.SDPMLineIndex,
		})
	}
}

func (r *Remote) sendSDP(sdp webrtc.SessionDescription) {
	r.wsMu.Lock()
	sessionID := r.sessionID
	r.wsMu.Unlock()

	r.writeJSON(map[string]any{
		"type":      "peer",
		"sessionId": sessionID,
		"sdp": map[string]string{
			"type": sdp.Type.String(),
			"sdp":  sdp.SDP,
		},
	})
}

func (r *Remote) sendICECandidate(candidate *webrtc.ICECandidate) {
	r.wsMu.Lock()
	sessionID := r.sessionID
	r.wsMu.Unlock()
	if sessionID == "" {
		return
	}

	init := candidate.ToJSON()
	r.writeJSON(map[string]any{
		"type":      "peer",
		"sessionId": sessionID,
		"ice": map[string]any{
			"candidate":     init.Candidate,
			"sdpMid":        init.SDPMid,
			"sdpMLineIndex": init.SDPMLineIndex,
		},
	})
}

func (r *Remote) writeJSON(v any) error {
	r.wsMu.Lock()
	defer r.wsMu.Unlock()
	if r.sigConn == nil {
		return ErrReleased
	}
	return r.sigConn.WriteJSON(v)
}

// consumeVideo depacketizes the H.264 track and refreshes the handle with
// decoded JPEG frames. Access units end at the RTP marker bit; decoding is
// throttled so the ffmpeg child does not run per packet.
func (r *Remote) consumeVideo(track *webrtc.TrackRemote, handle *remoteHandle) {
	var depacketizer codecs.H264Packet
	var annexB bytes.Buffer
	lastDecode := time.Now()

	for !r.isClosed() {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		nal, err := depacketizer.Unmarshal(pkt.Payload)
		if err != nil {
			log.Debug("remote depacketize failed", "error", err)
			continue
		}
		annexB.Write(nal)

		if pkt.Marker && time.Since(lastDecode) >= r.cfg.decodeEvery {
			if jpegData := r.decodeH264(annexB.Bytes()); jpegData != nil {
				handle.update(jpegData)
			}
			annexB.Reset()
			lastDecode = time.Now()
		}
	}
}

// decodeH264 converts buffered Annex-B NAL units into one JPEG via ffmpeg.
func (r *Remote) decodeH264(h264 []byte) []byte {
	if len(h264) < 100 {
		return nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	if r.h264Path == "" {
		h264File, err := os.CreateTemp("", "signstream-*.h264")
		if err != nil {
			r.mu.Unlock()
			return nil
		}
		h264File.Close()
		r.h264Path = h264File.Name()
		r.jpegPath = r.h264Path + ".jpg"
	}
	h264Path, jpegPath := r.h264Path, r.jpegPath
	r.mu.Unlock()

	if err := os.WriteFile(h264Path, h264, 0o644); err != nil {
		return nil
	}

	cmd := exec.Command("ffmpeg", "-y", "-loglevel", "error", "-i", h264Path, "-vframes", "1", "-f", "image2", jpegPath)
	if err := cmd.Run(); err != nil {
		log.Debug("remote decode failed", "error", err)
		return nil
	}

	jpegData, err := os.ReadFile(jpegPath)
	if err != nil || len(jpegData) < 1000 {
		return nil
	}
	return jpegData
}

// remoteHandle serves the most recent decoded frame.
type remoteHandle struct {
	mu     sync.RWMutex
	latest []byte
	closed bool
	first  chan struct{}
}

func (h *remoteHandle) update(jpegData []byte) {
	h.mu.Lock()
	wasEmpty := h.latest == nil
	h.latest = jpegData
	h.mu.Unlock()

	if wasEmpty {
		select {
		case h.first <- struct{}{}:
		default:
		}
	}
}

func (h *remoteHandle) invalidate() {
	h.mu.Lock()
	h.closed = true
	h.latest = nil
	h.mu.Unlock()
}

// Read decodes the most recent JPEG frame.
func (h *remoteHandle) Read() (image.Image, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, ErrReleased
	}
	if h.latest == nil {
		return nil, ErrNoFrame
	}
	img, err := jpeg.Decode(bytes.NewReader(h.latest))
	if err != nil {
		return nil, fmt.Errorf("capture: decode remote frame: %w", err)
	}
	return img, nil
}

// Ready reports whether a decoded frame is available.
func (h *remoteHandle) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.closed && h.latest != nil
}

var _ Source = (*Remote)(nil)
