package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/contrib/websocket"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/signstream/go-signstream/pkg/monitor"
	"github.com/signstream/go-signstream/pkg/recognition"
)

// handleRecognition runs one recognition socket: read a payload, process
// it, reply. Replies come back one per inbound message, in order.
func (s *Server) handleRecognition(c *websocket.Conn) {
	id := uuid.NewString()

	s.mu.Lock()
	s.clients[id] = clientConn{ID: id, Connected: time.Now()}
	total := len(s.clients)
	s.mu.Unlock()
	s.logger.Info("client connected", "client", id, "total", total)

	defer func() {
		s.mu.Lock()
		delete(s.clients, id)
		total := len(s.clients)
		s.mu.Unlock()
		s.logger.Info("client disconnected", "client", id, "total", total)
	}()

	ctx := context.Background()
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		reply := s.processMessage(ctx, data)
		if err := c.WriteJSON(reply); err != nil {
			s.logger.Warn("reply write failed", "client", id, "error", err)
			return
		}
		s.eventsSent.Add(1)
	}
}

// processMessage maps one inbound payload to its reply. Frame processing
// panics surface as error events instead of killing the socket.
func (s *Server) processMessage(ctx context.Context, data []byte) (reply interface{}) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("frame processing panic", "panic", r)
			reply = recognition.ErrorEvent(fmt.Sprintf("Error processing frame: %v", r))
		}
	}()

	msg, err := recognition.ParseClientMessage(data)
	if err != nil {
		return recognition.ErrorEvent("Invalid JSON data")
	}

	// Only reset is recognized; unknown commands fall through to the
	// image checks.
	if msg.Command == recognition.CommandReset {
		ack := s.rec.Reset()
		s.resets.Add(1)
		s.monitor.BroadcastJSON(ack)
		return ack
	}

	if msg.Image == "" {
		return recognition.ErrorEvent("No image data received")
	}

	frame, err := msg.DecodeImage()
	if err != nil || len(frame) == 0 {
		return recognition.ErrorEvent("Invalid image data")
	}

	ev := s.rec.ProcessFrame(ctx, frame)
	s.framesProcessed.Add(1)
	s.monitor.BroadcastJSON(ev)
	return ev
}

// handleMonitor attaches a read-only observer to the broadcast hub.
func (s *Server) handleMonitor(c *fiberws.Conn) {
	monitor.NewClient(s.monitor, c).Run()
}
