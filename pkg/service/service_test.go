package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signstream/go-signstream/pkg/recognition"
	"github.com/signstream/go-signstream/pkg/recognizer"
)

// newTestServer builds a server around a mock recognizer with the rate
// gate disabled so every frame takes the full pass.
func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	rec, err := recognizer.New(recognizer.NewMockPredictor(), nil, recognizer.WithInterval(0))
	if err != nil {
		t.Fatalf("recognizer.New failed: %v", err)
	}
	srv, err := New(rec, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("decode body %q: %v", body, err)
	}
	return m
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilRecognizer) {
		t.Errorf("expected ErrNilRecognizer, got %v", err)
	}

	rec, err := recognizer.New(recognizer.Unloaded(), nil)
	if err != nil {
		t.Fatalf("recognizer.New failed: %v", err)
	}
	if _, err := New(rec, WithPort("")); !errors.Is(err, ErrMissingPort) {
		t.Errorf("expected ErrMissingPort, got %v", err)
	}
}

func TestRootEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["message"] != "ASL Recognition API is running" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	body := decodeBody(t, resp)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["model_loaded"] != true {
		t.Errorf("model_loaded = %v, want true", body["model_loaded"])
	}
}

func TestHealthEndpointUnloadedModel(t *testing.T) {
	rec, err := recognizer.New(recognizer.Unloaded(), nil)
	if err != nil {
		t.Fatalf("recognizer.New failed: %v", err)
	}
	srv, err := New(rec)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	body := decodeBody(t, resp)
	if body["model_loaded"] != false {
		t.Errorf("model_loaded = %v, want false", body["model_loaded"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/status", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	body := decodeBody(t, resp)
	if body["status"] != "online" {
		t.Errorf("status = %v, want online", body["status"])
	}
	if body["version"] != "1.0.0" {
		t.Errorf("version = %v, want 1.0.0", body["version"])
	}
	if body["current_sentence"] != "" {
		t.Errorf("current_sentence = %v, want empty", body["current_sentence"])
	}
	if body["prediction_threshold"] != 0.7 {
		t.Errorf("prediction_threshold = %v, want 0.7", body["prediction_threshold"])
	}
	if body["clients"] != float64(0) {
		t.Errorf("clients = %v, want 0", body["clients"])
	}
	if body["monitors"] != float64(0) {
		t.Errorf("monitors = %v, want 0", body["monitors"])
	}
}

func TestResetEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/reset", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["status"] != "reset" {
		t.Errorf("status = %v, want reset", body["status"])
	}
	if body["message"] != "Recognizer state has been reset" {
		t.Errorf("message = %v", body["message"])
	}
	if srv.GetStats().Resets != 1 {
		t.Errorf("Resets = %d, want 1", srv.GetStats().Resets)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	for _, metric := range []string{
		"asl_service_clients 0",
		"asl_service_monitors 0",
		"asl_service_frames_processed 0",
		"asl_service_events_sent 0",
		"asl_service_resets 0",
	} {
		if !strings.Contains(text, metric) {
			t.Errorf("metrics output missing %q", metric)
		}
	}
}

func TestUploadVideoMissingFile(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/upload-video", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["error"] == nil {
		t.Error("expected an error field")
	}
}

func TestProcessMessage(t *testing.T) {
	errorOf := func(t *testing.T, reply interface{}) string {
		t.Helper()
		ev, ok := reply.(recognition.Event)
		if !ok {
			t.Fatalf("reply is %T, want recognition.Event", reply)
		}
		if ev.Error == nil {
			t.Fatalf("reply has no error: %+v", ev)
		}
		return *ev.Error
	}

	t.Run("invalid JSON", func(t *testing.T) {
		srv := newTestServer(t)
		got := errorOf(t, srv.processMessage(context.Background(), []byte("not json")))
		if got != "Invalid JSON data" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("reset command", func(t *testing.T) {
		srv := newTestServer(t)
		reply := srv.processMessage(context.Background(), []byte(`{"command":"reset"}`))
		ack, ok := reply.(recognition.ResetAck)
		if !ok {
			t.Fatalf("reply is %T, want recognition.ResetAck", reply)
		}
		if ack.Status != "reset" {
			t.Errorf("status = %q, want reset", ack.Status)
		}
		if srv.GetStats().Resets != 1 {
			t.Errorf("Resets = %d, want 1", srv.GetStats().Resets)
		}
	})

	t.Run("unknown command falls through", func(t *testing.T) {
		srv := newTestServer(t)
		got := errorOf(t, srv.processMessage(context.Background(), []byte(`{"command":"bogus"}`)))
		if got != "No image data received" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("missing image", func(t *testing.T) {
		srv := newTestServer(t)
		got := errorOf(t, srv.processMessage(context.Background(), []byte(`{}`)))
		if got != "No image data received" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		srv := newTestServer(t)
		got := errorOf(t, srv.processMessage(context.Background(), []byte(`{"image":"!!!"}`)))
		if got != "Invalid image data" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("valid frame", func(t *testing.T) {
		srv := newTestServer(t)
		payload, err := recognition.EncodeFrame(recognition.Frame{Data: []byte{0xff, 0xd8, 0xff}})
		if err != nil {
			t.Fatalf("EncodeFrame failed: %v", err)
		}

		reply := srv.processMessage(context.Background(), payload)
		ev, ok := reply.(recognition.Event)
		if !ok {
			t.Fatalf("reply is %T, want recognition.Event", reply)
		}
		if ev.Error != nil {
			t.Fatalf("unexpected error: %s", *ev.Error)
		}
		if ev.Confidence == nil || ev.Sentence == nil {
			t.Errorf("event missing fields: %+v", ev)
		}
		if srv.GetStats().FramesProcessed != 1 {
			t.Errorf("FramesProcessed = %d, want 1", srv.GetStats().FramesProcessed)
		}
	})

	t.Run("processing panic becomes error event", func(t *testing.T) {
		pred := recognizer.NewMockPredictor()
		pred.PredictFunc = func(ctx context.Context, frame []byte) (recognizer.Prediction, error) {
			panic("model exploded")
		}
		rec, err := recognizer.New(pred, nil, recognizer.WithInterval(0))
		if err != nil {
			t.Fatalf("recognizer.New failed: %v", err)
		}
		srv, err := New(rec)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		payload, _ := recognition.EncodeFrame(recognition.Frame{Data: []byte{0xff, 0xd8}})
		got := errorOf(t, srv.processMessage(context.Background(), payload))
		if !strings.Contains(got, "Error processing frame:") {
			t.Errorf("error = %q", got)
		}
		if !strings.Contains(got, "model exploded") {
			t.Errorf("error should carry the panic value: %q", got)
		}
	})
}

func TestRecognitionSocket(t *testing.T) {
	srv := newTestServer(t, WithPort("18090"))
	go srv.Start()
	defer srv.Shutdown(context.Background())
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090"+recognition.Path, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)
	if srv.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", srv.ClientCount())
	}

	// Frame in, event out.
	payload, _ := recognition.EncodeFrame(recognition.Frame{Data: []byte{0xff, 0xd8, 0xff}})
	ws.WriteMessage(websocket.TextMessage, payload)

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	ev, err := recognition.ParseEvent(data)
	if err != nil {
		t.Fatalf("reply is not an event: %v", err)
	}
	if ev.Sentence == nil || *ev.Sentence != "" {
		t.Errorf("sentence = %v, want empty", ev.Sentence)
	}
	if ev.Confidence == nil {
		t.Error("event missing confidence")
	}

	// Reset command gets an ack.
	cmd, _ := recognition.EncodeCommand(recognition.CommandReset)
	ws.WriteMessage(websocket.TextMessage, cmd)

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	var ack recognition.ResetAck
	if err := json.Unmarshal(data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "reset" {
		t.Errorf("ack status = %q, want reset", ack.Status)
	}

	// Malformed input keeps the socket alive.
	ws.WriteMessage(websocket.TextMessage, []byte("not json"))

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !strings.Contains(string(data), "Invalid JSON data") {
		t.Errorf("reply = %s", data)
	}

	ws.Close()
	time.Sleep(100 * time.Millisecond)
	if srv.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0 after disconnect", srv.ClientCount())
	}

	stats := srv.GetStats()
	if stats.FramesProcessed != 1 {
		t.Errorf("FramesProcessed = %d, want 1", stats.FramesProcessed)
	}
	if stats.EventsSent != 3 {
		t.Errorf("EventsSent = %d, want 3", stats.EventsSent)
	}
	if stats.Resets != 1 {
		t.Errorf("Resets = %d, want 1", stats.Resets)
	}
}

func TestMonitorReceivesTraffic(t *testing.T) {
	srv := newTestServer(t, WithPort("18091"))
	go srv.Start()
	defer srv.Shutdown(context.Background())
	time.Sleep(100 * time.Millisecond)

	mon, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091"+recognition.MonitorPath, nil)
	if err != nil {
		t.Fatalf("monitor dial error: %v", err)
	}
	defer mon.Close()

	rec, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091"+recognition.Path, nil)
	if err != nil {
		t.Fatalf("recognition dial error: %v", err)
	}
	defer rec.Close()

	time.Sleep(50 * time.Millisecond)
	if srv.MonitorCount() != 1 {
		t.Fatalf("MonitorCount = %d, want 1", srv.MonitorCount())
	}

	// A processed frame is fanned out to the observer.
	payload, _ := recognition.EncodeFrame(recognition.Frame{Data: []byte{0xff, 0xd8, 0xff}})
	rec.WriteMessage(websocket.TextMessage, payload)

	rec.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := rec.ReadMessage(); err != nil {
		t.Fatalf("recognition read error: %v", err)
	}

	mon.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := mon.ReadMessage()
	if err != nil {
		t.Fatalf("monitor read error: %v", err)
	}
	if _, err := recognition.ParseEvent(data); err != nil {
		t.Errorf("monitor payload is not an event: %v", err)
	}

	// A REST reset is fanned out too.
	resp, err := http.Post("http://localhost:18091/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /reset error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	mon.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err = mon.ReadMessage()
	if err != nil {
		t.Fatalf("monitor read error: %v", err)
	}
	if !strings.Contains(string(data), "Recognizer state has been reset") {
		t.Errorf("monitor payload = %s", data)
	}
}
