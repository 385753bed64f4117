package recognition

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeFrame(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	frame := Frame{Data: jpeg, CapturedAt: time.Now()}

	data, err := EncodeFrame(frame)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}

	var msg FrameMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal wire form: %v", err)
	}

	if strings.HasPrefix(msg.Image, "data:") {
		t.Error("image field must not carry a data URI header")
	}

	decoded, err := base64.StdEncoding.DecodeString(msg.Image)
	if err != nil {
		t.Fatalf("image field is not valid base64: %v", err)
	}
	if !bytes.Equal(decoded, jpeg) {
		t.Errorf("round trip = %v, want %v", decoded, jpeg)
	}
}

func TestEncodeCommand(t *testing.T) {
	data, err := EncodeCommand(CommandReset)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	want := `{"command":"reset"}`
	if string(data) != want {
		t.Errorf("EncodeCommand() = %s, want %s", data, want)
	}
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(t *testing.T, ev Event)
	}{
		{
			name:    "prediction with confidence",
			payload: `{"prediction":"A","confidence":0.92}`,
			check: func(t *testing.T, ev Event) {
				if ev.Prediction == nil || *ev.Prediction != "A" {
					t.Errorf("prediction = %v, want A", ev.Prediction)
				}
				if ev.Confidence == nil || *ev.Confidence != 0.92 {
					t.Errorf("confidence = %v, want 0.92", ev.Confidence)
				}
				if ev.Sentence != nil {
					t.Error("sentence should be absent")
				}
			},
		},
		{
			name:    "sentence only",
			payload: `{"sentence":"HELLO"}`,
			check: func(t *testing.T, ev Event) {
				if ev.Sentence == nil || *ev.Sentence != "HELLO" {
					t.Errorf("sentence = %v, want HELLO", ev.Sentence)
				}
				if ev.Prediction != nil || ev.Confidence != nil {
					t.Error("prediction fields should be absent")
				}
			},
		},
		{
			name:    "null prediction counts as absent",
			payload: `{"prediction":null,"confidence":0.0,"sentence":"HI","analyzed_sentence":""}`,
			check: func(t *testing.T, ev Event) {
				if ev.Prediction != nil {
					t.Errorf("prediction = %v, want nil", *ev.Prediction)
				}
				if ev.AnalyzedSentence == nil || *ev.AnalyzedSentence != "" {
					t.Error("empty analyzed_sentence should still be present")
				}
			},
		},
		{
			name:    "error field",
			payload: `{"error":"Invalid image data"}`,
			check: func(t *testing.T, ev Event) {
				if ev.Error == nil || *ev.Error != "Invalid image data" {
					t.Errorf("error = %v, want Invalid image data", ev.Error)
				}
			},
		},
		{
			name:    "not json",
			payload: `this is not json`,
			wantErr: true,
		},
		{
			name:    "confidence above one",
			payload: `{"prediction":"A","confidence":1.5}`,
			wantErr: true,
		},
		{
			name:    "confidence below zero",
			payload: `{"confidence":-0.1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseEvent() expected error, got nil")
				}
				if !errors.Is(err, ErrMalformedMessage) {
					t.Errorf("error = %v, want ErrMalformedMessage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			tt.check(t, ev)
		})
	}
}

func TestParseClientMessage(t *testing.T) {
	t.Run("image payload", func(t *testing.T) {
		jpeg := []byte{0xFF, 0xD8, 0xFF}
		raw := `{"image":"` + base64.StdEncoding.EncodeToString(jpeg) + `"}`
		msg, err := ParseClientMessage([]byte(raw))
		if err != nil {
			t.Fatalf("ParseClientMessage() error = %v", err)
		}
		got, err := msg.DecodeImage()
		if err != nil {
			t.Fatalf("DecodeImage() error = %v", err)
		}
		if !bytes.Equal(got, jpeg) {
			t.Errorf("DecodeImage() = %v, want %v", got, jpeg)
		}
	})

	t.Run("reset command", func(t *testing.T) {
		msg, err := ParseClientMessage([]byte(`{"command":"reset"}`))
		if err != nil {
			t.Fatalf("ParseClientMessage() error = %v", err)
		}
		if msg.Command != CommandReset {
			t.Errorf("command = %q, want %q", msg.Command, CommandReset)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := ParseClientMessage([]byte(`{broken`)); !errors.Is(err, ErrMalformedMessage) {
			t.Errorf("error = %v, want ErrMalformedMessage", err)
		}
	})

	t.Run("bad base64", func(t *testing.T) {
		msg, err := ParseClientMessage([]byte(`{"image":"!!!not-base64!!!"}`))
		if err != nil {
			t.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, err := msg.DecodeImage(); err == nil {
			t.Error("DecodeImage() expected error on bad base64")
		}
	})
}

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{name: "http", base: "http://localhost:8000", want: "ws://localhost:8000/ws/asl-recognition"},
		{name: "https", base: "https://asl.example.com", want: "wss://asl.example.com/ws/asl-recognition"},
		{name: "ws passthrough", base: "ws://127.0.0.1:9000", want: "ws://127.0.0.1:9000/ws/asl-recognition"},
		{name: "bad scheme", base: "ftp://example.com", wantErr: true},
		{name: "garbage", base: "://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := URL(tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("URL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}
