package recognition

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// CommandReset asks the service to clear its assembly state.
const CommandReset = "reset"

// FrameMessage is the client → service frame payload.
// Image is standard base64 of the raw JPEG bytes, never a data URI.
type FrameMessage struct {
	Image string `json:"image"`
}

// Command is a client → service control payload.
type Command struct {
	Command string `json:"command"`
}

// ClientMessage is the union the service reads from a recognition socket.
// A message carries either a command or an image.
type ClientMessage struct {
	Image   string `json:"image,omitempty"`
	Command string `json:"command,omitempty"`
}

// DecodeImage returns the raw JPEG bytes from the base64 image field.
func (m *ClientMessage) DecodeImage() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(m.Image)
	if err != nil {
		return nil, fmt.Errorf("recognition: invalid image encoding: %w", err)
	}
	return data, nil
}

// Event is a service → client recognition update. Every field is optional;
// a message updates only the fields it carries. JSON null counts as absent.
type Event struct {
	Error            *string  `json:"error,omitempty"`
	Sentence         *string  `json:"sentence,omitempty"`
	AnalyzedSentence *string  `json:"analyzed_sentence,omitempty"`
	Prediction       *string  `json:"prediction,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
}

// ErrorEvent builds an event carrying only an error message.
func ErrorEvent(msg string) Event {
	return Event{Error: &msg}
}

// ResetAck is the service reply to a reset command or POST /reset.
type ResetAck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// EncodeFrame marshals a frame into its wire form.
func EncodeFrame(f Frame) ([]byte, error) {
	msg := FrameMessage{Image: base64.StdEncoding.EncodeToString(f.Data)}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("recognition: encode frame: %w", err)
	}
	return data, nil
}

// EncodeCommand marshals a control command into its wire form.
func EncodeCommand(name string) ([]byte, error) {
	data, err := json.Marshal(Command{Command: name})
	if err != nil {
		return nil, fmt.Errorf("recognition: encode command: %w", err)
	}
	return data, nil
}

// ParseClientMessage parses an inbound client payload on the service side.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}

// ParseEvent parses a service → client payload. Non-JSON input and
// confidence values outside [0, 1] are rejected as malformed.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if ev.Confidence != nil && (*ev.Confidence < 0 || *ev.Confidence > 1) {
		return Event{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformedMessage, *ev.Confidence)
	}
	return ev, nil
}
