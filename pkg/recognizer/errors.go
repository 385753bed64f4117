package recognizer

import "errors"

// Sentinel errors for the recognizer package.
var (
	// ErrNilPredictor indicates no predictor was provided.
	ErrNilPredictor = errors.New("recognizer: predictor is required")

	// ErrMissingAPIKey indicates the Gemini API key was not provided.
	ErrMissingAPIKey = errors.New("recognizer: Gemini API key is required")

	// ErrVideoNotFound indicates the video file does not exist.
	ErrVideoNotFound = errors.New("recognizer: video file not found")

	// ErrVideoUnreadable indicates the video file could not be opened.
	ErrVideoUnreadable = errors.New("recognizer: could not open video")
)
