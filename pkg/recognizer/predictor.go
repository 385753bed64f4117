package recognizer

import "context"

// Prediction is one frame's model output.
type Prediction struct {
	// Label is the predicted letter. Empty means no confident prediction;
	// implementations that need a frame window return empty labels until
	// the window is warm.
	Label string

	// Confidence is the model's confidence in the label (0-1).
	Confidence float64

	// HandsDetected reports whether any hands were found in the frame,
	// independent of whether a letter was predicted.
	HandsDetected bool
}

// Predictor turns a single frame into a letter prediction. The trained
// model runs out of process; implementations here are adapters around it.
type Predictor interface {
	// Predict runs hand detection and letter classification on one
	// JPEG-encoded frame.
	Predict(ctx context.Context, frame []byte) (Prediction, error)

	// Loaded reports whether a trained model is available.
	Loaded() bool

	// Close releases model resources.
	Close() error
}

// PredictorFunc adapts a function to the Predictor interface. It always
// reports loaded.
type PredictorFunc func(ctx context.Context, frame []byte) (Prediction, error)

// Predict implements Predictor.
func (f PredictorFunc) Predict(ctx context.Context, frame []byte) (Prediction, error) {
	return f(ctx, frame)
}

// Loaded implements Predictor.
func (f PredictorFunc) Loaded() bool { return true }

// Close implements Predictor.
func (f PredictorFunc) Close() error { return nil }

// Unloaded returns a Predictor for running without a trained model: hands
// are never detected and Loaded reports false. The service stays up and
// answers status and reset calls, it just never assembles letters.
func Unloaded() Predictor {
	return unloadedPredictor{}
}

type unloadedPredictor struct{}

func (unloadedPredictor) Predict(ctx context.Context, frame []byte) (Prediction, error) {
	return Prediction{}, nil
}

func (unloadedPredictor) Loaded() bool { return false }

func (unloadedPredictor) Close() error { return nil }
