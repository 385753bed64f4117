// Package recognizer assembles fingerspelled letters into sentences.
//
// Hand detection and letter classification live behind the Predictor
// interface; sentence analysis lives behind Analyzer. What this package
// owns is the assembly state machine: it rate-gates the prediction path,
// holds letters to a stability window before committing them, spaces
// words on pauses, and hands full sentences to the analyzer.
//
// One Recognizer instance is shared by the WebSocket handler and the REST
// handlers; all methods are safe for concurrent use.
package recognizer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/signstream/go-signstream/pkg/recognition"
)

// Recognizer is the per-frame letter assembly state machine.
type Recognizer struct {
	cfg       *Config
	logger    *slog.Logger
	predictor Predictor
	analyzer  Analyzer
	motion    map[string]bool

	// now is swapped by tests and by video processing, which advances a
	// synthetic clock one frame interval at a time.
	now func() time.Time

	mu             sync.Mutex
	sentence       string
	analyzed       string
	lastAnalyzed   string
	currentLetter  string
	candidate      string
	history        []string
	holdStart      time.Time
	cooldownActive bool
	cooldownStart  time.Time
	noHandsFrames  int
	lastPrediction time.Time
	framesSeen     int64
}

// New creates a recognizer. The analyzer may be nil; analysis then falls
// back to echoing the raw text.
func New(predictor Predictor, analyzer Analyzer, opts ...Option) (*Recognizer, error) {
	if predictor == nil {
		return nil, ErrNilPredictor
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	motion := make(map[string]bool, len(cfg.MotionLabels))
	for _, l := range cfg.MotionLabels {
		motion[l] = true
	}

	r := &Recognizer{
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "recognizer"),
		predictor: predictor,
		analyzer:  analyzer,
		motion:    motion,
		now:       time.Now,
	}
	r.lastPrediction = r.now()
	return r, nil
}

// ProcessFrame runs one frame through the assembly state machine and
// returns the event to send back over the wire.
func (r *Recognizer) ProcessFrame(ctx context.Context, frame []byte) recognition.Event {
	return r.processFrameAt(ctx, frame, r.now())
}

func (r *Recognizer) processFrameAt(ctx context.Context, frame []byte, frameTime time.Time) recognition.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.framesSeen++

	// Rate gate: frames inside the prediction interval get cached state.
	if frameTime.Sub(r.lastPrediction) < r.cfg.Interval {
		return r.cachedEventLocked()
	}
	r.lastPrediction = frameTime

	// Cooldown expiry also clears the candidate so the next letter starts
	// a fresh hold.
	if r.cooldownActive && frameTime.Sub(r.cooldownStart) >= r.cfg.Cooldown {
		r.cooldownActive = false
		r.candidate = ""
	}

	pred, err := r.predictor.Predict(ctx, frame)
	if err != nil {
		// The frame contributes nothing: counters and history stay put.
		r.logger.Error("prediction failed", "error", err)
		return r.fullEventLocked("", 0)
	}

	if pred.HandsDetected {
		r.noHandsFrames = 0
	} else {
		r.noHandsFrames++
		r.history = r.history[:0]
		r.candidate = ""

		// A sustained pause ends the word.
		if r.noHandsFrames == r.cfg.PauseThreshold && r.sentence != "" && !strings.HasSuffix(r.sentence, " ") {
			r.sentence += " "
			r.logger.Info("added space after pause")
		}

		// A longer pause hands the sentence to the analyzer, once per
		// sentence revision.
		if r.noHandsFrames >= r.cfg.PauseThreshold*2 && strings.TrimSpace(r.sentence) != "" && r.sentence != r.lastAnalyzed {
			r.analyzed = r.analyzeLocked(ctx, strings.TrimSpace(r.sentence))
			r.lastAnalyzed = r.sentence
		}
	}

	label := ""
	confidence := 0.0
	stable := ""

	if pred.HandsDetected && pred.Label != "" && pred.Confidence >= r.cfg.Threshold {
		label = pred.Label
		confidence = pred.Confidence

		if r.motion[label] {
			// Motion letters never look stable to the window; append
			// them immediately.
			if !r.cooldownActive && lastChar(r.sentence) != label {
				r.appendLetterLocked(label, frameTime)
				r.logger.Info("added motion letter", "letter", label, "sentence", r.sentence)
			}
		} else {
			stable = label
		}
	}

	if stable != "" {
		r.history = append(r.history, stable)
		if len(r.history) > r.cfg.StabilityWindow {
			r.history = r.history[1:]
		}

		if len(r.history) >= r.cfg.StabilityWindow {
			most, count := mostCommon(r.history)
			if count >= int(r.cfg.Majority*float64(r.cfg.StabilityWindow)) {
				if r.candidate != most {
					// New stable letter; start the hold timer.
					r.candidate = most
					r.holdStart = frameTime
				} else if frameTime.Sub(r.holdStart) >= r.cfg.RequiredHold && !r.cooldownActive {
					if lastChar(r.sentence) != most {
						r.appendLetterLocked(most, frameTime)
						r.logger.Info("added stable letter", "letter", most, "sentence", r.sentence)
					}
				}
			}
		}
	}

	return r.fullEventLocked(label, confidence)
}

// appendLetterLocked commits a letter and arms the cooldown.
func (r *Recognizer) appendLetterLocked(letter string, frameTime time.Time) {
	r.sentence += letter
	r.currentLetter = letter
	r.cooldownActive = true
	r.cooldownStart = frameTime
	r.history = r.history[:0]
	r.candidate = ""
}

// cachedEventLocked is the rate-gated response: the last committed letter
// (if any) plus the current text, with no fresh confidence.
func (r *Recognizer) cachedEventLocked() recognition.Event {
	sentence := r.sentence
	analyzed := r.analyzed
	ev := recognition.Event{
		Sentence:         &sentence,
		AnalyzedSentence: &analyzed,
	}
	if r.currentLetter != "" {
		letter := r.currentLetter
		zero := 0.0
		ev.Prediction = &letter
		ev.Confidence = &zero
	}
	return ev
}

// fullEventLocked is the full-pass response; prediction is absent when no
// confident letter was seen this frame.
func (r *Recognizer) fullEventLocked(label string, confidence float64) recognition.Event {
	sentence := r.sentence
	analyzed := r.analyzed
	conf := confidence
	ev := recognition.Event{
		Confidence:       &conf,
		Sentence:         &sentence,
		AnalyzedSentence: &analyzed,
	}
	if label != "" {
		l := label
		ev.Prediction = &l
	}
	return ev
}

// analyzeLocked maps analyzer outcomes onto the strings shown to users.
// Analysis failures never fail the session.
func (r *Recognizer) analyzeLocked(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if r.analyzer == nil {
		r.logger.Warn("no analyzer configured")
		return "Gemini analysis unavailable. Original text: " + text
	}

	r.logger.Info("analyzing sentence", "text", text)
	result, err := r.analyzer.Analyze(ctx, text)
	if err != nil {
		r.logger.Error("analysis failed", "error", err)
		return "Error analyzing: " + text
	}
	return strings.TrimSpace(result)
}

// Reset clears the assembly state and returns the acknowledgement sent to
// clients. The prediction rate gate is left running.
func (r *Recognizer) Reset() recognition.ResetAck {
	r.mu.Lock()
	r.sentence = ""
	r.analyzed = ""
	r.lastAnalyzed = ""
	r.currentLetter = ""
	r.candidate = ""
	r.history = r.history[:0]
	r.holdStart = time.Time{}
	r.cooldownActive = false
	r.cooldownStart = time.Time{}
	r.noHandsFrames = 0
	r.mu.Unlock()

	r.logger.Info("recognizer state reset")
	return recognition.ResetAck{
		Status:  "reset",
		Message: "Recognizer state has been reset",
	}
}

// Sentence returns the current assembled sentence.
func (r *Recognizer) Sentence() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sentence
}

// AnalyzedSentence returns the last analysis result.
func (r *Recognizer) AnalyzedSentence() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.analyzed
}

// Threshold returns the configured prediction threshold.
func (r *Recognizer) Threshold() float64 {
	return r.cfg.Threshold
}

// ModelLoaded reports whether the predictor has a trained model.
func (r *Recognizer) ModelLoaded() bool {
	return r.predictor.Loaded()
}

// FramesSeen returns the total number of frames processed.
func (r *Recognizer) FramesSeen() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.framesSeen
}

// Close releases the predictor.
func (r *Recognizer) Close() error {
	return r.predictor.Close()
}

// lastChar returns the final character of s, or empty.
func lastChar(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	return string(runes[len(runes)-1])
}

// mostCommon returns the most frequent entry and its count. Ties go to
// the earliest-seen entry.
func mostCommon(history []string) (string, int) {
	counts := make(map[string]int, len(history))
	best := ""
	bestCount := 0
	for _, l := range history {
		counts[l]++
		if counts[l] > bestCount {
			best = l
			bestCount = counts[l]
		}
	}
	return best, bestCount
}
