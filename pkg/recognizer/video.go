package recognizer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// VideoResult is the outcome of processing an uploaded video file.
type VideoResult struct {
	Sentence        string `json:"sentence"`
	Analysis        string `json:"analysis"`
	FramesProcessed int    `json:"frames_processed"`
}

// ProcessVideo resets the recognizer and runs every frame of the file
// through the assembly state machine. The rate gate runs on a synthetic
// clock that advances one frame interval per frame, so file processing
// behaves like real-time playback regardless of machine speed.
func (r *Recognizer) ProcessVideo(ctx context.Context, path string) (*VideoResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, path)
	}

	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrVideoUnreadable, path)
	}
	defer cap.Close()

	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 30
	}
	frameInterval := time.Duration(float64(time.Second) / fps)
	totalFrames := int(cap.Get(gocv.VideoCaptureFrameCount))

	r.logger.Info("processing video",
		"path", path,
		"fps", fps,
		"total_frames", totalFrames,
	)

	r.Reset()

	mat := gocv.NewMat()
	defer mat.Close()

	frameTime := r.now()
	processed := 0
	lastLog := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if ok := cap.Read(&mat); !ok || mat.Empty() {
			break
		}

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
		if err != nil {
			r.logger.Warn("frame encode failed", "frame", processed, "error", err)
			continue
		}
		frame := make([]byte, len(buf.GetBytes()))
		copy(frame, buf.GetBytes())
		buf.Close()

		frameTime = frameTime.Add(frameInterval)
		r.processFrameAt(ctx, frame, frameTime)
		processed++

		if totalFrames > 0 && time.Since(lastLog) >= 5*time.Second {
			r.logger.Info("video progress",
				"processed", processed,
				"total", totalFrames,
			)
			lastLog = time.Now()
		}
	}

	// Final pass: analyze whatever the video left behind.
	r.mu.Lock()
	if strings.TrimSpace(r.sentence) != "" && r.sentence != r.lastAnalyzed {
		r.analyzed = r.analyzeLocked(ctx, strings.TrimSpace(r.sentence))
		r.lastAnalyzed = r.sentence
	}
	sentence := strings.TrimSpace(r.sentence)
	analysis := r.analyzed
	r.mu.Unlock()

	r.logger.Info("video processing complete",
		"sentence", sentence,
		"frames", processed,
	)

	return &VideoResult{
		Sentence:        sentence,
		Analysis:        analysis,
		FramesProcessed: processed,
	}, nil
}
