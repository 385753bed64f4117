package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/signstream/go-signstream/internal/log"
)

// Camera is a local camera device opened through OpenCV.
type Camera struct {
	cfg Config

	mu     sync.Mutex
	handle *cameraHandle
}

// NewCamera builds a camera source for the configured device.
func NewCamera(opts ...Option) (*Camera, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Camera{cfg: cfg}, nil
}

// Acquire opens the device, applies the configured resolution and frame
// rate, and waits for the first frame.
func (c *Camera) Acquire(ctx context.Context) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		return nil, ErrAlreadyAcquired
	}

	devicePath := fmt.Sprintf("/dev/video%d", c.cfg.Device)

	cap, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return nil, classifyOpen(devicePath, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, classifyOpen(devicePath, fmt.Errorf("device %d did not open", c.cfg.Device))
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(c.cfg.Framerate))

	h := &cameraHandle{cap: cap, mat: gocv.NewMat()}

	// Cameras often deliver empty frames right after opening. Wait for a
	// real one so Ready is meaningful from the first sampler tick.
	if err := h.warmup(ctx, c.cfg.WarmupTimeout); err != nil {
		h.close()
		return nil, err
	}

	c.handle = h
	log.Info("camera acquired", "device", c.cfg.Device, "width", c.cfg.Width, "height", c.cfg.Height, "fps", c.cfg.Framerate)
	return h, nil
}

// Release closes the device. Safe to call repeatedly and before Acquire.
func (c *Camera) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil {
		return nil
	}
	err := c.handle.close()
	c.handle = nil
	log.Info("camera released", "device", c.cfg.Device)
	return err
}

type cameraHandle struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	warmed bool
	closed bool
}

func (h *cameraHandle) warmup(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if h.cap.Read(&h.mat) && !h.mat.Empty() {
			h.warmed = true
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("%w: no frame within %s", ErrDeviceUnavailable, timeout)
}

// Read grabs the current frame and converts it to an image.
func (h *cameraHandle) Read() (image.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrReleased
	}
	if !h.cap.Read(&h.mat) || h.mat.Empty() {
		return nil, ErrNoFrame
	}
	img, err := h.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("capture: convert frame: %w", err)
	}
	return img, nil
}

// Ready reports whether the device is open and has produced a frame.
func (h *cameraHandle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed && h.warmed && h.cap.IsOpened()
}

func (h *cameraHandle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.mat.Close()
	return h.cap.Close()
}

var _ Source = (*Camera)(nil)
