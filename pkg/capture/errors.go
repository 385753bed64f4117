package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Sentinel errors for the capture package.
var (
	// ErrPermissionDenied indicates the device exists but access was refused.
	ErrPermissionDenied = errors.New("capture: camera permission denied")

	// ErrDeviceUnavailable indicates no usable camera device was found.
	ErrDeviceUnavailable = errors.New("capture: camera device unavailable")

	// ErrAlreadyAcquired indicates Acquire was called on a live source.
	ErrAlreadyAcquired = errors.New("capture: source already acquired")

	// ErrReleased indicates a read on a handle whose source was released.
	ErrReleased = errors.New("capture: source released")

	// ErrNoFrame indicates the device produced no frame for this read.
	ErrNoFrame = errors.New("capture: no frame available")
)

// classifyOpen maps a device open failure onto the permission/availability
// split by inspecting the device node.
func classifyOpen(devicePath string, cause error) error {
	if _, err := os.Stat(devicePath); err == nil {
		if errors.Is(cause, fs.ErrPermission) {
			return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, devicePath, cause)
		}
		// Node exists but OpenCV could not open it; treat as a permission
		// problem only when the probe confirms it, otherwise unavailable.
		if f, err := os.Open(devicePath); err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return fmt.Errorf("%w: %s", ErrPermissionDenied, devicePath)
			}
		} else {
			f.Close()
		}
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, devicePath, cause)
	}
	return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, devicePath, cause)
}

// IsPermissionDenied returns true for permission failures.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsDeviceUnavailable returns true for missing or busy devices.
func IsDeviceUnavailable(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable)
}
