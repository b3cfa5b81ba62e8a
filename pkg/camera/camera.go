// Package camera provides frame sources for the capture pipeline.
package camera

import "errors"

// ErrClosed is returned by ReadFrame after a source has been closed.
var ErrClosed = errors.New("camera: source closed")

// Source delivers JPEG-encoded frames from a camera device.
//
// A Source is owned by exactly one capture loop and is not safe for
// concurrent use. ReadFrame blocks until the next frame is available from
// the hardware.
type Source interface {
	// ReadFrame returns the next frame as JPEG bytes with its dimensions.
	ReadFrame() (data []byte, width, height int, err error)

	// Close releases the device.
	Close() error
}
