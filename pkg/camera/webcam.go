package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// WebcamConfig holds capture device settings.
type WebcamConfig struct {
	DeviceID    int
	Width       int
	Height      int
	JPEGQuality int
}

// DefaultWebcamConfig returns production defaults (640x480 keeps inference
// latency within one frame interval on Pi-class hardware).
func DefaultWebcamConfig() WebcamConfig {
	return WebcamConfig{
		DeviceID:    0,
		Width:       640,
		Height:      480,
		JPEGQuality: 80,
	}
}

// Webcam reads frames from a local V4L2/AVFoundation device via OpenCV.
type Webcam struct {
	cap     *gocv.VideoCapture
	mat     gocv.Mat
	quality int
	closed  bool
}

// OpenWebcam opens the capture device and applies the requested resolution.
func OpenWebcam(cfg WebcamConfig) (*Webcam, error) {
	cap, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.DeviceID, err)
	}
	if cfg.Width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	return &Webcam{
		cap:     cap,
		mat:     gocv.NewMat(),
		quality: cfg.JPEGQuality,
	}, nil
}

// ReadFrame grabs the next frame and encodes it as JPEG.
func (w *Webcam) ReadFrame() ([]byte, int, int, error) {
	if w.closed {
		return nil, 0, 0, ErrClosed
	}
	if ok := w.cap.Read(&w.mat); !ok {
		return nil, 0, 0, fmt.Errorf("camera read failed")
	}
	if w.mat.Empty() {
		return nil, 0, 0, fmt.Errorf("camera returned empty frame")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.mat,
		[]int{gocv.IMWriteJpegQuality, w.quality})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// Copy out: the native buffer is reused on the next read.
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	return data, w.mat.Cols(), w.mat.Rows(), nil
}

// Close releases the device handle.
func (w *Webcam) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.mat.Close()
	return w.cap.Close()
}
