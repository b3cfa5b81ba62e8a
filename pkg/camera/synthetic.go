package camera

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
)

// Synthetic generates frames without camera hardware. Used by the dev mode
// of the daemon and by pipeline tests: each frame is a small gradient that
// shifts per read, so consecutive frames differ and encode to valid JPEG.
type Synthetic struct {
	mu     sync.Mutex
	width  int
	height int
	tick   int
	closed bool

	// FailAfter, when > 0, makes every read past that count fail. Lets
	// tests exercise the bounded consecutive-failure policy.
	FailAfter int

	failErr error
}

// NewSynthetic returns a synthetic source producing width x height frames.
func NewSynthetic(width, height int) *Synthetic {
	if width <= 0 {
		width = 64
	}
	if height <= 0 {
		height = 48
	}
	return &Synthetic{width: width, height: height}
}

// ReadFrame produces the next synthetic frame.
func (s *Synthetic) ReadFrame() ([]byte, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, 0, 0, ErrClosed
	}
	s.tick++
	if s.FailAfter > 0 && s.tick > s.FailAfter {
		if s.failErr == nil {
			s.failErr = errSyntheticFailure
		}
		return nil, 0, 0, s.failErr
	}

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + s.tick) % 256),
				G: uint8((y + s.tick*2) % 256),
				B: uint8(s.tick % 256),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), s.width, s.height, nil
}

// Frames returns how many reads have succeeded.
func (s *Synthetic) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Close marks the source closed; further reads return ErrClosed.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var errSyntheticFailure = &syntheticError{}

type syntheticError struct{}

func (*syntheticError) Error() string { return "synthetic camera failure" }
