package camera

import (
	"bytes"
	"errors"
	"image/jpeg"
	"testing"
)

func TestSyntheticProducesValidJPEG(t *testing.T) {
	s := NewSynthetic(64, 48)
	defer s.Close()

	data, w, h, err := s.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("dimensions: got %dx%d, want 64x48", w, h)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("frame is not valid JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("decoded width %d, want 64", img.Bounds().Dx())
	}
}

func TestSyntheticFramesDiffer(t *testing.T) {
	s := NewSynthetic(32, 32)
	defer s.Close()

	a, _, _, _ := s.ReadFrame()
	b, _, _, _ := s.ReadFrame()
	if bytes.Equal(a, b) {
		t.Error("consecutive synthetic frames should differ")
	}
}

func TestSyntheticFailAfter(t *testing.T) {
	s := NewSynthetic(32, 32)
	s.FailAfter = 2

	for i := 0; i < 2; i++ {
		if _, _, _, err := s.ReadFrame(); err != nil {
			t.Fatalf("read %d: unexpected error %v", i, err)
		}
	}
	if _, _, _, err := s.ReadFrame(); err == nil {
		t.Fatal("expected failure after FailAfter reads")
	}
}

func TestSyntheticClosed(t *testing.T) {
	s := NewSynthetic(32, 32)
	s.Close()

	_, _, _, err := s.ReadFrame()
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
