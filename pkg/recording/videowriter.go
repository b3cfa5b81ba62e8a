package recording

import (
	"fmt"

	"gocv.io/x/gocv"
)

// videoWriter wraps gocv.VideoWriter as a FrameWriter. Frames arrive JPEG
// encoded and are decoded back to Mats for the container muxer.
type videoWriter struct {
	w *gocv.VideoWriter
}

// OpenVideoWriter is the production WriterFactory: it opens an mp4 writer
// at the given rate and dimensions.
func OpenVideoWriter(path string, fps float64, width, height int) (FrameWriter, error) {
	w, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("video writer failed to open %s", path)
	}
	return &videoWriter{w: w}, nil
}

func (v *videoWriter) Write(jpeg []byte) error {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return fmt.Errorf("empty frame")
	}
	return v.w.Write(img)
}

func (v *videoWriter) Close() error {
	return v.w.Close()
}
