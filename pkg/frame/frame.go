// Package frame defines the frame types flowing through the capture pipeline.
package frame

import "time"

// Keypoint is a named anatomical landmark produced by pose inference.
// X and Y are normalized to [0, 1] relative to the frame; Z is an optional
// depth estimate (0 when the model is 2-D only).
type Keypoint struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Frame is one raw camera sample. Data is JPEG-encoded.
//
// A Frame is owned by the capture loop until it is handed to the inference
// stage; after hand-off it must not be mutated.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Data      []byte
	Width     int
	Height    int
}

// Annotated is a Frame augmented with the inference overlay and keypoints.
// Immutable once produced.
type Annotated struct {
	Seq       uint64
	Timestamp time.Time

	// Data holds the overlay JPEG, or the raw frame JPEG when inference
	// degraded for this frame.
	Data      []byte
	Width     int
	Height    int
	Keypoints []Keypoint

	// Feedback carries optional coaching hints from an exercise annotator.
	Feedback []string

	// Degraded is set when inference failed and the raw frame was forwarded
	// without an overlay.
	Degraded bool
}

// NewDegraded wraps a raw frame as an Annotated frame with no overlay.
// Used when inference fails: delivery must still advance to this frame.
func NewDegraded(f *Frame) *Annotated {
	return &Annotated{
		Seq:       f.Seq,
		Timestamp: f.Timestamp,
		Data:      f.Data,
		Width:     f.Width,
		Height:    f.Height,
		Degraded:  true,
	}
}
