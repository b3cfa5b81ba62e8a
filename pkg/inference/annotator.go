// Package inference adapts pose-estimation backends to the capture pipeline.
package inference

import (
	"fmt"

	"github.com/posekit/posecam/pkg/frame"
)

// Result is the output of one inference call: an overlay JPEG plus the
// detected keypoints. Feedback is only populated by coaching annotators.
type Result struct {
	Overlay   []byte
	Keypoints []frame.Keypoint
	Feedback  []string
}

// Annotator is the inference capability consumed by the capture pipeline.
// Implementations carry no shared state across calls beyond their model;
// a failed call for one frame must not poison the next.
type Annotator interface {
	// Annotate runs inference on one frame and returns the overlay result.
	Annotate(f *frame.Frame) (*Result, error)

	// Name identifies the annotator in status reports.
	Name() string

	// Close releases model resources.
	Close() error
}

// Passthrough forwards frames unmodified. It is the fallback when no pose
// model is available, keeping the delivery path alive without overlays.
type Passthrough struct{}

func (Passthrough) Annotate(f *frame.Frame) (*Result, error) {
	return &Result{Overlay: f.Data}, nil
}

func (Passthrough) Name() string { return "passthrough" }
func (Passthrough) Close() error { return nil }

// Annotator names selectable at session start.
const (
	AnnotatorPose     = "pose"
	AnnotatorExercise = "exercise"
)

// Select returns the annotator for name, layered on base. Unknown or empty
// names fall back to base so a missing capability degrades gracefully
// instead of failing session start.
func Select(name string, base Annotator) (Annotator, error) {
	switch name {
	case "", AnnotatorPose:
		return base, nil
	case AnnotatorExercise:
		return NewExerciseAnnotator(base), nil
	default:
		return base, fmt.Errorf("unknown annotator %q, using %s", name, base.Name())
	}
}
