package inference

import (
	"math"
	"strings"
	"testing"

	"github.com/posekit/posecam/pkg/frame"
)

// stubAnnotator returns canned keypoints for testing the exercise layer.
type stubAnnotator struct {
	kps  []frame.Keypoint
	err  error
	name string
}

func (s *stubAnnotator) Annotate(f *frame.Frame) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Result{Overlay: f.Data, Keypoints: s.kps}, nil
}

func (s *stubAnnotator) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}
func (s *stubAnnotator) Close() error { return nil }

// legPose builds hip/knee/ankle keypoints producing the given knee angle.
// Hip directly above knee; ankle placed to form the angle.
func legPose(kneeAngleDeg float64) []frame.Keypoint {
	rad := kneeAngleDeg * math.Pi / 180
	return []frame.Keypoint{
		{Name: "left_hip", X: 0.5, Y: 0.3, Confidence: 0.9},
		{Name: "left_knee", X: 0.5, Y: 0.5, Confidence: 0.9},
		{Name: "left_ankle",
			X:          0.5 + 0.2*math.Sin(rad),
			Y:          0.5 - 0.2*math.Cos(rad),
			Confidence: 0.9},
		{Name: "left_shoulder", X: 0.5, Y: 0.1, Confidence: 0.9},
	}
}

func TestJointAngle(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
	}{
		{"straight leg", 180},
		{"right angle", 90},
		{"deep squat", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			byName := map[string]frame.Keypoint{}
			for _, kp := range legPose(tt.angle) {
				byName[kp.Name] = kp
			}
			got, ok := jointAngle(byName, "left_hip", "left_knee", "left_ankle")
			if !ok {
				t.Fatal("expected angle")
			}
			if diff := got - tt.angle; diff > 1 || diff < -1 {
				t.Errorf("angle: got %.1f, want %.1f", got, tt.angle)
			}
		})
	}
}

func TestJointAngleMissingKeypoint(t *testing.T) {
	byName := map[string]frame.Keypoint{
		"left_hip": {Name: "left_hip", X: 0.5, Y: 0.3},
	}
	if _, ok := jointAngle(byName, "left_hip", "left_knee", "left_ankle"); ok {
		t.Error("expected ok=false with missing keypoints")
	}
}

func TestExerciseRepCounting(t *testing.T) {
	ex := NewExerciseAnnotator(&stubAnnotator{})
	f := &frame.Frame{Seq: 1, Data: []byte{0xff, 0xd8}}

	// upright -> deep -> upright = one rep
	angles := []float64{170, 90, 170, 90, 170}
	for _, a := range angles {
		ex.base = &stubAnnotator{kps: legPose(a)}
		if _, err := ex.Annotate(f); err != nil {
			t.Fatalf("Annotate: %v", err)
		}
	}

	if ex.Reps() != 2 {
		t.Errorf("reps: got %d, want 2", ex.Reps())
	}
}

func TestExerciseFeedbackDepth(t *testing.T) {
	ex := NewExerciseAnnotator(&stubAnnotator{kps: legPose(120)})
	res, err := ex.Annotate(&frame.Frame{Seq: 1, Data: []byte{0xff, 0xd8}})
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	joined := strings.Join(res.Feedback, "; ")
	if !strings.Contains(joined, "go lower") {
		t.Errorf("expected depth feedback at 120 degrees, got %q", joined)
	}
}

func TestExerciseNoKeypointsPassesThrough(t *testing.T) {
	ex := NewExerciseAnnotator(&stubAnnotator{})
	res, err := ex.Annotate(&frame.Frame{Seq: 1, Data: []byte{0xff, 0xd8}})
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Feedback) != 0 {
		t.Errorf("expected no feedback without keypoints, got %v", res.Feedback)
	}
}

func TestSelectFallsBackOnUnknown(t *testing.T) {
	base := &stubAnnotator{name: "base"}

	a, err := Select("no-such-annotator", base)
	if err == nil {
		t.Error("expected error for unknown annotator name")
	}
	if a.Name() != "base" {
		t.Errorf("expected fallback to base, got %s", a.Name())
	}

	a, err = Select(AnnotatorExercise, base)
	if err != nil {
		t.Fatalf("Select exercise: %v", err)
	}
	if a.Name() != AnnotatorExercise {
		t.Errorf("expected exercise annotator, got %s", a.Name())
	}
}
