package inference

import (
	"fmt"
	"math"

	"github.com/posekit/posecam/pkg/frame"
)

// Squat depth thresholds on the knee angle (degrees).
const (
	squatDeepAngle    = 100.0
	squatShallowAngle = 150.0
)

// ExerciseAnnotator layers coaching feedback on top of a pose annotator.
// It shares the base annotator's contract, so a session can select it at
// start time and the pipeline needs no special handling; when the base
// produces no keypoints it simply forwards the overlay unchanged.
type ExerciseAnnotator struct {
	base Annotator

	// Rep counting: a rep completes on the deep -> upright transition.
	down bool
	reps int
}

// NewExerciseAnnotator wraps base with exercise feedback.
func NewExerciseAnnotator(base Annotator) *ExerciseAnnotator {
	return &ExerciseAnnotator{base: base}
}

func (e *ExerciseAnnotator) Name() string { return AnnotatorExercise }

// Annotate runs the base pose inference and appends coaching feedback
// derived from joint angles.
func (e *ExerciseAnnotator) Annotate(f *frame.Frame) (*Result, error) {
	res, err := e.base.Annotate(f)
	if err != nil {
		return nil, err
	}
	if len(res.Keypoints) == 0 {
		return res, nil
	}

	res.Feedback = e.evaluate(res.Keypoints)
	return res, nil
}

// evaluate derives squat-form feedback from the keypoint set.
func (e *ExerciseAnnotator) evaluate(kps []frame.Keypoint) []string {
	byName := make(map[string]frame.Keypoint, len(kps))
	for _, kp := range kps {
		byName[kp.Name] = kp
	}

	var feedback []string

	knee, ok := jointAngle(byName, "left_hip", "left_knee", "left_ankle")
	if !ok {
		knee, ok = jointAngle(byName, "right_hip", "right_knee", "right_ankle")
	}
	if ok {
		switch {
		case knee < squatDeepAngle:
			if !e.down {
				e.down = true
			}
			feedback = append(feedback, "depth: good")
		case knee > squatShallowAngle:
			if e.down {
				e.down = false
				e.reps++
			}
		default:
			feedback = append(feedback, "depth: go lower")
		}
	}

	if back, ok := jointAngle(byName, "left_shoulder", "left_hip", "left_knee"); ok && back < 45 {
		feedback = append(feedback, "keep chest up")
	}

	feedback = append(feedback, fmt.Sprintf("reps: %d", e.reps))
	return feedback
}

// Reps returns the number of completed repetitions this session.
func (e *ExerciseAnnotator) Reps() int { return e.reps }

// Close releases the base annotator.
func (e *ExerciseAnnotator) Close() error { return e.base.Close() }

// jointAngle returns the angle at joint b formed by segments b-a and b-c,
// in degrees. ok is false when any of the three keypoints is missing.
func jointAngle(byName map[string]frame.Keypoint, a, b, c string) (float64, bool) {
	ka, aok := byName[a]
	kb, bok := byName[b]
	kc, cok := byName[c]
	if !aok || !bok || !cok {
		return 0, false
	}

	v1x, v1y := ka.X-kb.X, ka.Y-kb.Y
	v2x, v2y := kc.X-kb.X, kc.Y-kb.Y

	n1 := math.Hypot(v1x, v1y)
	n2 := math.Hypot(v2x, v2y)
	if n1 == 0 || n2 == 0 {
		return 0, false
	}

	cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}
