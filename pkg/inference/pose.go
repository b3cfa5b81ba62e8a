package inference

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/posekit/posecam/internal/log"
	"github.com/posekit/posecam/pkg/frame"
)

// COCO keypoint order produced by YOLOv8-pose models.
var keypointNames = [17]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

// Skeleton edges drawn between keypoint indices.
var skeleton = [][2]int{
	{5, 7}, {7, 9}, {6, 8}, {8, 10}, // arms
	{5, 6}, {5, 11}, {6, 12}, {11, 12}, // torso
	{11, 13}, {13, 15}, {12, 14}, {14, 16}, // legs
	{0, 5}, {0, 6}, // head to shoulders
}

// PoseConfig holds pose model configuration.
type PoseConfig struct {
	ModelPath        string
	ConfidenceThresh float32
	KeypointThresh   float32
	InputWidth       int
	InputHeight      int
}

// DefaultPoseConfig returns production defaults for YOLOv8n-pose.
func DefaultPoseConfig() PoseConfig {
	return PoseConfig{
		ModelPath:        "models/yolov8n-pose.onnx",
		ConfidenceThresh: 0.5,
		KeypointThresh:   0.3,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// PoseAnnotator runs a YOLOv8-pose ONNX model and draws the detected
// skeleton onto each frame.
type PoseAnnotator struct {
	net       gocv.Net
	config    PoseConfig
	mu        sync.Mutex
	inputSize image.Point
}

// NewPose loads the pose model. A missing model file is reported as a
// distinct error so the caller can fall back to the passthrough annotator.
func NewPose(cfg PoseConfig) (*PoseAnnotator, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("pose model not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load pose model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &PoseAnnotator{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

func (p *PoseAnnotator) Name() string { return AnnotatorPose }

// Annotate runs the model on one frame and returns the skeleton overlay.
func (p *PoseAnnotator) Annotate(f *frame.Frame) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	img, err := gocv.IMDecode(f.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/255.0, p.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	output := p.net.Forward("")
	defer output.Close()

	keypoints := p.parsePoseOutput(output, imgW, imgH)
	if len(keypoints) > 0 {
		log.Debug("pose keypoints", "count", len(keypoints))
	}

	p.drawSkeleton(&img, keypoints, imgW, imgH)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	defer buf.Close()

	overlay := make([]byte, len(buf.GetBytes()))
	copy(overlay, buf.GetBytes())

	return &Result{Overlay: overlay, Keypoints: keypoints}, nil
}

// parsePoseOutput parses the YOLOv8-pose output tensor.
// Output shape: [1, 56, 8400] - 56 = 4 bbox + 1 conf + 17 keypoints x (x, y, conf).
// The highest-confidence detection wins; this is a single-subject pipeline.
func (p *PoseAnnotator) parsePoseOutput(output gocv.Mat, imgW, imgH float32) []frame.Keypoint {
	dims := output.Size()
	if len(dims) != 3 || dims[1] != 56 {
		return nil
	}
	numDet := dims[2]

	reshaped := output.Reshape(1, 56)
	defer reshaped.Close()

	bestConf := p.config.ConfidenceThresh
	bestIdx := -1
	for i := 0; i < numDet; i++ {
		if conf := reshaped.GetFloatAt(4, i); conf > bestConf {
			bestConf = conf
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil
	}

	scaleX := imgW / float32(p.inputSize.X)
	scaleY := imgH / float32(p.inputSize.Y)

	kps := make([]frame.Keypoint, 0, len(keypointNames))
	for k := 0; k < len(keypointNames); k++ {
		x := reshaped.GetFloatAt(5+k*3, bestIdx) * scaleX
		y := reshaped.GetFloatAt(5+k*3+1, bestIdx) * scaleY
		conf := reshaped.GetFloatAt(5+k*3+2, bestIdx)
		if conf < p.config.KeypointThresh {
			continue
		}
		kps = append(kps, frame.Keypoint{
			Name:       keypointNames[k],
			X:          float64(x / imgW),
			Y:          float64(y / imgH),
			Confidence: float64(conf),
		})
	}
	return kps
}

// drawSkeleton renders keypoints and limb edges onto img in place.
func (p *PoseAnnotator) drawSkeleton(img *gocv.Mat, kps []frame.Keypoint, imgW, imgH float32) {
	byName := make(map[string]frame.Keypoint, len(kps))
	for _, kp := range kps {
		byName[kp.Name] = kp
	}

	jointColor := color.RGBA{0, 255, 0, 0}
	boneColor := color.RGBA{0, 200, 255, 0}

	for _, edge := range skeleton {
		a, aok := byName[keypointNames[edge[0]]]
		b, bok := byName[keypointNames[edge[1]]]
		if !aok || !bok {
			continue
		}
		gocv.Line(img,
			image.Pt(int(a.X*float64(imgW)), int(a.Y*float64(imgH))),
			image.Pt(int(b.X*float64(imgW)), int(b.Y*float64(imgH))),
			boneColor, 2)
	}
	for _, kp := range kps {
		gocv.Circle(img, image.Pt(int(kp.X*float64(imgW)), int(kp.Y*float64(imgH))), 4, jointColor, -1)
	}
}

// Close releases the model.
func (p *PoseAnnotator) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.net.Close()
}
