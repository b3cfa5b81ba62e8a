// Package export runs the post-recording pipeline: frame-rate normalization
// through an external encoder, then upload to the artifact store.
package export

import (
	"errors"
	"time"
)

// Method selects how the encoder normalizes the frame rate.
// Duplication favors speed, blending favors smoothness.
type Method string

const (
	MethodDefault   Method = ""
	MethodDuplicate Method = "duplicate"
	MethodBlend     Method = "blend"
)

// Failure kinds surfaced through status. Terminal for the job; exports are
// never retried automatically.
const (
	FailureConversion = "conversion_failure"
	FailureTimeout    = "conversion_timeout"
	FailureToolMiss   = "tool_missing"
	FailureUpload     = "upload_failure"
)

var (
	// ErrToolMissing reports an absent encoder executable, distinct from a
	// conversion that ran and failed.
	ErrToolMissing = errors.New("encoder executable not found")

	// ErrConversionTimeout reports an encoder that exceeded its deadline.
	ErrConversionTimeout = errors.New("conversion timed out")
)

// Options configures the export stage.
type Options struct {
	// FFmpegPath is the encoder binary; "ffmpeg" resolves via PATH.
	FFmpegPath string

	// TargetFPS is the normalized output frame rate.
	TargetFPS int

	// Method selects duplication or blending.
	Method Method

	// Timeout is the base conversion deadline. The effective deadline
	// grows with input size (TimeoutPerMB).
	Timeout time.Duration

	// TimeoutPerMB extends the deadline per megabyte of input.
	TimeoutPerMB time.Duration
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		FFmpegPath:   "ffmpeg",
		TargetFPS:    30,
		Method:       MethodDuplicate,
		Timeout:      300 * time.Second,
		TimeoutPerMB: 2 * time.Second,
	}
}

// ConversionResult describes one finished conversion attempt.
type ConversionResult struct {
	Success          bool    `json:"success"`
	OutputPath       string  `json:"output_path,omitempty"`
	InputBytes       int64   `json:"input_bytes"`
	OutputBytes      int64   `json:"output_bytes,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
	FailureReason    string  `json:"failure_reason,omitempty"`
}
