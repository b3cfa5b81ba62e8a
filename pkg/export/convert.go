package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/posekit/posecam/internal/log"
)

// Outputs smaller than this are treated as encoder failures even on a zero
// exit code; ffmpeg can emit a valid-looking header before dying.
const minOutputBytes = 1024

// convert invokes the external encoder to normalize videoPath to the target
// frame rate, writing outPath. The deadline scales with input size.
//
// Temp files from a failed conversion are left in place for inspection;
// nothing is auto-deleted unless the conversion itself succeeded.
func (s *Stage) convert(ctx context.Context, videoPath, outPath string) (*ConversionResult, error) {
	ffmpeg, err := exec.LookPath(s.opts.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, s.opts.FFmpegPath)
	}

	in, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	deadline := s.opts.Timeout + time.Duration(in.Size()/(1<<20))*s.opts.TimeoutPerMB
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	args := []string{"-i", videoPath}
	switch s.opts.Method {
	case MethodBlend:
		args = append(args, "-vf",
			fmt.Sprintf("minterpolate=fps=%d:mi_mode=blend", s.opts.TargetFPS))
	case MethodDuplicate:
		args = append(args, "-vf", fmt.Sprintf("fps=%d", s.opts.TargetFPS))
	default:
		args = append(args, "-r", strconv.Itoa(s.opts.TargetFPS))
	}
	args = append(args, "-y", outPath)

	log.Info("starting conversion",
		"input", videoPath,
		"method", string(s.opts.Method),
		"target_fps", s.opts.TargetFPS,
		"deadline", deadline.String(),
	)

	start := time.Now()
	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %s", ErrConversionTimeout, deadline)
	}
	if err != nil {
		return nil, fmt.Errorf("encoder error: %w, output: %s", err, tail(output, 400))
	}

	out, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("encoder exited 0 but produced no output: %w", err)
	}
	if out.Size() < minOutputBytes {
		return nil, fmt.Errorf("encoder output too small (%d bytes)", out.Size())
	}

	res := &ConversionResult{
		Success:     true,
		OutputPath:  outPath,
		InputBytes:  in.Size(),
		OutputBytes: out.Size(),
	}
	if out.Size() > 0 {
		res.CompressionRatio = float64(in.Size()) / float64(out.Size())
	}

	log.Info("conversion finished",
		"output", outPath,
		"input_bytes", res.InputBytes,
		"output_bytes", res.OutputBytes,
		"elapsed", time.Since(start).String(),
	)
	return res, nil
}

// tail returns the last n bytes of encoder output for error messages.
func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
