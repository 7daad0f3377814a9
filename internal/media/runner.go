package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner invokes the external ffmpeg/ffprobe binaries. All pipeline timing
// flows through these two tools, so their paths are configured in one place.
type Runner struct {
	FFmpegBin  string
	FFprobeBin string
}

// NewRunner returns a runner for the given binaries, defaulting to the ones
// found on PATH.
func NewRunner(ffmpegBin, ffprobeBin string) *Runner {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &Runner{FFmpegBin: ffmpegBin, FFprobeBin: ffprobeBin}
}

// CheckFFmpeg verifies the ffmpeg binary is runnable.
func (r *Runner) CheckFFmpeg(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.FFmpegBin, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg not available at %q: %w", r.FFmpegBin, err)
	}
	return nil
}

// RunFFmpeg executes ffmpeg with the given arguments and returns captured
// stderr. ffmpeg writes filter logs (silencedetect timestamps, loudnorm
// stats) to stderr, so callers parse it even on success.
func (r *Runner) RunFFmpeg(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.FFmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stderr.String(), ctx.Err()
		}
		return stderr.String(), fmt.Errorf("ffmpeg %s: %w\n%s", firstArgs(args), err, tail(stderr.String(), 800))
	}
	return stderr.String(), nil
}

// RunFFprobe executes ffprobe and returns captured stdout.
func (r *Runner) RunFFprobe(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.FFprobeBin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe: %w\n%s", err, tail(stderr.String(), 400))
	}
	return stdout.Bytes(), nil
}

func firstArgs(args []string) string {
	if len(args) > 4 {
		args = args[:4]
	}
	return strings.Join(args, " ")
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
