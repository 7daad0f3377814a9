package segment

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Karmadibsa/VibeSlicer/internal/media"
)

var (
	reSilenceStart = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	reSilenceEnd   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// FFmpegDetector runs ffmpeg's silencedetect filter directly on the
// canonical media and parses the timestamps it logs to stderr.
type FFmpegDetector struct {
	runner Runner
}

// Runner is the subset of media.Runner the detector needs.
type Runner interface {
	RunFFmpeg(ctx context.Context, args ...string) (string, error)
}

var _ Runner = (*media.Runner)(nil)

// NewFFmpegDetector creates a silencedetect-based detector.
func NewFFmpegDetector(runner Runner) *FFmpegDetector {
	return &FFmpegDetector{runner: runner}
}

// DetectSilence decodes audioPath through silencedetect and returns the
// silence spans it reports. MinSilence is enforced by the filter itself via
// its d= parameter.
func (d *FFmpegDetector) DetectSilence(ctx context.Context, audioPath string, opts Options) ([]Span, error) {
	filter := fmt.Sprintf("silencedetect=noise=%gdB:d=%g", opts.ThresholdDb, opts.MinSilence)
	stderr, err := d.runner.RunFFmpeg(ctx,
		"-i", audioPath,
		"-af", filter,
		"-f", "null", "-",
	)
	if err != nil {
		return nil, fmt.Errorf("silencedetect: %w", err)
	}
	return parseSilenceLog(stderr), nil
}

// parseSilenceLog extracts silence spans from ffmpeg stderr lines such as
//
//	[silencedetect @ 0x...] silence_start: 12.345
//	[silencedetect @ 0x...] silence_end: 14.567 | silence_duration: 2.222
//
// A trailing silence_start with no matching silence_end means the file ends
// in silence; the caller closes that span at the media duration, so it is
// returned with End = -1.
func parseSilenceLog(stderr string) []Span {
	var starts, ends []float64
	for _, line := range strings.Split(stderr, "\n") {
		if m := reSilenceStart.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				starts = append(starts, v)
			}
		} else if m := reSilenceEnd.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				ends = append(ends, v)
			}
		}
	}

	spans := make([]Span, 0, len(starts))
	for i, start := range starts {
		if start < 0 {
			start = 0
		}
		end := -1.0
		if i < len(ends) {
			end = ends[i]
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}
