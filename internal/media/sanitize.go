package media

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// CanonicalMedia is the constant-frame-rate, constant-sample-rate
// intermediate every downstream stage works against. All segment boundaries,
// subtitle cues and music cue points are frame counts on this timeline, so
// the frame-to-time mapping stays exact for the whole duration.
type CanonicalMedia struct {
	Path           string
	FrameRate      int
	SampleRate     int
	DurationFrames int64
	Width          int
	Height         int
}

// DurationSeconds converts the frame count back to seconds.
func (c *CanonicalMedia) DurationSeconds() float64 {
	return float64(c.DurationFrames) / float64(c.FrameRate)
}

// FrameAt rounds a source-time instant to the nearest canonical frame.
func (c *CanonicalMedia) FrameAt(seconds float64) int64 {
	f := int64(math.Round(seconds * float64(c.FrameRate)))
	if f < 0 {
		f = 0
	}
	if f > c.DurationFrames {
		f = c.DurationFrames
	}
	return f
}

// SecondsAt converts a canonical frame back to seconds.
func (c *CanonicalMedia) SecondsAt(frame int64) float64 {
	return float64(frame) / float64(c.FrameRate)
}

// SanitizeOptions controls the canonical re-encode.
type SanitizeOptions struct {
	FrameRate  int
	SampleRate int
	Preset     string
	CRF        int
	GOPSeconds int
}

// Sanitizer re-encodes arbitrary source media into the canonical
// intermediate. Variable-frame-rate screen captures carry timestamp drift
// that would shift every downstream cut, so this runs exactly once per file.
type Sanitizer struct {
	runner     *Runner
	scratchDir string
	opts       SanitizeOptions
}

// NewSanitizer creates a sanitizer writing intermediates under scratchDir.
func NewSanitizer(runner *Runner, scratchDir string, opts SanitizeOptions) *Sanitizer {
	if opts.Preset == "" {
		opts.Preset = "fast"
	}
	if opts.CRF == 0 {
		opts.CRF = 20
	}
	if opts.GOPSeconds == 0 {
		opts.GOPSeconds = 2
	}
	return &Sanitizer{runner: runner, scratchDir: scratchDir, opts: opts}
}

// Sanitize converts sourcePath to the canonical intermediate. The result is
// cached: if a previous run left a non-trivial canonical file in scratch it
// is probed and reused.
func (s *Sanitizer) Sanitize(ctx context.Context, sourcePath string) (*CanonicalMedia, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, types.NewStageError(types.StageSanitize, fmt.Errorf("source unreadable: %w", err))
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	outPath := filepath.Join(s.scratchDir, base+"_canonical.mp4")

	if fi, err := os.Stat(outPath); err == nil && fi.Size() > 1024 {
		log.Printf("Using cached canonical media: %s", outPath)
		return s.finalize(ctx, outPath)
	}

	log.Printf("Sanitizing %s -> %dfps/%dHz", sourcePath, s.opts.FrameRate, s.opts.SampleRate)

	// Regular keyframes (no scene detection) so every cut lands on a clean
	// boundary.
	gop := s.opts.FrameRate * s.opts.GOPSeconds
	_, err := s.runner.RunFFmpeg(ctx,
		"-y", "-i", sourcePath,
		"-r", fmt.Sprintf("%d", s.opts.FrameRate),
		"-c:v", "libx264",
		"-preset", s.opts.Preset,
		"-crf", fmt.Sprintf("%d", s.opts.CRF),
		"-g", fmt.Sprintf("%d", gop),
		"-keyint_min", fmt.Sprintf("%d", gop),
		"-sc_threshold", "0",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", fmt.Sprintf("%d", s.opts.SampleRate),
		"-ac", "2",
		"-b:a", "192k",
		outPath,
	)
	if err != nil {
		os.Remove(outPath)
		return nil, types.NewStageError(types.StageSanitize, err)
	}

	return s.finalize(ctx, outPath)
}

func (s *Sanitizer) finalize(ctx context.Context, outPath string) (*CanonicalMedia, error) {
	info, err := s.runner.Probe(ctx, outPath)
	if err != nil {
		return nil, types.NewStageError(types.StageSanitize, err)
	}
	if info.Duration <= 0 || !info.HasAudio {
		return nil, types.NewStageError(types.StageSanitize,
			fmt.Errorf("canonical media %s is empty or has no audio", outPath))
	}
	return &CanonicalMedia{
		Path:           outPath,
		FrameRate:      s.opts.FrameRate,
		SampleRate:     s.opts.SampleRate,
		DurationFrames: int64(math.Round(info.Duration * float64(s.opts.FrameRate))),
		Width:          info.Width,
		Height:         info.Height,
	}, nil
}

// ExtractAudio writes a mono WAV slice of the canonical media for analysis
// or transcription. start/duration are in seconds; duration <= 0 means the
// whole file.
func (s *Sanitizer) ExtractAudio(ctx context.Context, media *CanonicalMedia, outPath string, start, duration float64, sampleRate int) error {
	args := []string{"-y"}
	if start > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", start))
	}
	args = append(args, "-i", media.Path)
	if duration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", duration))
	}
	args = append(args,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", "1",
		outPath,
	)
	if _, err := s.runner.RunFFmpeg(ctx, args...); err != nil {
		os.Remove(outPath)
		return err
	}
	return nil
}
