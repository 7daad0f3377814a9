package transcription

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Karmadibsa/VibeSlicer/internal/media"
	"github.com/Karmadibsa/VibeSlicer/internal/segment"
	"github.com/Karmadibsa/VibeSlicer/internal/timeline"
)

// sliceSampleRate is what speech models expect; the canonical 44.1kHz track
// is downsampled per slice.
const sliceSampleRate = 16000

// AudioSlicer extracts a mono WAV span of the canonical media.
type AudioSlicer interface {
	ExtractAudio(ctx context.Context, m *media.CanonicalMedia, outPath string, start, duration float64, sampleRate int) error
}

// Warning records a non-fatal per-segment transcription failure. The
// segment's text stays empty; editing and rendering continue without it.
type Warning struct {
	SegmentID string
	Err       error
}

func (w Warning) String() string {
	return fmt.Sprintf("segment %s: %v", w.SegmentID, w.Err)
}

// Aligner slices the canonical audio per active speech segment, submits each
// slice to the backend, and writes the recognized text back onto the
// timeline.
type Aligner struct {
	backend  Backend
	slicer   AudioSlicer
	scratch  string
	language string
}

// NewAligner wires a backend and an audio slicer together.
func NewAligner(backend Backend, slicer AudioSlicer, scratchDir, language string) *Aligner {
	return &Aligner{backend: backend, slicer: slicer, scratch: scratchDir, language: language}
}

// Align transcribes every active speech segment in timeline order. Progress
// is reported after each segment. Per-segment failures are collected as
// warnings; only cancellation aborts the whole pass.
func (a *Aligner) Align(ctx context.Context, cm *media.CanonicalMedia, tl *timeline.Timeline, progress func(done, total int)) ([]Warning, error) {
	var targets []segment.Segment
	for _, s := range tl.Segments() {
		if s.Active && s.Kind == segment.KindSpeech {
			targets = append(targets, s)
		}
	}

	// Progress counts attempted segments, failed or not, so a consumer
	// always sees done reach total.
	report := func(done int) {
		if progress != nil {
			progress(done, len(targets))
		}
	}

	var warnings []Warning
	for i, s := range targets {
		if err := ctx.Err(); err != nil {
			return warnings, err
		}

		slicePath := filepath.Join(a.scratch, fmt.Sprintf("slice_%s.wav", s.ID))
		start := s.StartSeconds(cm.FrameRate)
		dur := s.Seconds(cm.FrameRate)

		if err := a.slicer.ExtractAudio(ctx, cm, slicePath, start, dur, sliceSampleRate); err != nil {
			if ctx.Err() != nil {
				return warnings, ctx.Err()
			}
			warnings = append(warnings, Warning{SegmentID: s.ID, Err: fmt.Errorf("extract slice: %w", err)})
			report(i + 1)
			continue
		}

		res, err := a.backend.Transcribe(ctx, slicePath, a.language)
		os.Remove(slicePath)
		if err != nil {
			if ctx.Err() != nil {
				return warnings, ctx.Err()
			}
			log.Printf("WARNING: transcription failed for segment %s: %v", s.ID, err)
			warnings = append(warnings, Warning{SegmentID: s.ID, Err: err})
			report(i + 1)
			continue
		}

		if err := tl.SetText(s.ID, res.Text); err != nil {
			// Segment was edited away mid-pass (e.g. merged); not fatal.
			warnings = append(warnings, Warning{SegmentID: s.ID, Err: err})
		}
		report(i + 1)
	}
	return warnings, nil
}
