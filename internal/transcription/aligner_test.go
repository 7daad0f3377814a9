package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/Karmadibsa/VibeSlicer/internal/media"
	"github.com/Karmadibsa/VibeSlicer/internal/segment"
	"github.com/Karmadibsa/VibeSlicer/internal/timeline"
)

type fakeSlicer struct{}

func (fakeSlicer) ExtractAudio(_ context.Context, _ *media.CanonicalMedia, outPath string, _, _ float64, _ int) error {
	return os.WriteFile(outPath, []byte("riff"), 0644)
}

type fakeBackend struct {
	calls  int
	failOn int // 1-based call index to fail on, 0 = never
}

func (b *fakeBackend) Transcribe(_ context.Context, _, _ string) (Result, error) {
	b.calls++
	if b.calls == b.failOn {
		return Result{}, errors.New("model exploded")
	}
	return Result{Text: fmt.Sprintf("text %d", b.calls)}, nil
}

func alignerTimeline(t *testing.T) (*timeline.Timeline, []segment.Segment) {
	t.Helper()
	mk := func(start, end int64, kind segment.Kind) segment.Segment {
		return segment.Segment{
			ID: uuid.New().String(), StartFrame: start, EndFrame: end,
			Kind: kind, Active: kind == segment.KindSpeech,
		}
	}
	segs := []segment.Segment{
		mk(0, 300, segment.KindSpeech),
		mk(300, 360, segment.KindSilence),
		mk(360, 900, segment.KindSpeech),
		mk(900, 1800, segment.KindSpeech),
	}
	tl, err := timeline.New(30, 1800, segs)
	if err != nil {
		t.Fatal(err)
	}
	return tl, segs
}

func TestAlignWritesTextBack(t *testing.T) {
	tl, segs := alignerTimeline(t)
	cm := &media.CanonicalMedia{FrameRate: 30, DurationFrames: 1800}

	var progressCalls int
	a := NewAligner(&fakeBackend{}, fakeSlicer{}, t.TempDir(), "en")
	warnings, err := a.Align(context.Background(), cm, tl, func(done, total int) {
		progressCalls++
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if progressCalls != 3 {
		t.Errorf("progress called %d times, want 3", progressCalls)
	}

	got, _ := tl.Get(segs[0].ID)
	if got.Text != "text 1" {
		t.Errorf("first speech text = %q, want %q", got.Text, "text 1")
	}
	sil, _ := tl.Get(segs[1].ID)
	if sil.Text != "" {
		t.Errorf("silence picked up text %q", sil.Text)
	}
}

func TestAlignFailureIsNonFatal(t *testing.T) {
	tl, segs := alignerTimeline(t)
	cm := &media.CanonicalMedia{FrameRate: 30, DurationFrames: 1800}

	a := NewAligner(&fakeBackend{failOn: 2}, fakeSlicer{}, t.TempDir(), "en")
	warnings, err := a.Align(context.Background(), cm, tl, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if warnings[0].SegmentID != segs[2].ID {
		t.Errorf("warning for segment %s, want %s", warnings[0].SegmentID, segs[2].ID)
	}

	// The failed segment keeps empty text; the rest were transcribed.
	failed, _ := tl.Get(segs[2].ID)
	if failed.Text != "" {
		t.Errorf("failed segment text = %q, want empty", failed.Text)
	}
	last, _ := tl.Get(segs[3].ID)
	if last.Text == "" {
		t.Error("segments after the failure were not transcribed")
	}
}

func TestAlignReportsProgressOnFailure(t *testing.T) {
	tl, _ := alignerTimeline(t)
	cm := &media.CanonicalMedia{FrameRate: 30, DurationFrames: 1800}

	// Fail the last segment: progress must still count it so done reaches
	// total and consumers can close their progress display.
	var lastDone, lastTotal int
	a := NewAligner(&fakeBackend{failOn: 3}, fakeSlicer{}, t.TempDir(), "en")
	warnings, err := a.Align(context.Background(), cm, tl, func(done, total int) {
		lastDone, lastTotal = done, total
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if lastDone != 3 || lastTotal != 3 {
		t.Errorf("final progress = %d/%d, want 3/3", lastDone, lastTotal)
	}
}

func TestAlignHonorsCancellation(t *testing.T) {
	tl, _ := alignerTimeline(t)
	cm := &media.CanonicalMedia{FrameRate: 30, DurationFrames: 1800}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAligner(&fakeBackend{}, fakeSlicer{}, t.TempDir(), "en")
	_, err := a.Align(ctx, cm, tl, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
