package render

import (
	"strings"
	"testing"

	"github.com/Karmadibsa/VibeSlicer/internal/segment"
	"github.com/Karmadibsa/VibeSlicer/internal/timeline"
)

// cuePlan builds a plan with the silence between two speech segments already
// cut out: 10s of speech, then another 13s of speech, contiguous in output
// time even though they were 12s apart in the source.
func cuePlan() *timeline.Plan {
	return &timeline.Plan{
		FPS: 30,
		Entries: []timeline.Entry{
			{
				Segment:          segment.Segment{ID: "a", StartFrame: 0, EndFrame: 300, Kind: segment.KindSpeech, Active: true, Text: "hello there"},
				OutputStartFrame: 0,
				OutputEndFrame:   300,
			},
			{
				Segment:          segment.Segment{ID: "b", StartFrame: 660, EndFrame: 1050, Kind: segment.KindSpeech, Active: true, Text: "welcome back"},
				OutputStartFrame: 300,
				OutputEndFrame:   690,
			},
		},
	}
}

func TestBuildCuesRemapsToOutputTime(t *testing.T) {
	cues := BuildCues(cuePlan(), 0)
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	// The second segment starts at 22s in the source but at 10s in the
	// output: the cue must use output time.
	if cues[1].Start != 10 || cues[1].End != 23 {
		t.Errorf("second cue = [%v, %v], want [10, 23]", cues[1].Start, cues[1].End)
	}
	if cues[0].Text != "hello there" {
		t.Errorf("first cue text = %q", cues[0].Text)
	}
}

func TestBuildCuesSkipsSilenceAndEmptyText(t *testing.T) {
	plan := &timeline.Plan{
		FPS: 30,
		Entries: []timeline.Entry{
			{Segment: segment.Segment{Kind: segment.KindSilence, Active: true, Text: "should never appear"}, OutputEndFrame: 60},
			{Segment: segment.Segment{Kind: segment.KindSpeech, Active: true, Text: "   "}, OutputStartFrame: 60, OutputEndFrame: 120},
			{Segment: segment.Segment{Kind: segment.KindSpeech, Active: true, Text: "kept"}, OutputStartFrame: 120, OutputEndFrame: 180},
		},
	}
	cues := BuildCues(plan, 0)
	if len(cues) != 1 {
		t.Fatalf("got %d cues, want 1", len(cues))
	}
	if cues[0].Text != "kept" {
		t.Errorf("cue text = %q, want %q", cues[0].Text, "kept")
	}
}

func TestBuildCuesIntroOffset(t *testing.T) {
	cues := BuildCues(cuePlan(), 2)
	if cues[0].Start != 2 || cues[0].End != 12 {
		t.Errorf("first cue = [%v, %v], want [2, 12]", cues[0].Start, cues[0].End)
	}
	if cues[1].Start != 12 {
		t.Errorf("second cue start = %v, want 12", cues[1].Start)
	}
}

func TestWriteSRT(t *testing.T) {
	var sb strings.Builder
	cues := []Cue{
		{Start: 0, End: 2.5, Text: "first line"},
		{Start: 61.25, End: 3725.004, Text: "second line"},
	}
	if err := WriteSRT(&sb, cues); err != nil {
		t.Fatal(err)
	}
	want := "1\n00:00:00,000 --> 00:00:02,500\nfirst line\n\n" +
		"2\n00:01:01,250 --> 01:02:05,004\nsecond line\n\n"
	if sb.String() != want {
		t.Errorf("SRT output:\n%q\nwant:\n%q", sb.String(), want)
	}
}

func TestSrtTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{-1, "00:00:00,000"},
		{0.0004, "00:00:00,000"},
		{59.999, "00:00:59,999"},
		{3600, "01:00:00,000"},
	}
	for _, c := range cases {
		if got := srtTimestamp(c.in); got != c.want {
			t.Errorf("srtTimestamp(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
