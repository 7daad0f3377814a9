package timeline

import (
	"errors"
	"math"
	"testing"

	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

func TestBuildPlanOffsetsMonotonic(t *testing.T) {
	tl := newScenarioTimeline(t)
	plan, err := BuildPlan(tl)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Entries) != 3 {
		t.Fatalf("got %d entries, want 3 active speech segments", len(plan.Entries))
	}

	var cum int64
	for i, e := range plan.Entries {
		if e.OutputStartFrame != cum {
			t.Errorf("entry %d output start = %d, want cumulative %d", i, e.OutputStartFrame, cum)
		}
		if e.OutputEndFrame <= e.OutputStartFrame {
			t.Errorf("entry %d output span not increasing", i)
		}
		if e.OutputEndFrame-e.OutputStartFrame != e.Segment.Frames() {
			t.Errorf("entry %d output span differs from segment duration", i)
		}
		cum = e.OutputEndFrame
	}
	// 60s minus both silences: 10 + 28 + 18.8 = 56.8s.
	if got := plan.OutputDurationSeconds(); math.Abs(got-56.8) > 1.0/fps {
		t.Errorf("output duration = %g, want 56.8", got)
	}
}

func TestBuildPlanToggledSilenceIncluded(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()
	// Keep Silence[10-12]; only the 1.2s silence remains cut.
	if err := tl.Toggle(segs[1].ID); err != nil {
		t.Fatal(err)
	}
	plan, err := BuildPlan(tl)
	if err != nil {
		t.Fatal(err)
	}
	if got := plan.OutputDurationSeconds(); math.Abs(got-58.8) > 1.0/fps {
		t.Errorf("output duration = %g, want 58.8", got)
	}
}

func TestBuildPlanAfterSplitAndToggle(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()

	// Split Speech[12-40] at t=25 and drop the [25-40] half.
	newID, err := tl.Split(segs[2].ID, 25)
	if err != nil {
		t.Fatal(err)
	}
	if err := tl.Toggle(newID); err != nil {
		t.Fatal(err)
	}

	plan, err := BuildPlan(tl)
	if err != nil {
		t.Fatal(err)
	}
	// Kept: [0-10], [12-25], [41.2-60].
	if len(plan.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(plan.Entries))
	}
	if plan.Entries[1].Segment.StartFrame != fr(12) || plan.Entries[1].Segment.EndFrame != fr(25) {
		t.Errorf("kept middle span [%d,%d), want [%d,%d)",
			plan.Entries[1].Segment.StartFrame, plan.Entries[1].Segment.EndFrame, fr(12), fr(25))
	}
	want := 10 + 13 + 18.8
	if got := plan.OutputDurationSeconds(); math.Abs(got-want) > 1.0/fps {
		t.Errorf("output duration = %g, want %g", got, want)
	}
}

func TestBuildPlanNoActiveSegments(t *testing.T) {
	tl := newScenarioTimeline(t)
	for _, s := range tl.Segments() {
		if s.Active {
			if err := tl.Toggle(s.ID); err != nil {
				t.Fatal(err)
			}
		}
	}
	_, err := BuildPlan(tl)
	if !errors.Is(err, types.ErrNoActiveSegments) {
		t.Errorf("err = %v, want ErrNoActiveSegments", err)
	}
	if types.StageOf(err) != types.StageRender {
		t.Errorf("stage = %q, want render", types.StageOf(err))
	}
}

func TestSpeechWindowsCoalesceAndSkipSilence(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()
	// Keep Silence[10-12] in the cut; speech windows around it must not
	// include it.
	if err := tl.Toggle(segs[1].ID); err != nil {
		t.Fatal(err)
	}
	plan, err := BuildPlan(tl)
	if err != nil {
		t.Fatal(err)
	}
	windows := plan.SpeechWindows()
	if len(windows) != 2 {
		t.Fatalf("got %d speech windows, want 2: %+v", len(windows), windows)
	}
	// Output time: speech [0,10], silence [10,12], speech [12,40]+[40,58.8]
	// coalesced.
	if windows[0].Start != 0 || windows[0].End != 10 {
		t.Errorf("window 0 = %+v, want [0,10]", windows[0])
	}
	if windows[1].Start != 12 || math.Abs(windows[1].End-58.8) > 1.0/fps {
		t.Errorf("window 1 = %+v, want [12,58.8]", windows[1])
	}
}
