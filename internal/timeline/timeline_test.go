package timeline

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Karmadibsa/VibeSlicer/internal/segment"
	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

const fps = 30

func fr(seconds float64) int64 { return int64(seconds*fps + 0.5) }

// newScenarioTimeline builds the 60s reference timeline:
// Speech[0-10] Silence[10-12] Speech[12-40] Silence[40-41.2] Speech[41.2-60].
func newScenarioTimeline(t *testing.T) *Timeline {
	t.Helper()
	mk := func(start, end float64, kind segment.Kind) segment.Segment {
		return segment.Segment{
			ID:         uuid.New().String(),
			StartFrame: fr(start),
			EndFrame:   fr(end),
			Kind:       kind,
			Active:     kind == segment.KindSpeech,
		}
	}
	segs := []segment.Segment{
		mk(0, 10, segment.KindSpeech),
		mk(10, 12, segment.KindSilence),
		mk(12, 40, segment.KindSpeech),
		mk(40, 41.2, segment.KindSilence),
		mk(41.2, 60, segment.KindSpeech),
	}
	tl, err := New(fps, fr(60), segs)
	if err != nil {
		t.Fatal(err)
	}
	return tl
}

func TestNewRejectsBrokenCoverage(t *testing.T) {
	mk := func(start, end int64) segment.Segment {
		return segment.Segment{ID: uuid.New().String(), StartFrame: start, EndFrame: end, Kind: segment.KindSpeech}
	}
	cases := []struct {
		name string
		segs []segment.Segment
		dur  int64
	}{
		{"empty", nil, 100},
		{"gap", []segment.Segment{mk(0, 40), mk(50, 100)}, 100},
		{"overlap", []segment.Segment{mk(0, 60), mk(50, 100)}, 100},
		{"late start", []segment.Segment{mk(10, 100)}, 100},
		{"short end", []segment.Segment{mk(0, 90)}, 100},
		{"empty span", []segment.Segment{mk(0, 0)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(fps, tc.dur, tc.segs); err == nil {
				t.Error("expected coverage error, got nil")
			}
		})
	}
}

func TestToggleIsInvolutive(t *testing.T) {
	tl := newScenarioTimeline(t)
	before := tl.Segments()
	id := before[1].ID

	if err := tl.Toggle(id); err != nil {
		t.Fatal(err)
	}
	mid, _ := tl.Get(id)
	if !mid.Active {
		t.Error("silence segment should be active after toggle")
	}
	if err := tl.Toggle(id); err != nil {
		t.Fatal(err)
	}

	after := tl.Segments()
	if len(after) != len(before) {
		t.Fatalf("segment count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("segment %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
	if err := tl.Validate(); err != nil {
		t.Error(err)
	}
}

func TestToggleUnknownID(t *testing.T) {
	tl := newScenarioTimeline(t)
	if err := tl.Toggle("nope"); !errors.Is(err, types.ErrUnknownSegment) {
		t.Errorf("err = %v, want ErrUnknownSegment", err)
	}
}

func TestToggleRangeReversedOrder(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()

	// idB before idA: index-sorted first, then flipped inclusively.
	if err := tl.ToggleRange(segs[3].ID, segs[1].ID); err != nil {
		t.Fatal(err)
	}
	after := tl.Segments()
	want := []bool{true, true, false, true, true}
	for i, w := range want {
		if after[i].Active != w {
			t.Errorf("segment %d active = %v, want %v", i, after[i].Active, w)
		}
	}
	if err := tl.Validate(); err != nil {
		t.Error(err)
	}
}

func TestToggleRangeUnknownEndpoint(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()

	if err := tl.ToggleRange(segs[0].ID, "nope"); !errors.Is(err, types.ErrInvalidRange) {
		t.Errorf("err = %v, want ErrInvalidRange", err)
	}
	// Rejected with no state change.
	for i, s := range tl.Segments() {
		if s.Active != segs[i].Active {
			t.Errorf("segment %d active = %v, want %v", i, s.Active, segs[i].Active)
		}
	}
}

func TestSplit(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()
	target := segs[2] // Speech[12-40]
	if err := tl.SetText(target.ID, "hello world"); err != nil {
		t.Fatal(err)
	}

	newID, err := tl.Split(target.ID, 25)
	if err != nil {
		t.Fatal(err)
	}
	if err := tl.Validate(); err != nil {
		t.Fatal(err)
	}

	after := tl.Segments()
	if len(after) != 6 {
		t.Fatalf("got %d segments, want 6", len(after))
	}

	left, right := after[2], after[3]
	if left.ID != target.ID {
		t.Error("left half lost the original id")
	}
	if right.ID != newID {
		t.Error("right half does not carry the returned id")
	}
	// Union of the halves equals the original span.
	if left.StartFrame != target.StartFrame || right.EndFrame != target.EndFrame || left.EndFrame != right.StartFrame {
		t.Errorf("halves [%d,%d)+[%d,%d) do not tile original [%d,%d)",
			left.StartFrame, left.EndFrame, right.StartFrame, right.EndFrame,
			target.StartFrame, target.EndFrame)
	}
	if left.EndFrame != fr(25) {
		t.Errorf("split boundary at frame %d, want %d", left.EndFrame, fr(25))
	}
	if left.Kind != right.Kind || left.Active != right.Active {
		t.Error("halves should share kind and active state")
	}
	if left.Text != "hello world" || right.Text != "" {
		t.Errorf("text split wrong: left=%q right=%q", left.Text, right.Text)
	}

	// No id collision with any other segment.
	seen := map[string]bool{}
	for _, s := range after {
		if seen[s.ID] {
			t.Fatalf("duplicate segment id %s", s.ID)
		}
		seen[s.ID] = true
	}

	// Untouched neighbors keep their ids.
	if after[0].ID != segs[0].ID || after[5].ID != segs[4].ID {
		t.Error("split disturbed unrelated segment ids")
	}
}

func TestSplitInvalidPoint(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()
	target := segs[2] // [12-40]

	// 12.001 rounds to the start frame, so it is just as invalid as 12.
	for _, at := range []float64{12, 40, 5, 60, 12.001} {
		before := tl.Segments()
		_, err := tl.Split(target.ID, at)
		if !errors.Is(err, types.ErrInvalidSplitPoint) {
			t.Errorf("Split at %g: err = %v, want ErrInvalidSplitPoint", at, err)
		}
		// Rejected with no state change.
		after := tl.Segments()
		if len(before) != len(after) {
			t.Fatalf("Split at %g mutated the timeline", at)
		}
	}
}

func TestSetTextOnSilenceIsNoop(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()
	if err := tl.SetText(segs[1].ID, "should vanish"); err != nil {
		t.Fatal(err)
	}
	got, _ := tl.Get(segs[1].ID)
	if got.Text != "" {
		t.Errorf("silence text = %q, want empty", got.Text)
	}
}

func TestMerge(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()
	target := segs[2]
	newID, err := tl.Split(target.ID, 25)
	if err != nil {
		t.Fatal(err)
	}
	tl.SetText(target.ID, "first part")
	tl.SetText(newID, "second part")

	if err := tl.Merge(target.ID, newID); err != nil {
		t.Fatal(err)
	}
	if err := tl.Validate(); err != nil {
		t.Fatal(err)
	}
	merged, err := tl.Get(target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if merged.StartFrame != target.StartFrame || merged.EndFrame != target.EndFrame {
		t.Errorf("merged span [%d,%d), want [%d,%d)", merged.StartFrame, merged.EndFrame, target.StartFrame, target.EndFrame)
	}
	if merged.Text != "first part second part" {
		t.Errorf("merged text = %q", merged.Text)
	}
	if _, err := tl.Get(newID); !errors.Is(err, types.ErrUnknownSegment) {
		t.Error("right half should be gone after merge")
	}
}

func TestMergeRejectsNonAdjacentOrMixedKind(t *testing.T) {
	tl := newScenarioTimeline(t)
	segs := tl.Segments()

	// Non-adjacent speech segments.
	if err := tl.Merge(segs[0].ID, segs[2].ID); !errors.Is(err, types.ErrNotAdjacent) {
		t.Errorf("non-adjacent merge err = %v, want ErrNotAdjacent", err)
	}
	// Adjacent but different kinds.
	if err := tl.Merge(segs[0].ID, segs[1].ID); !errors.Is(err, types.ErrNotAdjacent) {
		t.Errorf("mixed-kind merge err = %v, want ErrNotAdjacent", err)
	}
}
