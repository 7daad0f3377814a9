package storage

import (
	"path/filepath"
	"testing"

	"github.com/Karmadibsa/VibeSlicer/internal/segment"
)

func TestSaveSegmentsReplacesSnapshot(t *testing.T) {
	ps, err := NewProjectStore(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()

	first := []segment.Segment{
		{ID: "s1", StartFrame: 0, EndFrame: 300, Kind: segment.KindSpeech, Active: true, Text: "hello"},
		{ID: "s2", StartFrame: 300, EndFrame: 360, Kind: segment.KindSilence, Active: false},
	}
	if err := ps.SaveSegments("p1", first); err != nil {
		t.Fatalf("SaveSegments: %v", err)
	}

	// A second save replaces the snapshot entirely, it does not append.
	second := []segment.Segment{
		{ID: "s1", StartFrame: 0, EndFrame: 150, Kind: segment.KindSpeech, Active: true, Text: "hello"},
		{ID: "s3", StartFrame: 150, EndFrame: 300, Kind: segment.KindSpeech, Active: true},
		{ID: "s2", StartFrame: 300, EndFrame: 360, Kind: segment.KindSilence, Active: false},
	}
	if err := ps.SaveSegments("p1", second); err != nil {
		t.Fatalf("SaveSegments replace: %v", err)
	}

	got, err := ps.LoadSegments("p1")
	if err != nil {
		t.Fatalf("LoadSegments: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d segments, want 3", len(got))
	}
	for i := range second {
		if got[i] != second[i] {
			t.Errorf("segment %d = %+v, want %+v", i, got[i], second[i])
		}
	}
}

func TestLoadSegmentsEmptyProject(t *testing.T) {
	ps, err := NewProjectStore(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()

	got, err := ps.LoadSegments("missing")
	if err != nil {
		t.Fatalf("LoadSegments: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d segments for unknown project", len(got))
	}
}
