package media

import "testing"

const sampleProbeJSON = `{
  "streams": [
    {
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "r_frame_rate": "30000/1001"
    },
    {
      "codec_type": "audio",
      "sample_rate": "44100"
    }
  ],
  "format": {
    "duration": "63.521000"
  }
}`

func TestParseProbeOutput(t *testing.T) {
	info, err := parseProbeOutput([]byte(sampleProbeJSON))
	if err != nil {
		t.Fatalf("parseProbeOutput: %v", err)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("HasVideo=%v HasAudio=%v, want both true", info.HasVideo, info.HasAudio)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", info.Width, info.Height)
	}
	if info.Duration != 63.521 {
		t.Errorf("Duration = %g, want 63.521", info.Duration)
	}
	if info.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", info.SampleRate)
	}
	got := info.FPS
	if got < 29.96 || got > 29.98 {
		t.Errorf("FPS = %g, want ~29.97", got)
	}
}

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"60", 60},
		{"", 0},
		{"30/0", 0},
		{"bogus", 0},
	}
	for _, tc := range cases {
		if got := parseFrameRate(tc.in); got != tc.want {
			t.Errorf("parseFrameRate(%q) = %g, want %g", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalFrameMapping(t *testing.T) {
	cm := &CanonicalMedia{FrameRate: 30, DurationFrames: 1800}

	if f := cm.FrameAt(10.0); f != 300 {
		t.Errorf("FrameAt(10.0) = %d, want 300", f)
	}
	// Rounds to nearest frame, never past the end.
	if f := cm.FrameAt(10.016); f != 300 {
		t.Errorf("FrameAt(10.016) = %d, want 300", f)
	}
	if f := cm.FrameAt(999); f != 1800 {
		t.Errorf("FrameAt past end = %d, want 1800", f)
	}
	if f := cm.FrameAt(-1); f != 0 {
		t.Errorf("FrameAt(-1) = %d, want 0", f)
	}
	if s := cm.SecondsAt(300); s != 10.0 {
		t.Errorf("SecondsAt(300) = %g, want 10", s)
	}
	if d := cm.DurationSeconds(); d != 60.0 {
		t.Errorf("DurationSeconds = %g, want 60", d)
	}
}
