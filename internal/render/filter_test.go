package render

import (
	"math"
	"strings"
	"testing"

	"github.com/Karmadibsa/VibeSlicer/internal/timeline"
)

func TestDbToLinear(t *testing.T) {
	if got := dbToLinear(0); got != 1 {
		t.Errorf("dbToLinear(0) = %v, want 1", got)
	}
	if got := dbToLinear(-6); math.Abs(got-0.501187) > 1e-5 {
		t.Errorf("dbToLinear(-6) = %v, want ~0.501", got)
	}
}

func TestDuckVolumeExprNoWindows(t *testing.T) {
	got := duckVolumeExpr(nil, MusicOptions{GainDb: -18})
	// Without speech there is nothing to duck: constant baseline gain.
	if !strings.HasPrefix(got, "volume=0.125") {
		t.Errorf("expr = %q, want constant -18dB volume", got)
	}
	if strings.Contains(got, "between") {
		t.Errorf("expr = %q, must not contain window terms", got)
	}
}

func TestDuckVolumeExprWindows(t *testing.T) {
	windows := []timeline.Window{{Start: 1, End: 3}, {Start: 10, End: 12}}
	got := duckVolumeExpr(windows, MusicOptions{GainDb: -18, DuckDb: -12, Attack: 0.05, Release: 0.2})

	// Attack widens backwards, release forwards.
	if !strings.Contains(got, "between(t\\,0.950\\,3.200)") {
		t.Errorf("expr = %q, missing widened first window", got)
	}
	if !strings.Contains(got, "between(t\\,9.950\\,12.200)") {
		t.Errorf("expr = %q, missing widened second window", got)
	}
	if !strings.Contains(got, ":eval=frame") {
		t.Errorf("expr = %q, missing eval=frame", got)
	}
	// Ducked value is gain+duck = -30dB, baseline -18dB; ducked comes first
	// in the if().
	duckIdx := strings.Index(got, "0.031623")
	baseIdx := strings.Index(got, "0.125893")
	if duckIdx < 0 || baseIdx < 0 || duckIdx > baseIdx {
		t.Errorf("expr = %q, want ducked gain before baseline gain", got)
	}
}

func TestDuckVolumeExprClampsAttackAtZero(t *testing.T) {
	got := duckVolumeExpr([]timeline.Window{{Start: 0.02, End: 1}}, MusicOptions{GainDb: -18, DuckDb: -12, Attack: 0.05, Release: 0.2})
	if !strings.Contains(got, "between(t\\,0.000\\,1.200)") {
		t.Errorf("expr = %q, attack must not produce a negative start", got)
	}
}

func TestLoudnormFilter(t *testing.T) {
	got := loudnormFilter(-16, -1.5, 11)
	if got != "loudnorm=I=-16:TP=-1.5:LRA=11" {
		t.Errorf("loudnormFilter = %q", got)
	}
}

func TestSubtitlesFilterEscaping(t *testing.T) {
	got := subtitlesFilter(`C:\work\subs.srt`, "")
	if !strings.Contains(got, `C\:/work/subs.srt`) {
		t.Errorf("filter = %q, want escaped forward-slash path", got)
	}

	styled := subtitlesFilter("/tmp/subs.srt", "FontSize=28")
	if !strings.Contains(styled, ":force_style='FontSize=28'") {
		t.Errorf("filter = %q, missing force_style", styled)
	}
}

func TestBuildFinalFilterVoiceOnly(t *testing.T) {
	fc, maps := buildFinalFilter("null", nil, false, MusicOptions{}, -16, -1.5, 11)
	if fc != "[0:a]loudnorm=I=-16:TP=-1.5:LRA=11[aout];[0:v]null[vout]" {
		t.Errorf("filter_complex = %q", fc)
	}
	if len(maps) != 4 || maps[1] != "[vout]" || maps[3] != "[aout]" {
		t.Errorf("maps = %v", maps)
	}
}

func TestBuildFinalFilterWithMusic(t *testing.T) {
	windows := []timeline.Window{{Start: 0, End: 5}}
	music := MusicOptions{GainDb: -18, DuckDb: -12, Attack: 0.05, Release: 0.2}
	fc, _ := buildFinalFilter("null", windows, true, music, -16, -1.5, 11)

	// Music loops under the whole voice track, is ducked, and the mix ends
	// with the voice (duration=first).
	for _, part := range []string{
		"[1:a]aloop=loop=-1",
		"amix=inputs=2:duration=first",
		"loudnorm=I=-16",
		"between(t\\,0.000\\,5.200)",
		"[aout]",
		"[vout]",
	} {
		if !strings.Contains(fc, part) {
			t.Errorf("filter_complex = %q, missing %q", fc, part)
		}
	}
}
