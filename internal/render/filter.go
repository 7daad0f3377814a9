package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/Karmadibsa/VibeSlicer/internal/timeline"
)

// MusicOptions shapes the background-music bed.
type MusicOptions struct {
	// GainDb is the baseline music level relative to full scale.
	GainDb float64
	// DuckDb is the additional attenuation applied while speech plays.
	DuckDb float64
	// Attack widens each ducked window backwards so the music is already
	// down when a word starts; Release widens it forwards. Both in seconds.
	// The gain change itself is a step; the widened window acts as the
	// envelope. Defaults: 50ms / 200ms.
	Attack  float64
	Release float64
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// duckVolumeExpr builds a volume filter ducking the music inside the given
// output-time speech windows. The windows come from the render plan's
// original speech/silence classification; silence gaps cut from the output
// no longer exist there, so re-detecting silence on the mix would duck the
// wrong places.
func duckVolumeExpr(windows []timeline.Window, opts MusicOptions) string {
	base := dbToLinear(opts.GainDb)
	if len(windows) == 0 {
		return fmt.Sprintf("volume=%.6f", base)
	}
	duck := dbToLinear(opts.GainDb + opts.DuckDb)

	terms := make([]string, len(windows))
	for i, w := range windows {
		start := w.Start - opts.Attack
		if start < 0 {
			start = 0
		}
		terms[i] = fmt.Sprintf("between(t\\,%.3f\\,%.3f)", start, w.End+opts.Release)
	}
	return fmt.Sprintf("volume='if(%s\\,%.6f\\,%.6f)':eval=frame",
		strings.Join(terms, "+"), duck, base)
}

// loudnormFilter is the single consistent loudness target applied to the
// concatenated voice track (EBU R128).
func loudnormFilter(targetLUFS, truePeak, lra float64) string {
	return fmt.Sprintf("loudnorm=I=%g:TP=%g:LRA=%g", targetLUFS, truePeak, lra)
}

// subtitlesFilter burns an SRT file into the video stream. The path is
// escaped for use inside a filter graph.
func subtitlesFilter(srtPath, forceStyle string) string {
	f := fmt.Sprintf("subtitles='%s'", filterEscape(srtPath))
	if forceStyle != "" {
		f += fmt.Sprintf(":force_style='%s'", forceStyle)
	}
	return f
}

// filterEscape makes a path safe inside an ffmpeg filter argument.
func filterEscape(path string) string {
	s := strings.ReplaceAll(path, "\\", "/")
	return strings.ReplaceAll(s, ":", "\\:")
}

// buildFinalFilter assembles the filter_complex for the last encode: burn
// subtitles, normalize loudness, and optionally mix the looped music bed
// under the voice with ducking.
func buildFinalFilter(vf string, windows []timeline.Window, withMusic bool, music MusicOptions, targetLUFS, truePeak, lra float64) (filterComplex string, maps []string) {
	norm := loudnormFilter(targetLUFS, truePeak, lra)
	if withMusic {
		filterComplex = fmt.Sprintf(
			"[1:a]aloop=loop=-1:size=2e9,%s[bgm];"+
				"[0:a][bgm]amix=inputs=2:duration=first:dropout_transition=2,%s[aout];"+
				"[0:v]%s[vout]",
			duckVolumeExpr(windows, music), norm, vf)
	} else {
		filterComplex = fmt.Sprintf("[0:a]%s[aout];[0:v]%s[vout]", norm, vf)
	}
	return filterComplex, []string{"-map", "[vout]", "-map", "[aout]"}
}
