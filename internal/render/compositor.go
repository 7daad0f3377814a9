package render

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Karmadibsa/VibeSlicer/internal/media"
	"github.com/Karmadibsa/VibeSlicer/internal/storage"
	"github.com/Karmadibsa/VibeSlicer/internal/timeline"
	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// OutputConfig controls one render.
type OutputConfig struct {
	LoudnessTarget float64 // integrated LUFS, e.g. -16
	TruePeak       float64 // dBTP, e.g. -1.5
	LoudnessRange  float64 // LU, e.g. 11

	MusicPath string // empty = no music bed
	Music     MusicOptions

	IntroTitle   string // empty = no intro card
	IntroSeconds float64
	FontFile     string // optional font for the intro title

	SubtitleStyle string // ASS force_style string, optional
}

// Result summarizes a completed render.
type Result struct {
	OutputPath      string
	DurationSeconds float64
	CueCount        int
}

// Compositor reconstructs a continuous output stream from the timeline's
// active segments. It only reads the timeline: segments are never created
// or destroyed here.
type Compositor struct {
	runner  *media.Runner
	scratch *storage.Scratch
}

// NewCompositor creates a compositor working under the given scratch area.
func NewCompositor(runner *media.Runner, scratch *storage.Scratch) *Compositor {
	return &Compositor{runner: runner, scratch: scratch}
}

// Render produces the final output file at outPath. Every intermediate and
// the unfinished output live in scratch; outPath only ever receives the
// complete file, via an atomic move.
func (c *Compositor) Render(ctx context.Context, cm *media.CanonicalMedia, tl *timeline.Timeline, cfg OutputConfig, outPath string) (Result, error) {
	plan, err := timeline.BuildPlan(tl)
	if err != nil {
		return Result{}, err
	}

	// Step 1: cut. Concatenate the active spans with the concat demuxer.
	cutPath, err := c.concatenate(ctx, cm, plan)
	if err != nil {
		return Result{}, types.NewStageError(types.StageRender, fmt.Errorf("concatenate: %w", err))
	}

	// Step 2: optional intro card over a blurred freeze-frame of the first
	// kept video frame. It shifts every subtitle cue and duck window.
	var introOffset float64
	renderInput := cutPath
	if cfg.IntroTitle != "" {
		introSec := cfg.IntroSeconds
		if introSec <= 0 {
			introSec = 2
		}
		renderInput, err = c.prependIntro(ctx, cm, plan, cutPath, cfg.IntroTitle, cfg.FontFile, introSec)
		if err != nil {
			return Result{}, types.NewStageError(types.StageRender, fmt.Errorf("intro: %w", err))
		}
		introOffset = introSec
	}

	// Step 3: subtitles in output time.
	cues := BuildCues(plan, introOffset)
	srtPath := c.scratch.Path("subs.srt")
	if err := writeSRTFile(srtPath, cues); err != nil {
		return Result{}, types.NewStageError(types.StageRender, fmt.Errorf("subtitles: %w", err))
	}

	// Steps 4-5: final encode with burn-in, loudness normalization and the
	// ducked music bed.
	tempOut := c.scratch.Path("render_out.mp4")
	if err := c.finalEncode(ctx, renderInput, srtPath, len(cues), plan, introOffset, cfg, tempOut); err != nil {
		return Result{}, types.NewStageError(types.StageRender, fmt.Errorf("final encode: %w", err))
	}

	info, err := c.runner.Probe(ctx, tempOut)
	if err != nil {
		os.Remove(tempOut)
		return Result{}, types.NewStageError(types.StageRender, fmt.Errorf("verify output: %w", err))
	}
	wantDur := plan.OutputDurationSeconds() + introOffset
	if math.Abs(info.Duration-wantDur) > 1.0/float64(plan.FPS)+0.5 {
		log.Printf("WARNING: output duration %.3fs deviates from plan %.3fs", info.Duration, wantDur)
	}

	if err := storage.Publish(tempOut, outPath); err != nil {
		os.Remove(tempOut)
		return Result{}, types.NewStageError(types.StageRender, err)
	}

	return Result{OutputPath: outPath, DurationSeconds: info.Duration, CueCount: len(cues)}, nil
}

// concatenate extracts each active span and joins them contiguously. The
// ffconcat inpoint/outpoint protocol reads the canonical file once per span;
// a fast re-encode keeps the joined timestamps clean.
func (c *Compositor) concatenate(ctx context.Context, cm *media.CanonicalMedia, plan *timeline.Plan) (string, error) {
	concatPath := c.scratch.Path("cuts.ffconcat")
	if err := writeConcatFile(concatPath, cm, plan); err != nil {
		return "", err
	}

	cutPath := c.scratch.Path("cut.mp4")
	_, err := c.runner.RunFFmpeg(ctx,
		"-y", "-f", "concat", "-safe", "0",
		"-i", concatPath,
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "22",
		"-c:a", "aac", "-ar", fmt.Sprintf("%d", cm.SampleRate), "-ac", "2",
		"-af", "aresample=async=1000",
		"-avoid_negative_ts", "make_zero",
		cutPath,
	)
	if err != nil {
		os.Remove(cutPath)
		return "", err
	}
	return cutPath, nil
}

func writeConcatFile(path string, cm *media.CanonicalMedia, plan *timeline.Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "ffconcat version 1.0")
	fileRef := strings.ReplaceAll(filepath.ToSlash(cm.Path), "'", `'\''`)
	for _, e := range plan.Entries {
		fmt.Fprintf(w, "file '%s'\n", fileRef)
		fmt.Fprintf(w, "inpoint %.6f\n", e.Segment.StartSeconds(cm.FrameRate))
		fmt.Fprintf(w, "outpoint %.6f\n", e.Segment.EndSeconds(cm.FrameRate))
	}
	return w.Flush()
}

// prependIntro builds the title card with the exact canonical frame and
// sample rates, then joins card and cut via MPEG-TS remux so the prepend
// itself never re-encodes.
func (c *Compositor) prependIntro(ctx context.Context, cm *media.CanonicalMedia, plan *timeline.Plan, cutPath, title, fontFile string, seconds float64) (string, error) {
	framePath := c.scratch.Path("intro_frame.jpg")
	firstKept := plan.Entries[0].Segment.StartSeconds(cm.FrameRate)
	if _, err := c.runner.RunFFmpeg(ctx,
		"-y", "-ss", fmt.Sprintf("%.6f", firstKept),
		"-i", cm.Path, "-vframes", "1", framePath,
	); err != nil {
		return "", fmt.Errorf("freeze frame: %w", err)
	}

	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontsize=96:fontcolor=white:x=(w-text_w)/2:y=(h-text_h)/2:shadowcolor=black:shadowx=4:shadowy=4",
		drawtextEscape(title))
	if fontFile != "" {
		drawtext += fmt.Sprintf(":fontfile='%s'", filterEscape(fontFile))
	}

	introPath := c.scratch.Path("intro.mp4")
	if _, err := c.runner.RunFFmpeg(ctx,
		"-y",
		"-loop", "1", "-i", framePath,
		"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", cm.SampleRate),
		"-vf", fmt.Sprintf("boxblur=20:20,%s,format=yuv420p", drawtext),
		"-t", fmt.Sprintf("%.3f", seconds),
		"-r", fmt.Sprintf("%d", cm.FrameRate),
		"-c:v", "libx264", "-preset", "ultrafast",
		"-c:a", "aac", "-ar", fmt.Sprintf("%d", cm.SampleRate), "-ac", "2",
		introPath,
	); err != nil {
		return "", fmt.Errorf("title card: %w", err)
	}

	introTS := c.scratch.Path("intro.ts")
	cutTS := c.scratch.Path("cut.ts")
	for _, pair := range [][2]string{{introPath, introTS}, {cutPath, cutTS}} {
		if _, err := c.runner.RunFFmpeg(ctx,
			"-y", "-i", pair[0],
			"-c", "copy", "-bsf:v", "h264_mp4toannexb", "-f", "mpegts",
			pair[1],
		); err != nil {
			return "", fmt.Errorf("ts remux: %w", err)
		}
	}

	joined := c.scratch.Path("with_intro.mp4")
	if _, err := c.runner.RunFFmpeg(ctx,
		"-y", "-i", fmt.Sprintf("concat:%s|%s", introTS, cutTS),
		"-c", "copy", "-bsf:a", "aac_adtstoasc",
		joined,
	); err != nil {
		return "", fmt.Errorf("ts concat: %w", err)
	}
	return joined, nil
}

func (c *Compositor) finalEncode(ctx context.Context, inputPath, srtPath string, cueCount int, plan *timeline.Plan, introOffset float64, cfg OutputConfig, outPath string) error {
	vf := "null"
	if cueCount > 0 {
		vf = subtitlesFilter(srtPath, cfg.SubtitleStyle)
	}

	windows := plan.SpeechWindows()
	if introOffset > 0 {
		for i := range windows {
			windows[i].Start += introOffset
			windows[i].End += introOffset
		}
	}

	withMusic := cfg.MusicPath != ""
	filterComplex, maps := buildFinalFilter(vf, windows, withMusic, cfg.Music,
		cfg.LoudnessTarget, cfg.TruePeak, cfg.LoudnessRange)

	args := []string{"-y", "-i", inputPath}
	if withMusic {
		args = append(args, "-i", cfg.MusicPath)
	}
	args = append(args, "-filter_complex", filterComplex)
	args = append(args, maps...)
	args = append(args,
		"-c:v", "libx264", "-preset", "medium", "-crf", "20",
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		outPath,
	)

	if _, err := c.runner.RunFFmpeg(ctx, args...); err != nil {
		os.Remove(outPath)
		return err
	}
	return nil
}

func writeSRTFile(path string, cues []Cue) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteSRT(f, cues)
}

// drawtextEscape strips and escapes characters that break the drawtext
// filter argument.
func drawtextEscape(s string) string {
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, ":", "\\:")
	return s
}
