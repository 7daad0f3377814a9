package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/Karmadibsa/VibeSlicer/internal/config"
	"github.com/Karmadibsa/VibeSlicer/internal/media"
	"github.com/Karmadibsa/VibeSlicer/internal/pipeline"
	"github.com/Karmadibsa/VibeSlicer/internal/storage"
	"github.com/Karmadibsa/VibeSlicer/internal/transcription"
	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

type cliArgs struct {
	Input []string `arg:"positional,required" help:"source media files"`

	Config    string `arg:"-c,--config" help:"YAML config file" default:"config/config.yaml"`
	OutputDir string `arg:"-o,--output-dir" help:"directory for rendered files"`

	SilenceThreshold *float64 `arg:"--silence-threshold" help:"silence threshold in dBFS (default -30)"`
	MinSilence       *float64 `arg:"--min-silence" help:"minimum silence duration in seconds (default 0.5)"`
	Padding          *float64 `arg:"--padding" help:"padding kept around speech in seconds (default 0.25)"`
	Detector         string   `arg:"--detector" help:"silence detector: ffmpeg or wav"`

	Backend  string `arg:"--backend" help:"transcription backend: whisper, openai or none"`
	Language string `arg:"--language" help:"spoken language hint"`

	Loudness  *float64 `arg:"--loudness" help:"integrated loudness target in LUFS (default -16)"`
	Music     string   `arg:"--music" help:"background music file mixed under the voice"`
	MusicGain *float64 `arg:"--music-gain" help:"music level in dB (default -18)"`
	Intro     string   `arg:"--intro" help:"title text for an intro card"`

	KeepSilence bool `arg:"--keep-silence" help:"render with silence segments kept in"`
}

func (cliArgs) Description() string {
	return "Cuts silence out of screen recordings, transcribes the speech and renders a tight final video."
}

func main() {
	var args cliArgs
	arg.MustParse(&args)

	godotenv.Load()
	log.SetFlags(0)
	log.SetPrefix("vibeslicer: ")

	cfg, err := config.LoadOrDefault(args.Config)
	if err != nil {
		fatal("load config: %v", err)
	}
	applyOverrides(cfg, &args)

	runner := media.NewRunner(cfg.FFmpeg.FFmpegBin, cfg.FFmpeg.FFprobeBin)
	ctx := context.Background()
	if err := runner.CheckFFmpeg(ctx); err != nil {
		fatal("%v", err)
	}

	scratch, err := storage.NewScratch(cfg.Storage.ScratchDir)
	if err != nil {
		fatal("scratch dir: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		fatal("output dir: %v", err)
	}

	orch := pipeline.NewOrchestrator(cfg, runner, scratch, nil, nil, buildBackend(cfg))

	failed := 0
	for _, input := range args.Input {
		if err := processFile(ctx, orch, scratch, cfg, input, &args); err != nil {
			errorf("%s: %v", filepath.Base(input), err)
			failed++
			continue
		}
	}

	if failed > 0 {
		errorf("%d of %d file(s) failed", failed, len(args.Input))
		os.Exit(1)
	}
}

func processFile(ctx context.Context, orch *pipeline.Orchestrator, scratch *storage.Scratch, cfg *config.Config, input string, args *cliArgs) error {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name := base
	projectID := uuid.New().String()

	infof("processing %s", filepath.Base(input))

	sess, err := orch.Prepare(ctx, projectID, name, input, cliProgress())
	if err != nil {
		return err
	}
	for _, w := range sess.Warnings {
		warnf("transcription: %s", w)
	}

	if args.KeepSilence {
		segs := sess.Timeline.Segments()
		for _, s := range segs {
			if !s.Active {
				if err := sess.Timeline.Toggle(s.ID); err != nil {
					return err
				}
			}
		}
	}

	outPath := filepath.Join(cfg.Storage.OutputDir, base+"_sliced.mp4")
	res, err := orch.Render(ctx, sess, pipeline.RenderOptions{
		MusicPath:  args.Music,
		IntroTitle: args.Intro,
		OutputPath: outPath,
	})
	if err != nil {
		return err
	}

	infof("done: %s (%.1fs, %d subtitle cues)", res.OutputPath, res.DurationSeconds, res.CueCount)

	// One-shot run: the canonical copy and render scratch are no longer needed.
	if dir, derr := scratch.ProjectDir(projectID); derr == nil {
		_ = os.RemoveAll(dir)
	}
	return nil
}

// cliProgress prints stage transitions and transcription counts to stderr.
func cliProgress() pipeline.Notifier {
	lastStage := ""
	return func(ev pipeline.Event) {
		if ev.Stage != "" && ev.Stage != lastStage {
			lastStage = ev.Stage
			infof("  %s...", stageLabel(ev.Stage))
		}
		if ev.Total > 0 {
			fmt.Fprintf(os.Stderr, "\r  transcribing %d/%d", ev.Done, ev.Total)
			if ev.Done == ev.Total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}
}

func stageLabel(stage string) string {
	switch stage {
	case types.StageSanitize:
		return "sanitizing"
	case types.StageSegment:
		return "detecting silence"
	case types.StageTranscribe:
		return "transcribing"
	case types.StageRender:
		return "rendering"
	}
	return stage
}

// applyOverrides layers the command line on top of the config file.
func applyOverrides(cfg *config.Config, args *cliArgs) {
	if args.OutputDir != "" {
		cfg.Storage.OutputDir = args.OutputDir
	}
	if args.SilenceThreshold != nil {
		cfg.Segmenter.SilenceThresholdDb = *args.SilenceThreshold
	}
	if args.MinSilence != nil {
		cfg.Segmenter.MinSilenceSeconds = *args.MinSilence
	}
	if args.Padding != nil {
		cfg.Segmenter.PaddingSeconds = *args.Padding
	}
	if args.Detector != "" {
		cfg.Segmenter.Detector = args.Detector
	}
	if args.Backend != "" {
		cfg.Transcription.Backend = args.Backend
	}
	if args.Language != "" {
		cfg.Transcription.Language = args.Language
	}
	if args.MusicGain != nil {
		cfg.Render.MusicGainDb = *args.MusicGain
	}
	if args.Loudness != nil {
		cfg.Render.LoudnessTarget = *args.Loudness
	}
	if err := cfg.Validate(); err != nil {
		fatal("%v", err)
	}
}

func buildBackend(cfg *config.Config) transcription.Backend {
	switch cfg.Transcription.Backend {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			warnf("OPENAI_API_KEY not set - transcription disabled")
			return nil
		}
		return transcription.NewOpenAIBackend(apiKey, cfg.Transcription.Model)
	case "none":
		return nil
	default:
		return transcription.NewWhisperTranscriber(cfg.Transcription.Model, cfg.Transcription.Python, os.TempDir())
	}
}

const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

func infof(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
}

func warnf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"warning: "+format+colorReset+"\n", a...)
}

func errorf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"error: "+format+colorReset+"\n", a...)
}

func fatal(format string, a ...any) {
	errorf(format, a...)
	os.Exit(1)
}
