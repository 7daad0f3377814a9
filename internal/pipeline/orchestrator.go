package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Karmadibsa/VibeSlicer/internal/config"
	"github.com/Karmadibsa/VibeSlicer/internal/media"
	"github.com/Karmadibsa/VibeSlicer/internal/render"
	"github.com/Karmadibsa/VibeSlicer/internal/segment"
	"github.com/Karmadibsa/VibeSlicer/internal/storage"
	"github.com/Karmadibsa/VibeSlicer/internal/timeline"
	"github.com/Karmadibsa/VibeSlicer/internal/transcription"
	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// Orchestrator runs the stage sequence for one source file: sanitize the
// media, segment the audio, transcribe the speech, and later render the
// edited timeline. Ordering is fixed because each stage consumes the
// previous stage's output; only transcription is skippable.
type Orchestrator struct {
	cfg     *config.Config
	runner  *media.Runner
	scratch *storage.Scratch
	store   *storage.ProjectStore  // nil = no persistence
	drive   *storage.DriveUploader // nil = no upload
	backend transcription.Backend  // nil = skip transcription
}

// NewOrchestrator wires the pipeline's shared components. store, drive and
// backend may each be nil.
func NewOrchestrator(cfg *config.Config, runner *media.Runner, scratch *storage.Scratch,
	store *storage.ProjectStore, drive *storage.DriveUploader, backend transcription.Backend) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		runner:  runner,
		scratch: scratch,
		store:   store,
		drive:   drive,
		backend: backend,
	}
}

// Prepare takes a raw source file through sanitize, segment and transcribe,
// returning an editable session. A failure in sanitize or segment is fatal
// for the file; transcription failures degrade to per-segment warnings.
func (o *Orchestrator) Prepare(ctx context.Context, projectID, name, sourcePath string, notify Notifier) (*Session, error) {
	dir, err := o.scratch.ProjectDir(projectID)
	if err != nil {
		return nil, types.NewStageError(types.StageSanitize, err)
	}

	emit(notify, Event{JobID: projectID, Stage: types.StageSanitize, Status: types.StatusProcessing})
	san := media.NewSanitizer(o.runner, dir, media.SanitizeOptions{
		FrameRate:  o.cfg.Canonical.FrameRate,
		SampleRate: o.cfg.Canonical.SampleRate,
		Preset:     o.cfg.Canonical.Preset,
		CRF:        o.cfg.Canonical.CRF,
		GOPSeconds: o.cfg.Canonical.GOPSeconds,
	})
	cm, err := san.Sanitize(ctx, sourcePath)
	if err != nil {
		return nil, err
	}

	emit(notify, Event{JobID: projectID, Stage: types.StageSegment, Status: types.StatusProcessing})
	tl, err := o.segmentMedia(ctx, dir, san, cm)
	if err != nil {
		return nil, err
	}

	sess := &Session{ProjectID: projectID, Name: name, Media: cm, Timeline: tl}
	o.persist(sess, sourcePath, types.StatusProcessing)

	if o.backend != nil {
		emit(notify, Event{JobID: projectID, Stage: types.StageTranscribe, Status: types.StatusProcessing})
		aligner := transcription.NewAligner(o.backend, san, dir, o.cfg.Transcription.Language)
		warnings, err := aligner.Align(ctx, cm, tl, func(done, total int) {
			emit(notify, Event{JobID: projectID, Stage: types.StageTranscribe,
				Status: types.StatusProcessing, Done: done, Total: total})
		})
		if err != nil {
			// Align only fails on cancellation.
			return nil, err
		}
		sess.Warnings = warnings
		for _, w := range warnings {
			emit(notify, Event{JobID: projectID, Stage: types.StageTranscribe,
				Status: types.StatusProcessing, Message: w.String()})
		}
	}

	o.persist(sess, sourcePath, types.StatusCompleted)
	return sess, nil
}

// segmentMedia detects silence and builds the validated initial timeline.
func (o *Orchestrator) segmentMedia(ctx context.Context, dir string, san *media.Sanitizer, cm *media.CanonicalMedia) (*timeline.Timeline, error) {
	opts := segment.Options{
		ThresholdDb: o.cfg.Segmenter.SilenceThresholdDb,
		MinSilence:  o.cfg.Segmenter.MinSilenceSeconds,
		Padding:     o.cfg.Segmenter.PaddingSeconds,
	}

	var spans []segment.Span
	var err error
	switch o.cfg.Segmenter.Detector {
	case "wav":
		wavPath := filepath.Join(dir, "analysis.wav")
		if err := san.ExtractAudio(ctx, cm, wavPath, 0, 0, 16000); err != nil {
			return nil, types.NewStageError(types.StageSegment, err)
		}
		spans, err = segment.NewWaveDetector().DetectSilence(ctx, wavPath, opts)
		os.Remove(wavPath)
	default:
		spans, err = segment.NewFFmpegDetector(o.runner).DetectSilence(ctx, cm.Path, opts)
	}
	if err != nil {
		return nil, types.NewStageError(types.StageSegment, err)
	}

	segs, err := segment.Build(spans, cm.DurationFrames, cm.FrameRate, opts)
	if err != nil {
		return nil, err
	}
	tl, err := timeline.New(cm.FrameRate, cm.DurationFrames, segs)
	if err != nil {
		return nil, types.NewStageError(types.StageSegment, err)
	}
	return tl, nil
}

// RenderOptions selects the per-render extras on top of the configured
// loudness and ducking parameters.
type RenderOptions struct {
	MusicPath  string
	IntroTitle string
	OutputPath string // empty = dated path under the configured output dir
}

// Render composes the session's active segments into the final file. Renders
// for the same session are serialized; concurrent edits simply land in
// whichever plan snapshot comes next.
func (o *Orchestrator) Render(ctx context.Context, sess *Session, opts RenderOptions) (render.Result, error) {
	sess.renderMu.Lock()
	defer sess.renderMu.Unlock()

	dir, err := o.scratch.ProjectDir(sess.ProjectID)
	if err != nil {
		return render.Result{}, types.NewStageError(types.StageRender, err)
	}

	outPath := opts.OutputPath
	if outPath == "" {
		outPath = storage.DatedOutputPath(o.cfg.Storage.OutputDir, sess.ProjectID+".mp4")
	}

	comp := render.NewCompositor(o.runner, &storage.Scratch{Root: dir})
	res, err := comp.Render(ctx, sess.Media, sess.Timeline, render.OutputConfig{
		LoudnessTarget: o.cfg.Render.LoudnessTarget,
		TruePeak:       o.cfg.Render.TruePeak,
		LoudnessRange:  o.cfg.Render.LoudnessRange,
		MusicPath:      opts.MusicPath,
		Music: render.MusicOptions{
			GainDb:  o.cfg.Render.MusicGainDb,
			DuckDb:  o.cfg.Render.DuckGainDb,
			Attack:  o.cfg.Render.DuckAttack,
			Release: o.cfg.Render.DuckRelease,
		},
		IntroTitle:    opts.IntroTitle,
		IntroSeconds:  o.cfg.Render.IntroSeconds,
		FontFile:      findFont(o.cfg.Render.FontsDir),
		SubtitleStyle: o.cfg.Render.SubtitleStyle,
	}, outPath)
	if err != nil {
		return render.Result{}, err
	}

	if o.drive != nil {
		o.uploadWithRetry(res.OutputPath, sess.Name)
	}
	return res, nil
}

// uploadWithRetry pushes the render to Drive, backing off between attempts.
// Upload failure never fails the render: the file is already published
// locally.
func (o *Orchestrator) uploadWithRetry(path, name string) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		var url string
		url, err = o.drive.UploadRender(path, name)
		if err == nil {
			log.Printf("Render uploaded to Drive: %s", url)
			return
		}
		log.Printf("Drive upload attempt %d/3 failed: %v", attempt, err)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}
	}
	log.Printf("WARNING: Drive upload failed after 3 attempts, render kept locally: %s", path)
}

// persist saves the project row and segment snapshot, logging rather than
// failing: persistence is best-effort, the session lives in memory.
func (o *Orchestrator) persist(sess *Session, sourcePath, status string) {
	if o.store == nil {
		return
	}
	err := o.store.SaveProject(storage.Project{
		ID:             sess.ProjectID,
		Name:           sess.Name,
		SourcePath:     sourcePath,
		CanonicalPath:  sess.Media.Path,
		FrameRate:      sess.Media.FrameRate,
		DurationFrames: sess.Media.DurationFrames,
		Status:         status,
	})
	if err == nil {
		err = o.store.SaveSegments(sess.ProjectID, sess.Timeline.Segments())
	}
	if err != nil {
		log.Printf("Failed to persist project %s: %v", sess.ProjectID, err)
	}
}

// SaveSnapshot persists the current segment state after an edit transaction.
func (o *Orchestrator) SaveSnapshot(sess *Session) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveSegments(sess.ProjectID, sess.Timeline.Segments()); err != nil {
		log.Printf("Failed to persist segments for %s: %v", sess.ProjectID, err)
	}
}

// Restore rebuilds a session from persisted state, re-probing the canonical
// file. Used at startup so editing can resume across restarts.
func (o *Orchestrator) Restore(ctx context.Context, projectID string) (*Session, error) {
	if o.store == nil {
		return nil, fmt.Errorf("no project store configured")
	}
	p, err := o.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if p.CanonicalPath == "" {
		return nil, fmt.Errorf("project %s has no canonical media", projectID)
	}
	info, err := o.runner.Probe(ctx, p.CanonicalPath)
	if err != nil {
		return nil, fmt.Errorf("canonical media missing: %w", err)
	}
	if !info.HasAudio {
		return nil, fmt.Errorf("canonical media %s has no audio", p.CanonicalPath)
	}

	segs, err := o.store.LoadSegments(projectID)
	if err != nil {
		return nil, err
	}
	tl, err := timeline.New(p.FrameRate, p.DurationFrames, segs)
	if err != nil {
		return nil, fmt.Errorf("persisted timeline invalid: %w", err)
	}

	return &Session{
		ProjectID: projectID,
		Name:      p.Name,
		Media: &media.CanonicalMedia{
			Path:           p.CanonicalPath,
			FrameRate:      p.FrameRate,
			SampleRate:     o.cfg.Canonical.SampleRate,
			DurationFrames: p.DurationFrames,
			Width:          info.Width,
			Height:         info.Height,
		},
		Timeline: tl,
	}, nil
}

func emit(notify Notifier, ev Event) {
	if notify != nil {
		notify(ev)
	}
}

// findFont returns the first TTF/OTF in dir, for the intro title card.
func findFont(dir string) string {
	if dir == "" {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".ttf" || ext == ".otf" {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}
