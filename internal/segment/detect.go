package segment

import "context"

// Span is a detected silence interval in source seconds.
type Span struct {
	Start float64
	End   float64
}

// Duration returns the span length in seconds.
func (s Span) Duration() float64 { return s.End - s.Start }

// Options controls silence detection and classification.
type Options struct {
	// ThresholdDb is the loudness below which a window counts as silent.
	ThresholdDb float64
	// MinSilence is the minimum duration (seconds) for an interval to be
	// promoted to a Silence segment. Shorter dips are natural speech pauses.
	MinSilence float64
	// Padding (seconds) is shaved off both ends of each silence and handed
	// back to the neighboring speech, so cuts never clip a word.
	Padding float64
}

// Detector finds silence intervals in an audio source. Implementations:
// FFmpegDetector (silencedetect filter) and WaveDetector (native RMS scan
// over an extracted WAV).
type Detector interface {
	DetectSilence(ctx context.Context, audioPath string, opts Options) ([]Span, error)
}
