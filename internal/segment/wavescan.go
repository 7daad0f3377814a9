package segment

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// WaveDetector scans a PCM WAV file directly, classifying short RMS windows
// against the threshold. It needs the analysis WAV the sanitizer extracts,
// but runs without spawning ffmpeg, which also makes the segmentation math
// testable on synthetic audio.
type WaveDetector struct {
	// WindowMs is the RMS window size in milliseconds.
	WindowMs int
}

// NewWaveDetector creates a detector with a 20 ms analysis window.
func NewWaveDetector() *WaveDetector {
	return &WaveDetector{WindowMs: 20}
}

// DetectSilence returns the silence spans of a mono or stereo WAV file.
func (d *WaveDetector) DetectSilence(ctx context.Context, audioPath string, opts Options) ([]Span, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("wav %s contains no samples", audioPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sampleRate := buf.Format.SampleRate
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	fullScale := float64(int64(1) << (bitDepth - 1))

	windowMs := d.WindowMs
	if windowMs <= 0 {
		windowMs = 20
	}
	windowSamples := sampleRate * windowMs / 1000 * channels
	if windowSamples == 0 {
		windowSamples = len(buf.Data)
	}

	var spans []Span
	var inSilence bool
	var silenceStart float64

	total := len(buf.Data)
	for off := 0; off < total; off += windowSamples {
		end := off + windowSamples
		if end > total {
			end = total
		}
		db := rmsDb(buf.Data[off:end], fullScale)
		t := float64(off) / float64(channels) / float64(sampleRate)

		if db < opts.ThresholdDb {
			if !inSilence {
				inSilence = true
				silenceStart = t
			}
		} else if inSilence {
			inSilence = false
			spans = append(spans, Span{Start: silenceStart, End: t})
		}
	}
	if inSilence {
		spans = append(spans, Span{Start: silenceStart, End: float64(total) / float64(channels) / float64(sampleRate)})
	}

	// The RMS windows flag every dip; enforce the minimum duration here,
	// mirroring what silencedetect's d= parameter does.
	kept := spans[:0]
	for _, s := range spans {
		if s.Duration() >= opts.MinSilence {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

// rmsDb computes RMS amplitude of int samples in dBFS.
func rmsDb(samples []int, fullScale float64) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, v := range samples {
		f := float64(v) / fullScale
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
