package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Info describes a media file as reported by ffprobe.
type Info struct {
	Duration   float64
	FPS        float64
	Width      int
	Height     int
	SampleRate int
	HasVideo   bool
	HasAudio   bool
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}

// Probe returns stream information for a media file.
func (r *Runner) Probe(ctx context.Context, path string) (Info, error) {
	out, err := r.RunFFprobe(ctx,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	if err != nil {
		return Info{}, err
	}
	return parseProbeOutput(out)
}

func parseProbeOutput(data []byte) (Info, error) {
	var po probeOutput
	if err := json.Unmarshal(data, &po); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info Info
	if po.Format.Duration != "" {
		d, err := strconv.ParseFloat(po.Format.Duration, 64)
		if err != nil {
			return Info{}, fmt.Errorf("parse duration %q: %w", po.Format.Duration, err)
		}
		info.Duration = d
	}

	for _, s := range po.Streams {
		switch s.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.Width = s.Width
			info.Height = s.Height
			info.FPS = parseFrameRate(s.RFrameRate)
		case "audio":
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			if s.SampleRate != "" {
				sr, err := strconv.Atoi(s.SampleRate)
				if err == nil {
					info.SampleRate = sr
				}
			}
		}
	}
	return info, nil
}

// parseFrameRate parses ffprobe's rational frame rate (e.g. "30000/1001").
func parseFrameRate(s string) float64 {
	if s == "" {
		return 0
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
