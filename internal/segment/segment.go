package segment

// Kind classifies a segment as speech or silence.
type Kind string

const (
	KindSpeech  Kind = "speech"
	KindSilence Kind = "silence"
)

// Segment is a contiguous span of the canonical timeline. Boundaries are
// frame counts against the canonical frame rate, so they stay exact no
// matter how long the recording is. Text is only meaningful for speech.
type Segment struct {
	ID         string `json:"id"`
	StartFrame int64  `json:"start_frame"`
	EndFrame   int64  `json:"end_frame"`
	Kind       Kind   `json:"kind"`
	Active     bool   `json:"active"`
	Text       string `json:"text,omitempty"`
}

// Frames returns the segment length in frames.
func (s Segment) Frames() int64 { return s.EndFrame - s.StartFrame }

// StartSeconds converts the start boundary to seconds at the given rate.
func (s Segment) StartSeconds(fps int) float64 { return float64(s.StartFrame) / float64(fps) }

// EndSeconds converts the end boundary to seconds at the given rate.
func (s Segment) EndSeconds(fps int) float64 { return float64(s.EndFrame) / float64(fps) }

// Seconds returns the segment duration in seconds at the given rate.
func (s Segment) Seconds(fps int) float64 { return float64(s.Frames()) / float64(fps) }
