package transcription

import "context"

// Result is what a backend returns for one audio slice.
type Result struct {
	Text     string
	Language string
	// Segments are optional sub-segment timestamps relative to the start of
	// the submitted slice. Backends without timing return none.
	Segments []TimedText
}

// TimedText is a timestamped piece of recognized text.
type TimedText struct {
	Start float64
	End   float64
	Text  string
}

// Backend is a pluggable speech-to-text engine. Implementations are treated
// as fallible and possibly slow; a failure on one slice must not abort the
// others.
type Backend interface {
	Transcribe(ctx context.Context, audioPath, language string) (Result, error)
}
