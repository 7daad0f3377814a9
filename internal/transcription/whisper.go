package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// WhisperTranscriber shells out to Python's OpenAI Whisper. Calls are
// serialized: the model is memory-hungry and two concurrent runs on one
// machine thrash rather than speed anything up.
type WhisperTranscriber struct {
	modelName string
	pythonBin string
	scratch   string
	mu        sync.Mutex
}

// NewWhisperTranscriber creates a transcriber using `python -m whisper`.
// Whisper availability is verified on first transcription, not here.
func NewWhisperTranscriber(modelName, pythonBin, scratchDir string) *WhisperTranscriber {
	if modelName == "" {
		modelName = "base"
	}
	if pythonBin == "" {
		pythonBin = "python3"
	}
	log.Printf("Whisper backend ready (model: %s, via: %s -m whisper)", modelName, pythonBin)
	return &WhisperTranscriber{modelName: modelName, pythonBin: pythonBin, scratch: scratchDir}
}

// Transcribe runs Whisper on one audio slice and returns its text.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath, language string) (Result, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	outDir, err := os.MkdirTemp(wt.scratch, "whisper_out_")
	if err != nil {
		return Result{}, fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("resolve audio path: %w", err)
	}

	args := []string{
		"-m", "whisper",
		absAudioPath,
		"--model", wt.modelName,
		"--output_dir", outDir,
		"--output_format", "json",
		"--fp16", "False",
	}
	if language != "" {
		args = append(args, "--language", language)
	}

	cmd := exec.CommandContext(ctx, wt.pythonBin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("whisper failed: %w\n%s", err, tail(string(output), 400))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonData, err := os.ReadFile(filepath.Join(outDir, baseName+".json"))
	if err != nil {
		return Result{}, fmt.Errorf("read whisper output: %w", err)
	}
	return parseWhisperJSON(jsonData)
}

// whisperOutput matches Python Whisper's JSON output format.
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func parseWhisperJSON(data []byte) (Result, error) {
	var wo whisperOutput
	if err := json.Unmarshal(data, &wo); err != nil {
		return Result{}, fmt.Errorf("parse whisper JSON: %w", err)
	}
	res := Result{
		Text:     strings.TrimSpace(wo.Text),
		Language: wo.Language,
	}
	for _, s := range wo.Segments {
		res.Segments = append(res.Segments, TimedText{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return res, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
