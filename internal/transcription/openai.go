package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const openAIEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// OpenAIBackend submits slices to the hosted audio.transcriptions API.
type OpenAIBackend struct {
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAIBackend creates a hosted transcription backend.
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAIBackend{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

type openAIResp struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads one audio slice as multipart form data.
func (o *OpenAIBackend) Transcribe(ctx context.Context, audioPath, language string) (Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", o.model); err != nil {
		return Result{}, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return Result{}, err
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return Result{}, err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Result{}, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return Result{}, err
	}
	if err := mw.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEndpoint, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("openai http %d: %s", resp.StatusCode, string(b))
	}

	var or openAIResp
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return Result{}, err
	}
	res := Result{Text: or.Text, Language: or.Language}
	for _, s := range or.Segments {
		res.Segments = append(res.Segments, TimedText{Start: s.Start, End: s.End, Text: s.Text})
	}
	return res, nil
}
