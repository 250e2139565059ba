// Package transcribe adapts a speech-to-text model behind a narrow interface.
// The discharge workflow treats transcription as a black-box request/response
// service; the concrete client speaks the Whisper-style HTTP API.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Transcript is the result of transcribing one audio recording.
type Transcript struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Transcriber converts an audio recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, fileName string) (*Transcript, error)
}

// WhisperClient talks to a Whisper-compatible transcription endpoint.
type WhisperClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewWhisperClient creates a client for the given endpoint. model defaults to
// "whisper-1" when empty.
func NewWhisperClient(baseURL, apiKey, model string, logger zerolog.Logger) *WhisperClient {
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger.With().Str("component", "transcriber").Logger(),
	}
}

// Transcribe uploads the audio as multipart form data and returns the
// transcript.
func (c *WhisperClient) Transcribe(ctx context.Context, audio io.Reader, fileName string) (*Transcript, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("transcribe: build request: %w", err)
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("transcribe: build request: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("transcribe: read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("transcribe: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcribe: endpoint returned %d: %s", resp.StatusCode, data)
	}

	var tr Transcript
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("transcribe: decode response: %w", err)
	}

	c.logger.Info().Str("file", fileName).Int("chars", len(tr.Text)).Msg("audio transcribed")
	return &tr, nil
}
