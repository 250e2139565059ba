// Package summarize generates discharge summaries and patient-friendly
// instruction text from clinical transcriptions via a hosted text
// generation service.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PatientInfo carries the demographic and clinical context fed into
// summary generation.
type PatientInfo struct {
	Name               string `json:"name"`
	Age                int    `json:"age"`
	Gender             string `json:"gender"`
	MedicalHistory     string `json:"medical_history"`
	CurrentMedications string `json:"current_medications"`
	Allergies          string `json:"allergies"`
}

// Summarizer produces discharge summaries and simplified instructions.
type Summarizer interface {
	Summarize(ctx context.Context, transcription string, patient PatientInfo) (string, error)
	SimplifyInstructions(ctx context.Context, instruction, readingLevel, extraContext string) (string, error)
}

// LLMClient calls an OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  zerolog.Logger
}

func NewLLMClient(baseURL, apiKey, model string, logger zerolog.Logger) *LLMClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &LLMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger.With().Str("component", "summarize").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *LLMClient) Summarize(ctx context.Context, transcription string, patient PatientInfo) (string, error) {
	if strings.TrimSpace(transcription) == "" {
		return "", fmt.Errorf("summarize: empty transcription")
	}
	allergies := patient.Allergies
	if allergies == "" {
		allergies = "None"
	}
	prompt := fmt.Sprintf(`Based on the following medical transcription and patient information, generate a comprehensive discharge summary.

Transcription: %s

Patient Information:
Name: %s
Age: %d
Gender: %s
Medical History: %s
Current Medications: %s
Allergies: %s

Provide a detailed discharge summary including:
1. Primary diagnosis and secondary conditions
2. Procedures performed
3. Medications prescribed
4. Discharge instructions
5. Follow-up recommendations
6. Any special instructions or precautions`,
		transcription, patient.Name, patient.Age, patient.Gender,
		patient.MedicalHistory, patient.CurrentMedications, allergies)

	return c.complete(ctx, "You are a clinical documentation assistant that writes discharge summaries.", prompt)
}

func (c *LLMClient) SimplifyInstructions(ctx context.Context, instruction, readingLevel, extraContext string) (string, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", fmt.Errorf("summarize: empty instruction")
	}
	if readingLevel == "" {
		readingLevel = "6th grade"
	}
	prompt := fmt.Sprintf(`Simplify the following medical instruction to make it easy for patients to understand.

Medical Instruction:
%s

Target Reading Level: %s
Additional Context: %s

Rewrite this instruction in simple, clear language that a patient can easily follow. Use everyday words instead of medical jargon.`,
		instruction, readingLevel, extraContext)

	return c.complete(ctx, "You rewrite medical instructions in plain language for patients.", prompt)
}

func (c *LLMClient) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("summarize: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("summarize: service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summarize: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("summarize: service returned no choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("summarize: service returned empty summary")
	}
	c.logger.Debug().Int("chars", len(text)).Msg("generated text")
	return text, nil
}
