// Package transcribe turns recorded audio into note text. A Transcriber
// converts one audio buffer into a transcript; the Queue serializes
// transcript delivery into the vault through a single consumer.
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
)

// Transcriber converts an audio buffer into plain transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

const defaultModel = "whisper-1"

// HTTPTranscriber calls a whisper-compatible transcription endpoint
// (POST multipart with a "file" part, JSON {"text": ...} response).
type HTTPTranscriber struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewHTTPTranscriber returns a Transcriber talking to endpoint. An empty
// model selects whisper-1.
func NewHTTPTranscriber(endpoint, model string, timeout time.Duration) *HTTPTranscriber {
	if model == "" {
		model = defaultModel
	}
	return &HTTPTranscriber{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if err := mw.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription request: status %d: %s", resp.StatusCode, snippet)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return result.Text, nil
}
