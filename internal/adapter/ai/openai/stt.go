package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
)

const capabilitySTT = "speech-to-text"

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe converts audio bytes into text using the configured STT model.
// The detected language falls back to "unknown" when the provider omits it.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, languageHint string) (*domain.Transcript, error) {
	if len(audio) == 0 {
		return nil, domain.NewCapabilityRejected(capabilitySTT, "audio payload is empty")
	}
	if filename == "" {
		filename = "audio.wav"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, domain.NewCapabilityUnavailable(capabilitySTT, err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, domain.NewCapabilityUnavailable(capabilitySTT, err)
	}
	if err := writer.WriteField("model", c.cfg.STTModel); err != nil {
		return nil, domain.NewCapabilityUnavailable(capabilitySTT, err)
	}
	if languageHint != "" {
		if err := writer.WriteField("language", languageHint); err != nil {
			return nil, domain.NewCapabilityUnavailable(capabilitySTT, err)
		}
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, domain.NewCapabilityUnavailable(capabilitySTT, err)
	}
	if err := writer.Close(); err != nil {
		return nil, domain.NewCapabilityUnavailable(capabilitySTT, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, domain.NewCapabilityUnavailable(capabilitySTT, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(ctx, capabilitySTT, req)
	if err != nil {
		return nil, err
	}

	var result transcriptionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, domain.NewCapabilityUnavailable(capabilitySTT, fmt.Errorf("openai: decode transcription: %w", err))
	}

	language := result.Language
	if language == "" {
		language = "unknown"
	}

	c.log.Info("Transcription complete",
		zap.Int("audio_bytes", len(audio)),
		zap.String("language", language),
	)

	return &domain.Transcript{Text: result.Text, Language: language}, nil
}
