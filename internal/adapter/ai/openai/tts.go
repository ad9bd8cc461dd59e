package openai

import (
	"context"

	"go.uber.org/zap"
)

const capabilityTTS = "text-to-speech"

type speechRequest struct {
	Model string  `json:"model"`
	Voice string  `json:"voice"`
	Input string  `json:"input"`
	Speed float64 `json:"speed"`
}

// Synthesize converts text into MP3 audio bytes. The orchestration core
// never calls this; it is reached only through the public TTS endpoint.
func (c *Client) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	audio, err := c.postJSON(ctx, capabilityTTS, "/audio/speech", speechRequest{
		Model: c.cfg.TTSModel,
		Voice: voice,
		Input: text,
		Speed: speed,
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("Speech generated",
		zap.Int("text_len", len(text)),
		zap.Int("audio_bytes", len(audio)),
		zap.String("voice", voice),
	)

	return audio, nil
}
