package speech

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/ports"
	"github.com/careagent/medai/pkg/config"
)

// Allowed synthesis voices. Anything else falls back to the default.
var validVoices = map[string]bool{
	"alloy":   true,
	"echo":    true,
	"fable":   true,
	"onyx":    true,
	"nova":    true,
	"shimmer": true,
}

const (
	minSpeed = 0.25
	maxSpeed = 4.0
)

// Service fronts the STT and TTS capabilities with input validation. The
// adapters stay dumb transports; policy lives here.
type Service struct {
	stt ports.SpeechToText
	tts ports.TextToSpeech
	cfg config.TTSConfig
	log *zap.Logger
}

func NewService(stt ports.SpeechToText, tts ports.TextToSpeech, cfg config.TTSConfig, log *zap.Logger) *Service {
	return &Service{
		stt: stt,
		tts: tts,
		cfg: cfg,
		log: log,
	}
}

// Transcribe runs STT over uploaded audio.
func (s *Service) Transcribe(ctx context.Context, audio []byte, filename, languageHint string) (*domain.Transcript, error) {
	if len(audio) == 0 {
		return nil, domain.NewValidationError("audio payload is required")
	}
	return s.stt.Transcribe(ctx, audio, filename, languageHint)
}

// Synthesize validates and normalizes a TTS payload, then produces audio.
// An unknown voice silently falls back to the default; an oversized text is
// the caller's error and is rejected.
func (s *Service) Synthesize(ctx context.Context, payload domain.TTSPayload) ([]byte, error) {
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return nil, domain.NewValidationError("text is required")
	}
	if s.cfg.MaxTextLen > 0 && len(text) > s.cfg.MaxTextLen {
		return nil, domain.NewValidationError(
			fmt.Sprintf("text exceeds maximum length of %d characters", s.cfg.MaxTextLen))
	}

	voice, speed := s.NormalizeVoice(payload.Voice, payload.Speed)
	return s.tts.Synthesize(ctx, text, voice, speed)
}

// NormalizeVoice applies the voice fallback and speed clamp. The assembler
// uses it too, so deferred TTS instructions always carry playable values.
func (s *Service) NormalizeVoice(voice string, speed float64) (string, float64) {
	voice = strings.ToLower(strings.TrimSpace(voice))
	if !validVoices[voice] {
		if voice != "" {
			s.log.Debug("Unknown voice requested, using default", zap.String("voice", voice))
		}
		voice = s.cfg.DefaultVoice
	}

	if speed == 0 {
		speed = s.cfg.DefaultSpeed
	}
	if speed < minSpeed {
		speed = minSpeed
	}
	if speed > maxSpeed {
		speed = maxSpeed
	}

	return voice, speed
}
