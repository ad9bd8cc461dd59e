package chat

import (
	"net/http"

	"github.com/careagent/medai/internal/domain"
)

// TTSEndpoint is the public path the deferred TTS instruction points at.
const TTSEndpoint = "/api/v1/voice/tts"

// VoiceNormalizer yields a playable voice and speed for any caller input.
type VoiceNormalizer interface {
	NormalizeVoice(voice string, speed float64) (string, float64)
}

// Assembler builds the terminal AssistantResponse. Audio is never generated
// here; when the caller asked for voice the response carries a deferred
// instruction whose payload text is exactly the assistant message.
type Assembler struct {
	voices VoiceNormalizer
}

func NewAssembler(voices VoiceNormalizer) *Assembler {
	return &Assembler{voices: voices}
}

// Assemble produces the response skeleton. The orchestrator fills in intent
// and data fields afterwards.
func (a *Assembler) Assemble(requestID string, mode domain.Mode, message string, env *domain.RequestEnvelope) *domain.AssistantResponse {
	resp := &domain.AssistantResponse{
		RequestID:        requestID,
		Success:          true,
		InputType:        mode,
		AssistantMessage: message,
	}

	if env.ReplyMode.WantsAudio() && message != "" {
		voice, speed := a.voices.NormalizeVoice(env.Voice, env.Speed)
		resp.TTS = &domain.TTSInstruction{
			Enabled:  true,
			Endpoint: TTSEndpoint,
			Method:   http.MethodPost,
			Payload: domain.TTSPayload{
				Text:  message,
				Voice: voice,
				Speed: speed,
			},
		}
	}

	return resp
}
