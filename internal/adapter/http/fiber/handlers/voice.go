package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/service/speech"
)

type VoiceHandler struct {
	speech *speech.Service
	log    *zap.Logger
}

func NewVoiceHandler(speech *speech.Service, log *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		speech: speech,
		log:    log,
	}
}

// Transcribe handles POST /api/v1/voice/stt. Audio arrives as a multipart
// file field named "audio".
func (h *VoiceHandler) Transcribe(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return domain.NewValidationError("multipart field 'audio' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return domain.NewValidationError("could not open uploaded audio")
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return domain.NewValidationError("could not read uploaded audio")
	}

	transcript, err := h.speech.Transcribe(c.Context(), audio, fileHeader.Filename, c.FormValue("language"))
	if err != nil {
		return err
	}

	return c.JSON(transcript)
}

// Synthesize handles POST /api/v1/voice/tts. The body is the same payload a
// deferred TTS instruction carries; the response is raw MP3 audio.
func (h *VoiceHandler) Synthesize(c *fiber.Ctx) error {
	var payload domain.TTSPayload
	if err := c.BodyParser(&payload); err != nil {
		return domain.NewValidationError("invalid TTS payload")
	}

	audio, err := h.speech.Synthesize(c.Context(), payload)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="speech.mp3"`)
	return c.Send(audio)
}
