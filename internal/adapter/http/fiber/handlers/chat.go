package handlers

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/service/chat"
)

type ChatHandler struct {
	orchestrator *chat.Orchestrator
	log          *zap.Logger
}

func NewChatHandler(orchestrator *chat.Orchestrator, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		log:          log,
	}
}

// Chat handles POST /api/v1/ai/chat. Multipart requests may carry an audio
// or document file; JSON requests carry text only. Exactly-one-of is
// enforced downstream by the mode resolver, not here.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	env, err := h.parseEnvelope(c)
	if err != nil {
		return err
	}

	resp, err := h.orchestrator.Handle(c.Context(), env)
	if err != nil {
		return err
	}

	return c.JSON(resp)
}

type chatJSONRequest struct {
	Text         string  `json:"text"`
	ReplyMode    string  `json:"reply_mode"`
	UserID       *int    `json:"user_id"`
	DoctorID     *int    `json:"doctor_id"`
	Language     string  `json:"language"`
	Voice        string  `json:"voice"`
	Speed        float64 `json:"speed"`
	Schema       string  `json:"schema"`
}

func (h *ChatHandler) parseEnvelope(c *fiber.Ctx) (*domain.RequestEnvelope, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return h.parseMultipart(c)
	}

	var req chatJSONRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, domain.NewValidationError("invalid request body")
	}

	return &domain.RequestEnvelope{
		Text:           req.Text,
		DocumentSchema: domain.ExtractionSchema(req.Schema),
		UserID:         req.UserID,
		DoctorID:       req.DoctorID,
		ReplyMode:      domain.NormalizeReplyMode(req.ReplyMode),
		LanguageHint:   req.Language,
		Voice:          req.Voice,
		Speed:          req.Speed,
	}, nil
}

func (h *ChatHandler) parseMultipart(c *fiber.Ctx) (*domain.RequestEnvelope, error) {
	env := &domain.RequestEnvelope{
		Text:           c.FormValue("text"),
		DocumentSchema: domain.ExtractionSchema(c.FormValue("schema")),
		ReplyMode:      domain.NormalizeReplyMode(c.FormValue("reply_mode")),
		LanguageHint:   c.FormValue("language"),
		Voice:          c.FormValue("voice"),
	}

	if v := c.FormValue("speed"); v != "" {
		speed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, domain.NewValidationError("speed must be a number")
		}
		env.Speed = speed
	}
	if v := c.FormValue("user_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, domain.NewValidationError("user_id must be an integer")
		}
		env.UserID = &id
	}
	if v := c.FormValue("doctor_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, domain.NewValidationError("doctor_id must be an integer")
		}
		env.DoctorID = &id
	}

	if header, err := c.FormFile("audio"); err == nil {
		audio, filename, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		env.Audio = audio
		env.AudioFilename = filename
	}
	if header, err := c.FormFile("file"); err == nil {
		doc, filename, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		env.Document = doc
		env.DocumentFilename = filename
	}

	return env, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, string, error) {
	file, err := header.Open()
	if err != nil {
		return nil, "", domain.NewValidationError("could not open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", domain.NewValidationError("could not read uploaded file")
	}
	return data, header.Filename, nil
}
