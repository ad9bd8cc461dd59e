package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/service/extract"
	"github.com/careagent/medai/internal/service/intent"
)

type ExtractHandler struct {
	extractor  *extract.Service
	classifier *intent.Classifier
	log        *zap.Logger
}

func NewExtractHandler(extractor *extract.Service, classifier *intent.Classifier, log *zap.Logger) *ExtractHandler {
	return &ExtractHandler{
		extractor:  extractor,
		classifier: classifier,
		log:        log,
	}
}

type extractRequest struct {
	Text              string  `json:"text"`
	UserID            *int    `json:"user_id"`
	DoctorID          *int    `json:"doctor_id"`
	PrescriptionImage *string `json:"prescription_image"`
}

func (r *extractRequest) validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return domain.NewValidationError("text is required")
	}
	return nil
}

// Prescription handles POST /api/v1/extract/prescription and returns the
// AI-readable record.
func (h *ExtractHandler) Prescription(c *fiber.Ctx) error {
	var req extractRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	p, err := h.extractor.ExtractPrescription(c.Context(), req.Text)
	if err != nil {
		return err
	}

	return c.JSON(p)
}

// PrescriptionBackend handles POST /api/v1/extract/prescription-backend and
// returns the backend-ready record.
func (h *ExtractHandler) PrescriptionBackend(c *fiber.Ctx) error {
	var req extractRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	rx, err := h.extractor.ExtractPrescriptionBackend(c.Context(), req.Text, domain.ConversionContext{
		UserID:               req.UserID,
		DoctorID:             req.DoctorID,
		PrescriptionImageURL: req.PrescriptionImage,
	})
	if err != nil {
		return err
	}

	return c.JSON(rx)
}

// LabReport handles POST /api/v1/extract/lab-report.
func (h *ExtractHandler) LabReport(c *fiber.Ctx) error {
	var req extractRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	report, err := h.extractor.ExtractLabReport(c.Context(), req.Text)
	if err != nil {
		return err
	}

	return c.JSON(report)
}

type voiceIntentResponse struct {
	*domain.IntentRecord
	Medicine *domain.BackendMedicine `json:"medicine,omitempty"`
}

// VoiceIntent handles POST /api/v1/extract/voice-intent. It classifies
// conversational text and, for add_medicine, derives a backend-ready
// medicine proposal from the intent slots.
func (h *ExtractHandler) VoiceIntent(c *fiber.Ctx) error {
	var req extractRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	record, err := h.classifier.Classify(c.Context(), req.Text)
	if err != nil {
		return err
	}

	resp := voiceIntentResponse{IntentRecord: record}
	if record.Intent == domain.IntentAddMedicine {
		if med, err := extract.MedicineFromIntent(record.Data); err == nil {
			resp.Medicine = &med
		}
	}

	return c.JSON(resp)
}
