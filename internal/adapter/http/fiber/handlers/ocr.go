package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/ports"
)

type OCRHandler struct {
	ocr ports.OCR
	log *zap.Logger
}

func NewOCRHandler(ocr ports.OCR, log *zap.Logger) *OCRHandler {
	return &OCRHandler{
		ocr: ocr,
		log: log,
	}
}

// Extract handles POST /api/v1/ocr/extract. The document arrives as a
// multipart file field named "file"; the response is the raw text only,
// without any structuring.
func (h *OCRHandler) Extract(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return domain.NewValidationError("multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return domain.NewValidationError("could not open uploaded file")
	}
	defer file.Close()

	doc, err := io.ReadAll(file)
	if err != nil {
		return domain.NewValidationError("could not read uploaded file")
	}

	text, err := h.ocr.ExtractText(c.Context(), doc, fileHeader.Filename)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"text": text})
}
