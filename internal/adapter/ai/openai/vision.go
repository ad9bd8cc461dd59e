package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
)

const capabilityOCR = "ocr"

const ocrPrompt = "Extract ALL text from this document exactly as written, " +
	"preserving reading order. Include every medicine name, dosage, frequency, " +
	"duration, patient detail, date and test result you can see. Return the " +
	"text only, with no commentary."

// ExtractText runs OCR over an uploaded image or PDF via the vision model.
// Images are sent as data-URL parts, PDFs as base64 file parts.
func (c *Client) ExtractText(ctx context.Context, file []byte, filename string) (string, error) {
	if len(file) == 0 {
		return "", domain.NewCapabilityRejected(capabilityOCR, "document payload is empty")
	}

	part, err := documentPart(file, filename)
	if err != nil {
		return "", err
	}

	messages := []Message{
		{
			Role: "user",
			Content: []map[string]interface{}{
				{"type": "text", "text": ocrPrompt},
				part,
			},
		},
	}

	text, err := c.chatCompletion(ctx, capabilityOCR, c.cfg.VisionModel, messages, 0, 0)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewCapabilityRejected(capabilityOCR, "no readable text found in document")
	}

	c.log.Info("OCR complete",
		zap.Int("file_bytes", len(file)),
		zap.Int("text_len", len(text)),
	)

	return text, nil
}

// documentPart builds the multimodal content part for the uploaded file.
func documentPart(file []byte, filename string) (map[string]interface{}, error) {
	encoded := base64.StdEncoding.EncodeToString(file)

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return map[string]interface{}{
			"type": "file",
			"file": map[string]string{
				"filename":  filename,
				"file_data": "data:application/pdf;base64," + encoded,
			},
		}, nil
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", "":
		mime := imageMIME(ext)
		return map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]string{
				"url": fmt.Sprintf("data:%s;base64,%s", mime, encoded),
			},
		}, nil
	default:
		return nil, domain.NewCapabilityRejected(capabilityOCR,
			fmt.Sprintf("unsupported document type %q", ext))
	}
}

func imageMIME(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
