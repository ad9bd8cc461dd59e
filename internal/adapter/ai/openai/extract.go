package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
)

const capabilityExtraction = "extraction"

const prescriptionPrompt = `You are a medical prescription parser. Extract structured data from the prescription text below.

Return ONLY a JSON object with exactly this structure:
{
  "patient_name": "string or null",
  "patient_age": number or null,
  "prescription_date": "string or null",
  "doctor_name": "string or null",
  "medicines": [
    {
      "name": "string",
      "type": "tablet/syrup/injection/etc or null",
      "dosage": "string, e.g. 500mg",
      "frequency": "string as written, e.g. twice daily, 1+0+1",
      "duration": "string or null, e.g. 7 days",
      "instructions": "string, e.g. after meal",
      "refill_needed": false
    }
  ],
  "diagnosis": "string or null",
  "advice": "string or null"
}

Use null for anything not present in the text. Do not invent values. Return only JSON, no markdown.`

const labReportPrompt = `You are a medical lab report parser. Extract every test result from the report text below.

Return ONLY a JSON object with exactly this structure:
{
  "patient_name": "string or null",
  "report_date": "string or null",
  "lab_name": "string or null",
  "tests": [
    {
      "test_name": "string",
      "value": "string as written, e.g. 7.2",
      "unit": "string or null, e.g. mmol/L",
      "normal_range": "string or null, e.g. 3.9-6.1",
      "status": "low, normal or high, or null if not determinable"
    }
  ]
}

Use null for anything not present in the text. Do not invent values. Return only JSON, no markdown.`

const intentPrompt = `You are an intent classifier for a medical assistant. Classify the user message below into exactly one intent:

- add_medicine: user wants to add a medicine to their schedule
- schedule_appointment: user wants to book a doctor appointment
- query_stock: user asks how much medicine is left
- query_schedule: user asks about their medicine schedule or appointments
- refill_medicine: user asks to refill or restock a medicine
- ask_question: general medical or usage question
- unknown: anything else

Return ONLY a JSON object with exactly this structure:
{
  "intent": "one of the intents above",
  "confidence": number between 0 and 1,
  "data": { "extracted fields like medicine_name, frequency, duration, date": "string values" },
  "user_response": "a short friendly reply to speak back to the user",
  "database_action": {
    "api_endpoint": "backend path to read, or null",
    "query_filters": { "filter": "value" }
  }
}

database_action must be null unless the intent needs backend data. Return only JSON, no markdown.`

// Extract runs schema-directed LLM extraction over raw text and returns the
// model's JSON payload with code fences stripped. Callers validate the JSON
// against their own schema types.
func (c *Client) Extract(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
	if rawText == "" {
		return nil, domain.NewCapabilityRejected(capabilityExtraction, "text payload is empty")
	}

	var prompt string
	var temperature float64
	switch schema {
	case domain.SchemaPrescription:
		prompt = prescriptionPrompt
		temperature = 0.1
	case domain.SchemaLabReport:
		prompt = labReportPrompt
		temperature = 0.1
	case domain.SchemaIntent:
		prompt = intentPrompt
		temperature = 0.2
	default:
		return nil, domain.NewCapabilityRejected(capabilityExtraction,
			fmt.Sprintf("unsupported extraction schema %q", schema))
	}

	messages := []Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: rawText},
	}

	content, err := c.chatCompletion(ctx, capabilityExtraction, c.cfg.ExtractionModel, messages, temperature, 0)
	if err != nil {
		return nil, err
	}

	payload := stripCodeFences(content)
	if !json.Valid([]byte(payload)) {
		return nil, domain.NewExtractionError("model returned invalid JSON", fmt.Errorf("schema %s", schema))
	}

	c.log.Info("Extraction complete",
		zap.String("schema", string(schema)),
		zap.Int("payload_len", len(payload)),
	)

	return json.RawMessage(payload), nil
}
