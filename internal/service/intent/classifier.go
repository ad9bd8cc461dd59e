package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/ports"
)

// Classifier turns conversational text into an IntentRecord. It owns the
// confidence gate and the confirmation policy; the capability adapter only
// supplies the raw classification.
type Classifier struct {
	extractor ports.LLMExtractor
	threshold float64
	log       *zap.Logger
}

func NewClassifier(extractor ports.LLMExtractor, threshold float64, log *zap.Logger) *Classifier {
	if threshold <= 0 {
		threshold = 0.6
	}
	return &Classifier{
		extractor: extractor,
		threshold: threshold,
		log:       log,
	}
}

// rawClassification is the model's JSON shape before the gate is applied.
type rawClassification struct {
	Intent         string                 `json:"intent"`
	Confidence     float64                `json:"confidence"`
	Data           map[string]interface{} `json:"data"`
	UserResponse   string                 `json:"user_response"`
	DatabaseAction *struct {
		APIEndpoint  string            `json:"api_endpoint"`
		QueryFilters map[string]string `json:"query_filters"`
	} `json:"database_action"`
}

// Classify produces the intent record for one message. Capability failures
// propagate with their kind intact; a classification the gate does not trust
// is not an error, it collapses to unknown with confirmation forced.
func (c *Classifier) Classify(ctx context.Context, text string) (*domain.IntentRecord, error) {
	payload, err := c.extractor.Extract(ctx, text, domain.SchemaIntent)
	if err != nil {
		return nil, err
	}

	var raw rawClassification
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, domain.NewExtractionError("intent payload does not match schema", err)
	}

	record := &domain.IntentRecord{
		Intent:       domain.Intent(strings.ToLower(strings.TrimSpace(raw.Intent))),
		Confidence:   raw.Confidence,
		Data:         stringifyData(raw.Data),
		UserResponse: raw.UserResponse,
	}

	if raw.DatabaseAction != nil && raw.DatabaseAction.APIEndpoint != "" {
		record.BackendAction = &domain.BackendAction{
			Endpoint:     raw.DatabaseAction.APIEndpoint,
			QueryFilters: raw.DatabaseAction.QueryFilters,
		}
	}

	if !domain.KnownIntents[record.Intent] || record.Confidence < c.threshold {
		c.log.Debug("Intent collapsed to unknown",
			zap.String("raw_intent", raw.Intent),
			zap.Float64("confidence", raw.Confidence),
			zap.Float64("threshold", c.threshold),
		)
		record.Intent = domain.IntentUnknown
		record.BackendAction = nil
		// The model's suggested reply was written for the intent the gate
		// just rejected; surfacing it would act on that intent in prose.
		record.UserResponse = ""
		record.ConfirmationNeeded = true
		record.ConfirmationMessage = "I am not sure what you meant. Could you rephrase that?"
		return record, nil
	}

	if record.Intent.StateChanging() {
		record.ConfirmationNeeded = true
		record.ConfirmationMessage = confirmationFor(record)
	}

	c.log.Info("Intent classified",
		zap.String("intent", string(record.Intent)),
		zap.Float64("confidence", record.Confidence),
	)
	return record, nil
}

func confirmationFor(record *domain.IntentRecord) string {
	switch record.Intent {
	case domain.IntentAddMedicine:
		if name, ok := record.Data["medicine_name"]; ok && name != "" {
			return fmt.Sprintf("Do you want me to add %s to your medicine schedule?", name)
		}
		return "Do you want me to add this medicine to your schedule?"
	case domain.IntentScheduleAppointment:
		if date, ok := record.Data["date"]; ok && date != "" {
			return fmt.Sprintf("Should I prepare an appointment request for %s?", date)
		}
		return "Should I prepare this appointment request?"
	default:
		return "Please confirm before I proceed."
	}
}

func stringifyData(raw map[string]interface{}) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			continue
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
