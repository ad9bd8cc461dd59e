package domain

import "encoding/json"

// TTSPayload is the body the caller posts to the TTS endpoint when it
// decides to spend the cost of audio synthesis.
type TTSPayload struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// TTSInstruction is a self-describing, deferred instruction. The
// orchestration core emits it but never executes it; audio generation stays
// decoupled so the core remains stateless and fast.
type TTSInstruction struct {
	Enabled  bool       `json:"enabled"`
	Endpoint string     `json:"endpoint"`
	Method   string     `json:"method"`
	Payload  TTSPayload `json:"payload"`
}

// Transcript is the STT capability output.
type Transcript struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// MedicineFact is a read-only backend row about a stored medicine.
type MedicineFact struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// AssistantResponse is the single terminal output of a successful chat
// request. TTS is omitted entirely (not null) for text-only replies.
type AssistantResponse struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	InputType Mode   `json:"input_type"`

	Intent     Intent  `json:"intent,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Data is the AI-prepared proposal; the caller decides whether to save.
	Data *StructuredData `json:"data,omitempty"`

	BackendAction *BackendAction  `json:"backend_action,omitempty"`
	DBData        json.RawMessage `json:"db_data,omitempty"`

	AssistantMessage string `json:"assistant_message"`

	TTS *TTSInstruction `json:"tts,omitempty"`

	ConfirmationNeeded bool `json:"confirmation_needed"`
}
