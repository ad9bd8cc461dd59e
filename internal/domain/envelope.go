package domain

import "strings"

// Mode is the processing pipeline selected for a request.
type Mode string

const (
	ModeText     Mode = "text"
	ModeVoice    Mode = "voice"
	ModeDocument Mode = "document"
)

// ReplyMode controls whether the assembled response carries a TTS instruction.
type ReplyMode string

const (
	ReplyModeText  ReplyMode = "text"
	ReplyModeVoice ReplyMode = "voice"
	ReplyModeBoth  ReplyMode = "both"
)

// NormalizeReplyMode trims and lowercases the caller-supplied value and
// falls back to text for anything unrecognized.
func NormalizeReplyMode(raw string) ReplyMode {
	switch ReplyMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ReplyModeVoice:
		return ReplyModeVoice
	case ReplyModeBoth:
		return ReplyModeBoth
	default:
		return ReplyModeText
	}
}

// WantsAudio reports whether the response must embed a TTS instruction.
func (m ReplyMode) WantsAudio() bool {
	return m == ReplyModeVoice || m == ReplyModeBoth
}

// Provenance tags raw text with where it came from. OCR text is eligible for
// prescription and lab extraction; STT and direct text feed intent detection.
type Provenance string

const (
	ProvenanceDirect Provenance = "direct"
	ProvenanceSTT    Provenance = "stt"
	ProvenanceOCR    Provenance = "ocr"
)

// RawText is the plain-text form of any input, produced by STT, OCR or
// supplied directly by the caller.
type RawText struct {
	Text       string
	Provenance Provenance
	Language   string
}

// RequestEnvelope is the single inbound request shape. Exactly one of Text,
// Audio or Document must be set; the mode resolver enforces that.
type RequestEnvelope struct {
	Text             string
	Audio            []byte
	AudioFilename    string
	Document         []byte
	DocumentFilename string

	// DocumentSchema selects the extraction branch for document mode. The
	// pipeline never guesses; callers that omit it get a prescription.
	DocumentSchema ExtractionSchema

	UserID   *int
	DoctorID *int

	ReplyMode    ReplyMode
	LanguageHint string

	// Optional TTS overrides echoed into the deferred instruction.
	Voice string
	Speed float64
}

// PayloadCount returns how many of the mutually exclusive payload fields are
// populated.
func (e *RequestEnvelope) PayloadCount() int {
	n := 0
	if strings.TrimSpace(e.Text) != "" {
		n++
	}
	if len(e.Audio) > 0 {
		n++
	}
	if len(e.Document) > 0 {
		n++
	}
	return n
}
