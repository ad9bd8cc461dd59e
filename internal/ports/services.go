package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/careagent/medai/internal/domain"
)

// SpeechToText converts audio bytes into raw text. Implementations must
// honor ctx deadlines and report failures through domain error kinds.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, filename, languageHint string) (*domain.Transcript, error)
}

// OCR converts image or paginated-document bytes into a single raw-text
// string with pages concatenated in reading order.
type OCR interface {
	ExtractText(ctx context.Context, file []byte, filename string) (string, error)
}

// TextToSpeech synthesizes audio. The orchestration core never calls this
// port; only the public TTS endpoint does.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error)
}

// LLMExtractor turns raw text into schema-shaped JSON for one of the named
// extraction schemas. The normalizer owns coercion and defaulting; the
// adapter only guarantees syntactically valid JSON.
type LLMExtractor interface {
	Extract(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error)
}

// BackendReader is the read-only view of the backend collaborator. There is
// deliberately no method that could issue a write.
type BackendReader interface {
	// Read performs a GET against the given backend path.
	Read(ctx context.Context, endpoint string, query map[string]string) (json.RawMessage, error)

	// LowStockMedicines returns the user's medicines running low.
	LowStockMedicines(ctx context.Context, userID int) ([]domain.MedicineFact, error)
}

// Cache is the TTL store behind the backend reader. Entries are serialized
// backend responses, so values are plain strings and everything expires;
// there is no invalidation path because the service never writes the data
// it caches. The orchestration core itself never caches across requests.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping() error
	Close() error
}

// SecretSource supplies external credentials. The core treats them as
// opaque and never inspects or logs them.
type SecretSource interface {
	AIProviderKey() (string, error)
	BackendToken() (string, error)
}
