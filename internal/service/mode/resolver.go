package mode

import (
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
)

// Resolver decides which processing pipeline a request envelope enters.
// Resolution is pure inspection; it never touches payload contents.
type Resolver struct {
	log *zap.Logger
}

func NewResolver(log *zap.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve returns the single mode implied by the envelope. Zero payloads and
// multiple payloads are both validation errors; ambiguity is never resolved
// by precedence.
func (r *Resolver) Resolve(env *domain.RequestEnvelope) (domain.Mode, error) {
	switch env.PayloadCount() {
	case 0:
		return "", domain.ErrNoInput
	case 1:
	default:
		return "", domain.ErrAmbiguousInput
	}

	var mode domain.Mode
	switch {
	case len(env.Audio) > 0:
		mode = domain.ModeVoice
	case len(env.Document) > 0:
		mode = domain.ModeDocument
	default:
		mode = domain.ModeText
	}

	r.log.Debug("Request mode resolved", zap.String("mode", string(mode)))
	return mode, nil
}
