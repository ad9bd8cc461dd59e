package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/observability/telemetry"
	"github.com/careagent/medai/internal/ports"
	"github.com/careagent/medai/internal/service/extract"
	"github.com/careagent/medai/internal/service/intent"
	"github.com/careagent/medai/internal/service/mode"
)

// Orchestrator is the stateless per-request pipeline: resolve mode, acquire
// raw text, extract or classify, read backend data, assemble. It holds no
// per-request state between calls and never writes to persistent storage.
type Orchestrator struct {
	resolver   *mode.Resolver
	stt        ports.SpeechToText
	ocr        ports.OCR
	extractor  *extract.Service
	classifier *intent.Classifier
	backend    ports.BackendReader
	assembler  *Assembler
	log        *zap.Logger
}

func NewOrchestrator(
	resolver *mode.Resolver,
	stt ports.SpeechToText,
	ocr ports.OCR,
	extractor *extract.Service,
	classifier *intent.Classifier,
	backend ports.BackendReader,
	assembler *Assembler,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:   resolver,
		stt:        stt,
		ocr:        ocr,
		extractor:  extractor,
		classifier: classifier,
		backend:    backend,
		assembler:  assembler,
		log:        log,
	}
}

// Handle runs one envelope through the full pipeline. Every error keeps its
// domain kind; nothing is swallowed or silently downgraded on the way out.
func (o *Orchestrator) Handle(ctx context.Context, env *domain.RequestEnvelope) (*domain.AssistantResponse, error) {
	requestID := uuid.New().String()
	log := o.log.With(zap.String("request_id", requestID))

	m, err := o.resolver.Resolve(env)
	if err != nil {
		telemetry.ChatRequestsTotal.WithLabelValues("unresolved", "rejected").Inc()
		return nil, err
	}

	raw, err := o.rawText(ctx, m, env)
	if err != nil {
		telemetry.ChatRequestsTotal.WithLabelValues(string(m), "error").Inc()
		return nil, err
	}

	var resp *domain.AssistantResponse
	if m == domain.ModeDocument {
		resp, err = o.handleDocument(ctx, requestID, env, raw)
	} else {
		resp, err = o.handleConversation(ctx, requestID, m, env, raw)
	}
	if err != nil {
		telemetry.ChatRequestsTotal.WithLabelValues(string(m), "error").Inc()
		return nil, err
	}

	telemetry.ChatRequestsTotal.WithLabelValues(string(m), "ok").Inc()
	log.Info("Request handled",
		zap.String("mode", string(m)),
		zap.String("intent", string(resp.Intent)),
		zap.Bool("confirmation_needed", resp.ConfirmationNeeded),
	)
	return resp, nil
}

// rawText acquires plain text for the resolved mode. Text passes through
// untouched; audio and documents go through their capability adapters.
func (o *Orchestrator) rawText(ctx context.Context, m domain.Mode, env *domain.RequestEnvelope) (domain.RawText, error) {
	switch m {
	case domain.ModeVoice:
		transcript, err := o.stt.Transcribe(ctx, env.Audio, env.AudioFilename, env.LanguageHint)
		if err != nil {
			return domain.RawText{}, err
		}
		if strings.TrimSpace(transcript.Text) == "" {
			return domain.RawText{}, domain.NewCapabilityRejected("speech-to-text", "no speech detected in audio")
		}
		return domain.RawText{Text: transcript.Text, Provenance: domain.ProvenanceSTT, Language: transcript.Language}, nil

	case domain.ModeDocument:
		text, err := o.ocr.ExtractText(ctx, env.Document, env.DocumentFilename)
		if err != nil {
			return domain.RawText{}, err
		}
		return domain.RawText{Text: text, Provenance: domain.ProvenanceOCR}, nil

	default:
		return domain.RawText{Text: strings.TrimSpace(env.Text), Provenance: domain.ProvenanceDirect}, nil
	}
}

// handleDocument runs the extraction branch. Document requests never go
// through intent classification; the caller chose the schema up front.
func (o *Orchestrator) handleDocument(ctx context.Context, requestID string, env *domain.RequestEnvelope, raw domain.RawText) (*domain.AssistantResponse, error) {
	schema := env.DocumentSchema
	if schema == "" {
		schema = domain.SchemaPrescription
	}

	var data *domain.StructuredData
	var message string

	switch schema {
	case domain.SchemaLabReport:
		report, err := o.extractor.ExtractLabReport(ctx, raw.Text)
		if err != nil {
			telemetry.ExtractionsTotal.WithLabelValues(string(schema), "error").Inc()
			return nil, err
		}
		data = &domain.StructuredData{Schema: domain.SchemaLabReport, LabReport: report}
		message = labReportMessage(report)

	case domain.SchemaPrescription:
		rx, err := o.extractor.ExtractPrescriptionBackend(ctx, raw.Text, domain.ConversionContext{
			UserID:   env.UserID,
			DoctorID: env.DoctorID,
		})
		if err != nil {
			telemetry.ExtractionsTotal.WithLabelValues(string(schema), "error").Inc()
			return nil, err
		}
		data = &domain.StructuredData{Schema: domain.SchemaPrescription, Prescription: rx}
		message = prescriptionMessage(rx)

	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported document schema %q", schema))
	}

	telemetry.ExtractionsTotal.WithLabelValues(string(schema), "ok").Inc()

	resp := o.assembler.Assemble(requestID, domain.ModeDocument, message, env)
	resp.Data = data
	// Extracted data is a proposal; the caller decides whether to save it.
	resp.ConfirmationNeeded = true
	return resp, nil
}

// handleConversation runs the intent branch shared by text and voice modes.
func (o *Orchestrator) handleConversation(ctx context.Context, requestID string, m domain.Mode, env *domain.RequestEnvelope, raw domain.RawText) (*domain.AssistantResponse, error) {
	record, err := o.classifier.Classify(ctx, raw.Text)
	if err != nil {
		return nil, err
	}
	telemetry.IntentsTotal.WithLabelValues(string(record.Intent)).Inc()

	message := record.UserResponse
	if message == "" {
		message = record.ConfirmationMessage
	}
	if message == "" {
		message = "I am here to help with your medicines and appointments."
	}

	resp := o.assembler.Assemble(requestID, m, message, env)
	resp.Intent = record.Intent
	resp.Confidence = record.Confidence
	resp.BackendAction = record.BackendAction
	resp.ConfirmationNeeded = record.ConfirmationNeeded

	if record.Intent == domain.IntentAddMedicine {
		o.attachMedicineProposal(resp, record, env)
	}

	if record.BackendAction != nil {
		dbData, err := o.backend.Read(ctx, record.BackendAction.Endpoint, record.BackendAction.QueryFilters)
		if err != nil {
			telemetry.BackendReadsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		telemetry.BackendReadsTotal.WithLabelValues("ok").Inc()
		resp.DBData = dbData
	}

	if record.Intent == domain.IntentRefillMedicine && env.UserID != nil {
		if err := o.attachRefillSummary(ctx, resp, env); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// attachMedicineProposal wraps spoken medicine details into the same
// backend-ready shape a scanned prescription produces.
func (o *Orchestrator) attachMedicineProposal(resp *domain.AssistantResponse, record *domain.IntentRecord, env *domain.RequestEnvelope) {
	med, err := extract.MedicineFromIntent(record.Data)
	if err != nil {
		// Not enough detail to build a proposal; the confirmation question
		// will draw it out of the user.
		return
	}

	resp.Data = &domain.StructuredData{
		Schema: domain.SchemaPrescription,
		Prescription: &domain.BackendPrescription{
			Users:        env.UserID,
			Doctor:       env.DoctorID,
			Medicines:    []domain.BackendMedicine{med},
			MedicalTests: []domain.BackendMedicalTest{},
		},
	}
}

// attachRefillSummary rewrites the assistant message around the user's
// actual low-stock medicines.
func (o *Orchestrator) attachRefillSummary(ctx context.Context, resp *domain.AssistantResponse, env *domain.RequestEnvelope) error {
	low, err := o.backend.LowStockMedicines(ctx, *env.UserID)
	if err != nil {
		telemetry.BackendReadsTotal.WithLabelValues("error").Inc()
		return err
	}
	telemetry.BackendReadsTotal.WithLabelValues("ok").Inc()

	if len(low) == 0 {
		resp.AssistantMessage = "None of your medicines are running low right now."
	} else {
		parts := make([]string, len(low))
		for i, m := range low {
			parts[i] = fmt.Sprintf("%s (%d left)", m.Name, m.Stock)
		}
		resp.AssistantMessage = "You are running low on " + strings.Join(parts, ", ") + "."
	}

	if resp.TTS != nil {
		resp.TTS.Payload.Text = resp.AssistantMessage
	}
	return nil
}

func prescriptionMessage(rx *domain.BackendPrescription) string {
	n := len(rx.Medicines)
	switch n {
	case 0:
		return "I could not find any medicines on this prescription. Please check the image quality."
	case 1:
		return fmt.Sprintf("I read your prescription and found 1 medicine: %s. Please review and confirm before saving.", rx.Medicines[0].Name)
	default:
		names := make([]string, n)
		for i, m := range rx.Medicines {
			names[i] = m.Name
		}
		return fmt.Sprintf("I read your prescription and found %d medicines: %s. Please review and confirm before saving.", n, strings.Join(names, ", "))
	}
}

func labReportMessage(report *domain.LabReport) string {
	if len(report.Tests) == 0 {
		return "I could not find any test results in this report."
	}
	if len(report.SignificantFindings) == 0 {
		return fmt.Sprintf("I read %d test results and everything looks within normal range.", len(report.Tests))
	}
	return fmt.Sprintf("I read %d test results. Worth discussing with your doctor: %s.",
		len(report.Tests), strings.Join(report.SignificantFindings, "; "))
}
