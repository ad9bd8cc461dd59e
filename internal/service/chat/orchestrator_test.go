package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/mocks"
	"github.com/careagent/medai/internal/service/extract"
	"github.com/careagent/medai/internal/service/intent"
	"github.com/careagent/medai/internal/service/mode"
	"github.com/careagent/medai/internal/service/speech"
	"github.com/careagent/medai/pkg/config"
)

type fixture struct {
	stt       *mocks.MockSpeechToText
	ocr       *mocks.MockOCR
	extractor *mocks.MockLLMExtractor
	backend   *mocks.MockBackendReader
	orch      *Orchestrator
}

func newFixture() *fixture {
	log := zap.NewNop()
	f := &fixture{
		stt:       &mocks.MockSpeechToText{},
		ocr:       &mocks.MockOCR{},
		extractor: &mocks.MockLLMExtractor{},
		backend:   &mocks.MockBackendReader{},
	}

	ttsCfg := config.TTSConfig{DefaultVoice: "nova", DefaultSpeed: 0.9, MaxTextLen: 4000}
	voices := speech.NewService(f.stt, &mocks.MockTextToSpeech{}, ttsCfg, log)

	ranges := map[string]domain.ReferenceRange{
		"blood sugar": {Min: 3.9, Max: 6.1, Unit: "mmol/L"},
	}

	f.orch = NewOrchestrator(
		mode.NewResolver(log),
		f.stt,
		f.ocr,
		extract.NewService(f.extractor, ranges, log),
		intent.NewClassifier(f.extractor, 0.6, log),
		f.backend,
		NewAssembler(voices),
		log,
	)
	return f
}

func intentPayload(name string, confidence float64, extra map[string]interface{}) json.RawMessage {
	body := map[string]interface{}{
		"intent":        name,
		"confidence":    confidence,
		"user_response": "Got it.",
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, _ := json.Marshal(body)
	return payload
}

func TestHandle_AmbiguousInputTouchesNoAdapter(t *testing.T) {
	// Arrange
	f := newFixture()
	env := &domain.RequestEnvelope{
		Text:  "hello",
		Audio: []byte{0x01},
	}

	// Act
	_, err := f.orch.Handle(context.Background(), env)

	// Assert
	if !errors.Is(err, domain.ErrAmbiguousInput) {
		t.Fatalf("expected ErrAmbiguousInput, got %v", err)
	}
	if f.stt.Calls+f.ocr.Calls+f.extractor.Calls+f.backend.ReadCalls != 0 {
		t.Error("no adapter may be called when validation fails")
	}
}

func TestHandle_TextAddMedicine(t *testing.T) {
	// Arrange
	f := newFixture()
	f.extractor.ExtractFunc = func(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
		return intentPayload("add_medicine", 0.9, map[string]interface{}{
			"data": map[string]string{
				"medicine_name": "Napa",
				"frequency":     "twice daily",
				"duration":      "7 days",
			},
		}), nil
	}
	userID := 12
	env := &domain.RequestEnvelope{
		Text:      "Add Napa twice daily for 7 days",
		UserID:    &userID,
		ReplyMode: domain.ReplyModeBoth,
	}

	// Act
	resp, err := f.orch.Handle(context.Background(), env)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.InputType != domain.ModeText {
		t.Errorf("expected text input type, got %s", resp.InputType)
	}
	if resp.Intent != domain.IntentAddMedicine || !resp.ConfirmationNeeded {
		t.Errorf("expected add_medicine with confirmation, got %s / %v", resp.Intent, resp.ConfirmationNeeded)
	}
	if resp.Data == nil || resp.Data.Prescription == nil || len(resp.Data.Prescription.Medicines) != 1 {
		t.Fatalf("expected single-medicine proposal, got %+v", resp.Data)
	}
	med := resp.Data.Prescription.Medicines[0]
	if med.Name != "Napa" || med.Stock == nil || *med.Stock != 14 {
		t.Errorf("unexpected proposal medicine: %+v", med)
	}
	if resp.TTS == nil || !resp.TTS.Enabled {
		t.Fatal("reply_mode both must carry a TTS instruction")
	}
	if resp.TTS.Payload.Text != resp.AssistantMessage {
		t.Error("TTS payload text must equal the assistant message")
	}
	if resp.TTS.Endpoint != TTSEndpoint || resp.TTS.Method != "POST" {
		t.Errorf("unexpected TTS instruction target: %s %s", resp.TTS.Method, resp.TTS.Endpoint)
	}
}

func TestHandle_TextReplyModeOmitsTTS(t *testing.T) {
	// Arrange
	f := newFixture()
	f.extractor.ExtractFunc = func(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
		return intentPayload("ask_question", 0.8, nil), nil
	}
	env := &domain.RequestEnvelope{Text: "can I take this with milk?"}

	// Act
	resp, err := f.orch.Handle(context.Background(), env)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.TTS != nil {
		t.Error("text reply mode must omit the TTS instruction entirely")
	}
}

func TestHandle_SubThresholdSurfacesClarification(t *testing.T) {
	// Arrange: the model is confident enough to draft a reply for
	// add_medicine but not confident enough to pass the gate. The drafted
	// reply must not reach the user; the clarification must.
	f := newFixture()
	f.extractor.ExtractFunc = func(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
		return intentPayload("add_medicine", 0.2, map[string]interface{}{
			"user_response": "Adding Napa to your schedule now.",
			"data":          map[string]string{"medicine_name": "Napa"},
		}), nil
	}
	env := &domain.RequestEnvelope{Text: "napa thing maybe", ReplyMode: domain.ReplyModeBoth}

	// Act
	resp, err := f.orch.Handle(context.Background(), env)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Intent != domain.IntentUnknown || !resp.ConfirmationNeeded {
		t.Fatalf("expected collapsed unknown with confirmation, got %s / %v", resp.Intent, resp.ConfirmationNeeded)
	}
	if resp.AssistantMessage != "I am not sure what you meant. Could you rephrase that?" {
		t.Errorf("user must see the clarification, got %q", resp.AssistantMessage)
	}
	if resp.TTS == nil || resp.TTS.Payload.Text != resp.AssistantMessage {
		t.Error("TTS payload must carry the clarification, not the rejected reply")
	}
	if resp.Data != nil && resp.Data.Prescription != nil {
		t.Error("collapsed intent must not propose a medicine")
	}
}

func TestHandle_VoiceFlowTranscribesFirst(t *testing.T) {
	// Arrange
	f := newFixture()
	f.stt.TranscribeFunc = func(ctx context.Context, audio []byte, filename, languageHint string) (*domain.Transcript, error) {
		return &domain.Transcript{Text: "how many Napa do I have left", Language: "en"}, nil
	}
	var classifiedText string
	f.extractor.ExtractFunc = func(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
		classifiedText = rawText
		return intentPayload("query_stock", 0.85, map[string]interface{}{
			"database_action": map[string]interface{}{
				"api_endpoint":  "/api/medicines/",
				"query_filters": map[string]string{"name": "Napa"},
			},
		}), nil
	}
	f.backend.ReadFunc = func(ctx context.Context, endpoint string, query map[string]string) (json.RawMessage, error) {
		if endpoint != "/api/medicines/" || query["name"] != "Napa" {
			t.Fatalf("unexpected backend read: %s %v", endpoint, query)
		}
		return json.RawMessage(`[{"name":"Napa","stock":6}]`), nil
	}
	env := &domain.RequestEnvelope{Audio: []byte("wav-bytes"), AudioFilename: "q.wav"}

	// Act
	resp, err := f.orch.Handle(context.Background(), env)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.stt.Calls != 1 {
		t.Errorf("expected one STT call, got %d", f.stt.Calls)
	}
	if classifiedText != "how many Napa do I have left" {
		t.Errorf("classifier must see the transcript, got %q", classifiedText)
	}
	if resp.InputType != domain.ModeVoice {
		t.Errorf("expected voice input type, got %s", resp.InputType)
	}
	if len(resp.DBData) == 0 {
		t.Error("expected backend data attached")
	}
	if f.backend.ReadCalls != 1 {
		t.Errorf("expected one backend read, got %d", f.backend.ReadCalls)
	}
}

func TestHandle_DocumentPrescription(t *testing.T) {
	// Arrange
	f := newFixture()
	f.ocr.ExtractTextFunc = func(ctx context.Context, file []byte, filename string) (string, error) {
		return "Tab Napa 500mg twice daily 7 days after meal", nil
	}
	f.extractor.ExtractFunc = func(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
		if schema != domain.SchemaPrescription {
			t.Fatalf("unexpected schema %s", schema)
		}
		return json.RawMessage(`{
			"patient_name": "Karim",
			"medicines": [
				{"name": "Napa", "dosage": "500mg", "frequency": "twice daily", "duration": "7 days", "instructions": "after meal"}
			]
		}`), nil
	}
	userID := 5
	env := &domain.RequestEnvelope{
		Document:         []byte("jpeg-bytes"),
		DocumentFilename: "rx.jpg",
		UserID:           &userID,
	}

	// Act
	resp, err := f.orch.Handle(context.Background(), env)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.InputType != domain.ModeDocument {
		t.Errorf("expected document input type, got %s", resp.InputType)
	}
	if resp.Intent != "" {
		t.Errorf("document mode must not classify intent, got %s", resp.Intent)
	}
	if !resp.ConfirmationNeeded {
		t.Error("extracted data is a proposal and must require confirmation")
	}
	rx := resp.Data.Prescription
	if rx == nil || len(rx.Medicines) != 1 {
		t.Fatalf("expected one extracted medicine, got %+v", resp.Data)
	}
	if rx.Users == nil || *rx.Users != 5 {
		t.Errorf("expected user id carried into proposal, got %v", rx.Users)
	}
	if rx.Medicines[0].Stock == nil || *rx.Medicines[0].Stock != 14 {
		t.Errorf("expected stock 14, got %v", rx.Medicines[0].Stock)
	}
}

func TestHandle_DocumentLabReport(t *testing.T) {
	// Arrange
	f := newFixture()
	f.ocr.ExtractTextFunc = func(ctx context.Context, file []byte, filename string) (string, error) {
		return "Blood Sugar: 7.2 mmol/L", nil
	}
	f.extractor.ExtractFunc = func(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
		if schema != domain.SchemaLabReport {
			t.Fatalf("unexpected schema %s", schema)
		}
		return json.RawMessage(`{"tests":[{"test_name":"Blood Sugar","value":"7.2","unit":"mmol/L"}]}`), nil
	}
	env := &domain.RequestEnvelope{
		Document:         []byte("pdf-bytes"),
		DocumentFilename: "report.pdf",
		DocumentSchema:   domain.SchemaLabReport,
	}

	// Act
	resp, err := f.orch.Handle(context.Background(), env)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	report := resp.Data.LabReport
	if report == nil || len(report.Tests) != 1 {
		t.Fatalf("expected one lab test, got %+v", resp.Data)
	}
	if report.Tests[0].Status == nil || *report.Tests[0].Status != domain.LabStatusHigh {
		t.Errorf("expected derived high status, got %v", report.Tests[0].Status)
	}
}

func TestHandle_STTFailureKeepsKind(t *testing.T) {
	// Arrange
	f := newFixture()
	f.stt.TranscribeFunc = func(ctx context.Context, audio []byte, filename, languageHint string) (*domain.Transcript, error) {
		return nil, domain.NewCapabilityUnavailable("speech-to-text", errors.New("connection reset"))
	}
	env := &domain.RequestEnvelope{Audio: []byte("wav")}

	// Act
	_, err := f.orch.Handle(context.Background(), env)

	// Assert
	if domain.KindOf(err) != domain.KindCapabilityUnavailable {
		t.Errorf("expected capability_unavailable preserved, got %v", err)
	}
	if f.extractor.Calls != 0 {
		t.Error("classification must not run after an STT failure")
	}
}

func TestHandle_BackendReadFailurePropagates(t *testing.T) {
	// Arrange
	f := newFixture()
	f.extractor.ExtractFunc = func(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
		return intentPayload("query_schedule", 0.9, map[string]interface{}{
			"database_action": map[string]interface{}{"api_endpoint": "/api/appointments/"},
		}), nil
	}
	f.backend.ReadFunc = func(ctx context.Context, endpoint string, query map[string]string) (json.RawMessage, error) {
		return nil, domain.NewBackendReadError("backend returned status 500", nil)
	}
	env := &domain.RequestEnvelope{Text: "when is my next appointment?"}

	// Act
	_, err := f.orch.Handle(context.Background(), env)

	// Assert
	if domain.KindOf(err) != domain.KindBackendRead {
		t.Errorf("expected backend_read_error, got %v", err)
	}
}

func TestHandle_RefillSummary(t *testing.T) {
	// Arrange
	f := newFixture()
	f.extractor.ExtractFunc = func(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
		return intentPayload("refill_medicine", 0.9, nil), nil
	}
	f.backend.LowStockMedicinesFunc = func(ctx context.Context, userID int) ([]domain.MedicineFact, error) {
		return []domain.MedicineFact{{Name: "Napa", Stock: 2}, {Name: "Seclo", Stock: 4}}, nil
	}
	userID := 3
	env := &domain.RequestEnvelope{
		Text:      "I need refills",
		UserID:    &userID,
		ReplyMode: domain.ReplyModeVoice,
	}

	// Act
	resp, err := f.orch.Handle(context.Background(), env)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.AssistantMessage != "You are running low on Napa (2 left), Seclo (4 left)." {
		t.Errorf("unexpected refill summary: %q", resp.AssistantMessage)
	}
	if resp.TTS == nil || resp.TTS.Payload.Text != resp.AssistantMessage {
		t.Error("TTS payload must track the rewritten assistant message")
	}
}
