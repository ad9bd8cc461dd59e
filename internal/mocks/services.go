package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/careagent/medai/internal/domain"
)

// Function-field mocks for the capability ports. Call counters let tests
// assert that the orchestrator short-circuits before touching adapters.

type MockSpeechToText struct {
	TranscribeFunc func(ctx context.Context, audio []byte, filename, languageHint string) (*domain.Transcript, error)
	Calls          int
}

func (m *MockSpeechToText) Transcribe(ctx context.Context, audio []byte, filename, languageHint string) (*domain.Transcript, error) {
	m.Calls++
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio, filename, languageHint)
	}
	return &domain.Transcript{Text: "", Language: "unknown"}, nil
}

type MockOCR struct {
	ExtractTextFunc func(ctx context.Context, file []byte, filename string) (string, error)
	Calls           int
}

func (m *MockOCR) ExtractText(ctx context.Context, file []byte, filename string) (string, error) {
	m.Calls++
	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(ctx, file, filename)
	}
	return "", nil
}

type MockTextToSpeech struct {
	SynthesizeFunc func(ctx context.Context, text, voice string, speed float64) ([]byte, error)
	Calls          int
}

func (m *MockTextToSpeech) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	m.Calls++
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, voice, speed)
	}
	return []byte("audio"), nil
}

type MockLLMExtractor struct {
	ExtractFunc func(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error)
	Calls       int
}

func (m *MockLLMExtractor) Extract(ctx context.Context, rawText string, schema domain.ExtractionSchema) (json.RawMessage, error) {
	m.Calls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, rawText, schema)
	}
	return json.RawMessage(`{}`), nil
}

type MockBackendReader struct {
	ReadFunc              func(ctx context.Context, endpoint string, query map[string]string) (json.RawMessage, error)
	LowStockMedicinesFunc func(ctx context.Context, userID int) ([]domain.MedicineFact, error)
	ReadCalls             int
	LowStockCalls         int
}

func (m *MockBackendReader) Read(ctx context.Context, endpoint string, query map[string]string) (json.RawMessage, error) {
	m.ReadCalls++
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, endpoint, query)
	}
	return json.RawMessage(`[]`), nil
}

func (m *MockBackendReader) LowStockMedicines(ctx context.Context, userID int) ([]domain.MedicineFact, error) {
	m.LowStockCalls++
	if m.LowStockMedicinesFunc != nil {
		return m.LowStockMedicinesFunc(ctx, userID)
	}
	return nil, nil
}

// MockCache is an in-memory ports.Cache without expiry enforcement beyond
// what tests need.
type MockCache struct {
	mu   sync.Mutex
	data map[string]string

	GetCalls int
	SetCalls int
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	v, ok := m.data[key]
	if !ok {
		return "", errors.New("key not found")
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	m.data[key] = value
	return nil
}

func (m *MockCache) Ping() error { return nil }

func (m *MockCache) Close() error { return nil }
