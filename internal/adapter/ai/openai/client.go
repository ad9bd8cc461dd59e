package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/observability/telemetry"
	"github.com/careagent/medai/pkg/config"
)

// Client provides access to the OpenAI APIs backing the STT, TTS, OCR and
// extraction capabilities. All calls go through a shared circuit breaker;
// permanent input rejections do not trip it.
type Client struct {
	apiKey     string
	baseURL    string
	cfg        config.OpenAIConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

// NewClient creates a new OpenAI API client.
func NewClient(cfg config.OpenAIConfig, log *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// A rejected input is the caller's problem, not the provider's.
			return err == nil || domain.KindOf(err) == domain.KindCapabilityRejected
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("OpenAI circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		log:        log,
	}
}

// Configured reports whether an API key is present. Used by readiness checks.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// do sends one request through the breaker and returns the raw response
// body. Provider failures are mapped onto the domain error taxonomy.
func (c *Client) do(ctx context.Context, capability string, req *http.Request) ([]byte, error) {
	if c.apiKey == "" {
		return nil, domain.NewCapabilityUnavailable(capability, errors.New("openai: API key not configured"))
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	defer func() {
		telemetry.CapabilityLatency.WithLabelValues(capability).Observe(time.Since(start).Seconds())
	}()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, c.transportError(capability, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, domain.NewCapabilityUnavailable(capability, err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, c.statusError(capability, resp.StatusCode, body)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewCapabilityUnavailable(capability, err)
		}
		return nil, err
	}

	return result.([]byte), nil
}

func (c *Client) transportError(capability string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewCapabilityTimeout(capability, err)
	}
	var ue interface{ Timeout() bool }
	if errors.As(err, &ue) && ue.Timeout() {
		return domain.NewCapabilityTimeout(capability, err)
	}
	return domain.NewCapabilityUnavailable(capability, err)
}

func (c *Client) statusError(capability string, status int, body []byte) error {
	c.log.Warn("OpenAI API error",
		zap.String("capability", capability),
		zap.Int("status", status),
	)

	switch {
	case status == http.StatusBadRequest,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnsupportedMediaType,
		status == http.StatusUnprocessableEntity:
		return domain.NewCapabilityRejected(capability, apiErrorMessage(body, status))
	default:
		return domain.NewCapabilityUnavailable(capability, fmt.Errorf("openai: API error status %d", status))
	}
}

func apiErrorMessage(body []byte, status int) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return fmt.Sprintf("provider rejected request with status %d", status)
}

// postJSON marshals body and POSTs it to path.
func (c *Client) postJSON(ctx context.Context, capability, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewCapabilityUnavailable(capability, fmt.Errorf("openai: marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewCapabilityUnavailable(capability, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, capability, req)
}

// --- Chat Completion ---

// Message represents a chat message. Content is either a plain string or a
// list of content parts for multimodal requests.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatCompletion sends a chat completion request and returns the first
// choice's text content.
func (c *Client) chatCompletion(ctx context.Context, capability, model string, messages []Message, temperature float64, maxTokens int) (string, error) {
	body, err := c.postJSON(ctx, capability, "/chat/completions", chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", domain.NewCapabilityUnavailable(capability, fmt.Errorf("openai: decode response: %w", err))
	}
	if len(result.Choices) == 0 {
		return "", domain.NewCapabilityUnavailable(capability, errors.New("openai: no choices returned"))
	}

	return result.Choices[0].Message.Content, nil
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// around JSON output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
