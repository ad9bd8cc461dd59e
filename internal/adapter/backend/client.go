package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/observability/telemetry"
	"github.com/careagent/medai/internal/ports"
	"github.com/careagent/medai/pkg/config"
)

const capabilityBackend = "backend"

// Client is the read-only HTTP client for the backend collaborator. It only
// ever issues GET requests; there is no method through which a write could
// reach the backend from here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	cache      ports.Cache
	cacheTTL   time.Duration
	log        *zap.Logger
}

// NewClient creates a backend reader. cache may be nil, in which case every
// read goes to the backend.
func NewClient(cfg config.BackendConfig, cache ports.Cache, log *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Backend circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.AccessToken,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		cache:      cache,
		cacheTTL:   cfg.CacheTTL,
		log:        log,
	}
}

// Configured reports whether a base URL is set. Used by readiness checks.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Read performs a GET against the given backend path with the given query
// filters. Responses are cached briefly so repeated intent lookups within a
// conversation do not hammer the backend.
func (c *Client) Read(ctx context.Context, endpoint string, query map[string]string) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, domain.NewBackendReadError("backend not configured", nil)
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	key := cacheKey(endpoint, query)
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, key); err == nil && cached != "" {
			c.log.Debug("Backend cache hit", zap.String("endpoint", endpoint))
			return json.RawMessage(cached), nil
		}
	}

	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, key, string(body), c.cacheTTL); err != nil {
			c.log.Debug("Backend cache write failed", zap.Error(err))
		}
	}

	return body, nil
}

// LowStockMedicines reads the user's medicines and returns the ones running
// low, sorted by remaining stock ascending.
func (c *Client) LowStockMedicines(ctx context.Context, userID int) ([]domain.MedicineFact, error) {
	body, err := c.Read(ctx, "/api/medicines/", map[string]string{
		"user": strconv.Itoa(userID),
	})
	if err != nil {
		return nil, err
	}

	var medicines []struct {
		Name  string `json:"name"`
		Stock *int   `json:"stock"`
	}
	if err := json.Unmarshal(body, &medicines); err != nil {
		return nil, domain.NewBackendReadError("decode medicines response", err)
	}

	var low []domain.MedicineFact
	for _, m := range medicines {
		if m.Stock != nil && *m.Stock <= lowStockThreshold {
			low = append(low, domain.MedicineFact{Name: m.Name, Stock: *m.Stock})
		}
	}
	sort.Slice(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })

	return low, nil
}

// lowStockThreshold is the remaining-dose count at which a medicine counts
// as running low.
const lowStockThreshold = 5

func (c *Client) get(ctx context.Context, endpoint string, query map[string]string) ([]byte, error) {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		target += "?" + values.Encode()
	}

	start := time.Now()
	defer func() {
		telemetry.CapabilityLatency.WithLabelValues(capabilityBackend).Observe(time.Since(start).Seconds())
	}()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, domain.NewBackendReadError("build request", err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, domain.NewCapabilityTimeout(capabilityBackend, err)
			}
			var te interface{ Timeout() bool }
			if errors.As(err, &te) && te.Timeout() {
				return nil, domain.NewCapabilityTimeout(capabilityBackend, err)
			}
			return nil, domain.NewBackendReadError("backend request failed", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, domain.NewBackendReadError("read backend response", err)
		}
		if resp.StatusCode != http.StatusOK {
			c.log.Warn("Backend read failed",
				zap.String("endpoint", endpoint),
				zap.Int("status", resp.StatusCode),
			)
			return nil, domain.NewBackendReadError(
				fmt.Sprintf("backend returned status %d for %s", resp.StatusCode, endpoint), nil)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewBackendReadError("backend circuit open", err)
		}
		return nil, err
	}

	return result.([]byte), nil
}

func cacheKey(endpoint string, query map[string]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("backend:")
	b.WriteString(endpoint)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(query[k])
	}
	return b.String()
}
