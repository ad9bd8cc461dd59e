package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/mocks"
	"github.com/careagent/medai/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cache *mocks.MockCache) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.BackendConfig{
		BaseURL:        server.URL,
		AccessToken:    "test-token",
		RequestTimeout: 2 * time.Second,
		CacheTTL:       time.Minute,
	}
	// A typed nil inside the interface would defeat the nil check in Read.
	if cache != nil {
		return NewClient(cfg, cache, zap.NewNop())
	}
	return NewClient(cfg, nil, zap.NewNop())
}

func TestRead_GETOnlyWithBearerToken(t *testing.T) {
	// Arrange
	var gotMethod, gotAuth, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"name":"Napa","stock":3}]`))
	}, nil)

	// Act
	body, err := client.Read(context.Background(), "/api/medicines/", map[string]string{"user": "7"})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("backend must only see GET, got %s", gotMethod)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotQuery != "user=7" {
		t.Errorf("unexpected query: %s", gotQuery)
	}
	if string(body) != `[{"name":"Napa","stock":3}]` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestRead_CachesResponses(t *testing.T) {
	// Arrange
	hits := 0
	cache := mocks.NewMockCache()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"ok":true}`))
	}, cache)

	// Act
	if _, err := client.Read(context.Background(), "/api/users/1", nil); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if _, err := client.Read(context.Background(), "/api/users/1", nil); err != nil {
		t.Fatalf("second read failed: %v", err)
	}

	// Assert
	if hits != 1 {
		t.Errorf("expected one upstream hit, got %d", hits)
	}
	if cache.SetCalls != 1 {
		t.Errorf("expected one cache write, got %d", cache.SetCalls)
	}
}

func TestRead_Non200IsBackendReadError(t *testing.T) {
	// Arrange
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	// Act
	_, err := client.Read(context.Background(), "/api/medicines/", nil)

	// Assert
	if domain.KindOf(err) != domain.KindBackendRead {
		t.Errorf("expected backend_read_error, got %v", err)
	}
}

func TestRead_NotConfigured(t *testing.T) {
	// Arrange
	client := NewClient(config.BackendConfig{}, nil, zap.NewNop())

	// Act
	_, err := client.Read(context.Background(), "/api/medicines/", nil)

	// Assert
	if domain.KindOf(err) != domain.KindBackendRead {
		t.Errorf("expected backend_read_error when unconfigured, got %v", err)
	}
	if client.Configured() {
		t.Error("empty base url must report unconfigured")
	}
}

func TestLowStockMedicines_FiltersAndSorts(t *testing.T) {
	// Arrange
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"name":"Napa","stock":12},
			{"name":"Seclo","stock":2},
			{"name":"Monas","stock":4},
			{"name":"Unknown","stock":null}
		]`))
	}, nil)

	// Act
	low, err := client.LowStockMedicines(context.Background(), 7)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(low) != 2 {
		t.Fatalf("expected 2 low-stock medicines, got %d", len(low))
	}
	if low[0].Name != "Seclo" || low[1].Name != "Monas" {
		t.Errorf("expected ascending stock order, got %+v", low)
	}
}
