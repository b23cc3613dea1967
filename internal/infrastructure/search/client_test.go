package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/productlens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const sampleResponse = `{
  "items": [
    {
      "title": "Nike Air Force 1 '07 Men's Shoes",
      "link": "https://www.nike.com/t/air-force-1-07-mens-shoes",
      "snippet": "The radiance lives on in the Nike Air Force 1 '07.",
      "displayLink": "www.nike.com",
      "pagemap": {"cse_image": [{"src": "https://static.nike.com/af1.png"}]}
    },
    {
      "title": "Nike Air Force 1 - Amazon.com",
      "link": "https://www.amazon.com/dp/B0TEST",
      "snippet": "Buy Nike Air Force 1 and get free shipping.",
      "displayLink": "www.amazon.com",
      "pagemap": {"cse_thumbnail": [{"src": "https://m.media-amazon.com/thumb.jpg"}]}
    }
  ]
}`

func newTestClient(t *testing.T, baseURL string, attempts int) *Client {
	t.Helper()
	return NewClient(Config{
		APIKey:            "test-api-key",
		EngineID:          "test-engine",
		BaseURL:           baseURL,
		RequestsPerSecond: 1000,
		Burst:             100,
		MaxAttempts:       attempts,
	}, zaptest.NewLogger(t))
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{APIKey: "k", EngineID: "cx"}, nil)

	assert.NotNil(t, client)
	assert.Equal(t, "k", client.apiKey)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, "active", client.safeSearch)
	assert.Equal(t, 1, client.maxAttempts)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestSetDebug(t *testing.T) {
	client := NewClient(Config{}, nil)

	client.SetDebug(true)
	assert.True(t, client.debug)

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"configured", Config{APIKey: "k", EngineID: "cx"}, false},
		{"missing key", Config{EngineID: "cx"}, true},
		{"missing engine", Config{APIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewClient(tt.cfg, nil).Ready()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Nike Air Force 1 buy", q.Get("q"))
		assert.Equal(t, "test-api-key", q.Get("key"))
		assert.Equal(t, "test-engine", q.Get("cx"))
		assert.Equal(t, "6", q.Get("num"))
		assert.Equal(t, "active", q.Get("safe"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 1)
	hits, err := client.Search(context.Background(), domain.SearchQuery{Query: "Nike Air Force 1 buy", ResultCount: 6})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, "nike.com", hits[0].Host)
	assert.Equal(t, "https://static.nike.com/af1.png", hits[0].ImageURL)
	assert.Equal(t, 1, hits[1].Position)
	assert.Equal(t, "amazon.com", hits[1].Host)
	assert.Equal(t, "https://m.media-amazon.com/thumb.jpg", hits[1].ImageURL)
}

func TestSearch_ResultCountClamped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 1).Search(context.Background(), domain.SearchQuery{Query: "q", ResultCount: 50})
	require.NoError(t, err)
}

func TestSearch_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"searchInformation": {"totalResults": "0"}}`))
	}))
	defer server.Close()

	hits, err := newTestClient(t, server.URL, 1).Search(context.Background(), domain.SearchQuery{Query: "q"})

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	_, err := client.Search(context.Background(), domain.SearchQuery{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Zero(t, calls.Load(), "no request should be sent without credentials")
}

func TestSearch_ServerError_Retries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	hits, err := newTestClient(t, server.URL, 2).Search(context.Background(), domain.SearchQuery{Query: "q"})

	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestSearch_TooManyRequests_Retries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 2).Search(context.Background(), domain.SearchQuery{Query: "q"})

	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestSearch_ClientError_NoRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "quota"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 3).Search(context.Background(), domain.SearchQuery{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.NotErrorIs(t, err, domain.ErrProviderUnreachable)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestSearch_AllRetriesFail(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 2).Search(context.Background(), domain.SearchQuery{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestSearch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 1).Search(context.Background(), domain.SearchQuery{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestSearch_APIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "Invalid Value"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 1).Search(context.Background(), domain.SearchQuery{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Contains(t, err.Error(), "Invalid Value")
}

func TestSearch_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url, 1).Search(context.Background(), domain.SearchQuery{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrProviderUnreachable)
}

func TestSearch_DeadlineExceeded(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, server.URL, 3).Search(ctx, domain.SearchQuery{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrProviderUnreachable)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSearch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, server.URL, 1).Search(ctx, domain.SearchQuery{Query: "q"})
	assert.Error(t, err)
}

func TestDebugLog(t *testing.T) {
	client := newTestClient(t, "http://unused", 1)

	// Must not panic in either mode
	client.debugLog("quiet")
	client.SetDebug(true)
	client.debugLog("loud")
}

func TestReadLimitedBody(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int64
		expected string
	}{
		{"under limit", "hello", 10, "hello"},
		{"at limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hello"},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readLimitedBody(strings.NewReader(tt.input), tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}
