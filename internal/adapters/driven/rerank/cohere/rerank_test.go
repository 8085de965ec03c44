package cohere

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *RerankService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewRerankService(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	return svc
}

func TestNewRerankService_RequiresAPIKey(t *testing.T) {
	_, err := NewRerankService(Config{})

	assert.Error(t, err)
}

func TestRerank_ScoresInDocumentOrder(t *testing.T) {
	var gotBody rerankRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		// Cohere answers sorted by relevance, not document order
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 2, "relevance_score": 0.91},
				{"index": 0, "relevance_score": 0.44},
				{"index": 1, "relevance_score": 0.12},
			},
		})
	})

	scores, err := svc.Rerank(context.Background(), "a quiet detective",
		[]string{"chunk a", "chunk b", "chunk c"})

	require.NoError(t, err)
	assert.Equal(t, []float64{0.44, 0.12, 0.91}, scores)
	assert.Equal(t, DefaultModel, gotBody.Model)
	assert.Equal(t, "a quiet detective", gotBody.Query)
	assert.Equal(t, []string{"chunk a", "chunk b", "chunk c"}, gotBody.Documents)
}

func TestRerank_EmptyDocuments(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty document list")
	})

	scores, err := svc.Rerank(context.Background(), "query", nil)

	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestRerank_RateLimited(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := svc.Rerank(context.Background(), "query", []string{"doc"})

	var rle *domain.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "cohere", rle.Provider)
	assert.Equal(t, 7*time.Second, rle.RetryAfter)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
}

func TestRerank_BadKey(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := svc.Rerank(context.Background(), "query", []string{"doc"})

	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestRerank_ScoreCountMismatch(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 0, "relevance_score": 0.5},
			},
		})
	})

	_, err := svc.Rerank(context.Background(), "query", []string{"doc a", "doc b"})

	assert.Error(t, err)
}

func TestRerank_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	svc, err := NewRerankService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.Rerank(context.Background(), "query", []string{"doc"})

	assert.ErrorIs(t, err, domain.ErrRerankUnavailable)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, svc.Ping(context.Background()))
}

func TestPing_BadStatus(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	assert.Error(t, svc.Ping(context.Background()))
}
