package driven

import "context"

// RerankService scores retrieved chunks against a story idea with a
// cross-encoder style model. This is an optional service - when nil or
// failing, the pipeline keeps the retriever's ordering and marks the
// context unreranked.
//
// Implementations may include:
//   - Cohere (rerank-v3.5)
type RerankService interface {
	// Rerank scores each document against the query. The returned slice
	// is parallel to documents: scores[i] is the relevance of
	// documents[i]. Higher means more relevant.
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)

	// ModelName returns the name of the rerank model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
