package domain

// Candidate is a retrieval hit: a chunk paired with its cosine similarity
// to the query. Candidates are ephemeral and never persisted.
type Candidate struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Similarity is the cosine similarity in [-1, 1].
	Similarity float64

	// Rank is the candidate's position in retrieval order (0-based).
	Rank int
}

// RankedChunk is a reranked retrieval hit with its final score and rank.
type RankedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the rerank score, or the retrieval similarity when the
	// context is unreranked.
	Score float64

	// Rank is the final position in context order (0-based).
	Rank int
}

// RankedContext is the ordered context selected for prompt assembly.
type RankedContext struct {
	// Chunks are the surviving chunks in final rank order.
	Chunks []RankedChunk

	// Reranked is false when the reranker was unavailable and the
	// retriever's ordering was used unmodified. Callers treat this
	// degraded-mode flag as load-bearing.
	Reranked bool
}

// Texts returns the context chunk texts in rank order.
func (r RankedContext) Texts() []string {
	if len(r.Chunks) == 0 {
		return nil
	}
	out := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Chunk.Text
	}
	return out
}

// Empty reports whether the context carries no retrieved chunks.
func (r RankedContext) Empty() bool {
	return len(r.Chunks) == 0
}
