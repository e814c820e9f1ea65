package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
)

// MemoryVectorIndex keeps chunks and embeddings in memory, scoring
// queries with exact cosine similarity. Useful for tests and local dev.
type MemoryVectorIndex struct {
	mu   sync.RWMutex
	data map[uuid.UUID]domain.Chunk // keyed by chunk id
}

// NewMemoryVectorIndex constructs the index.
func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{data: make(map[uuid.UUID]domain.Chunk)}
}

func (r *MemoryVectorIndex) Upsert(_ context.Context, chunks []domain.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chunk := range chunks {
		r.data[chunk.ID] = chunk
	}
	return nil
}

func (r *MemoryVectorIndex) Query(_ context.Context, embedding []float32, fileIDs []uuid.UUID, topK int) ([]domain.RetrievedChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	allowed := make(map[uuid.UUID]bool, len(fileIDs))
	for _, id := range fileIDs {
		allowed[id] = true
	}

	var results []domain.RetrievedChunk
	for _, chunk := range r.data {
		if len(allowed) > 0 && !allowed[chunk.FileID] {
			continue
		}
		results = append(results, domain.RetrievedChunk{
			FileID:          chunk.FileID,
			ChunkID:         chunk.ID,
			ChunkText:       chunk.Text,
			SimilarityScore: cosineSimilarity(embedding, chunk.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SimilarityScore > results[j].SimilarityScore })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (r *MemoryVectorIndex) Delete(_ context.Context, fileID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, chunk := range r.data {
		if chunk.FileID == fileID {
			delete(r.data, id)
		}
	}
	return nil
}

var _ domain.VectorIndex = (*MemoryVectorIndex)(nil)

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	den := math.Sqrt(magA) * math.Sqrt(magB)
	if den == 0 {
		return 0
	}
	return dot / den
}
