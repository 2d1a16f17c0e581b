package marketing

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// embedBatchSize keeps single embedding requests well under provider limits
const embedBatchSize = 96

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is an in-memory vector index over the chunks of one request's uploads
type Index struct {
	embedder Embedder
	chunks   []Chunk
	vectors  [][]float32
}

// BuildIndex embeds every chunk. It fails with ErrNoChunks when there is
// nothing to index.
func BuildIndex(ctx context.Context, embedder Embedder, chunks []Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	idx := &Index{embedder: embedder, chunks: chunks, vectors: make([][]float32, 0, len(chunks))}
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Text)
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}
		idx.vectors = append(idx.vectors, vectors...)
	}
	return idx, nil
}

func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Search returns the k chunks most similar to query, best first
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for the query", len(vectors))
	}

	type scored struct {
		pos   int
		score float64
	}
	results := make([]scored, len(idx.chunks))
	for i, vector := range idx.vectors {
		results[i] = scored{pos: i, score: cosineSimilarity(vectors[0], vector)}
	}
	sort.SliceStable(results, func(a, b int) bool { return results[a].score > results[b].score })

	if k <= 0 || k > len(results) {
		k = len(results)
	}
	out := make([]Chunk, 0, k)
	for _, r := range results[:k] {
		out = append(out, idx.chunks[r.pos])
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
