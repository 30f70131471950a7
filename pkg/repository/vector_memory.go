package repository

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
)

// MemoryVectorIndex implements VectorIndex with in-memory brute-force
// cosine search. Good enough for development and small knowledge bases.
type MemoryVectorIndex struct {
	mu   sync.RWMutex
	docs map[string]*model.IssueVector
}

// NewMemoryVectorIndex creates a new in-memory vector index
func NewMemoryVectorIndex() interfaces.VectorIndex {
	return &MemoryVectorIndex{
		docs: make(map[string]*model.IssueVector),
	}
}

// Put stores an issue vector, replacing any previous vector for the
// same issue
func (m *MemoryVectorIndex) Put(ctx context.Context, doc *model.IssueVector) error {
	if doc == nil {
		return goerr.New("issue vector is nil")
	}
	if err := doc.Validate(); err != nil {
		return goerr.Wrap(err, "invalid issue vector")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docCopy := *doc
	docCopy.Embedding = append([]float64(nil), doc.Embedding...)
	m.docs[doc.Key()] = &docCopy
	return nil
}

// Search returns up to limit issues ordered by cosine similarity to the
// query embedding, highest first
func (m *MemoryVectorIndex) Search(ctx context.Context, embedding []float64, limit int) ([]*model.IssueMatch, error) {
	if len(embedding) == 0 {
		return nil, goerr.New("query embedding is empty")
	}
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]*model.IssueMatch, 0, len(m.docs))
	for _, doc := range m.docs {
		sim, err := cosineSimilarity(embedding, doc.Embedding)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to compare embeddings",
				goerr.V("repo", doc.Repo),
				goerr.V("number", doc.Number))
		}
		matches = append(matches, &model.IssueMatch{
			Repo:       doc.Repo,
			Number:     doc.Number,
			Title:      doc.Title,
			Similarity: sim,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

// Close is a no-op for the in-memory index
func (m *MemoryVectorIndex) Close() error {
	return nil
}

func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, goerr.New("embedding dimension mismatch",
			goerr.V("lenA", len(a)),
			goerr.V("lenB", len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
