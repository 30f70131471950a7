package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	"github.com/secmon-lab/shinobi/pkg/repository"
)

func newVector(number int, title string, embedding []float64) *model.IssueVector {
	return &model.IssueVector{
		Repo:      "acme/widgets",
		Number:    types.IssueNumber(number),
		Title:     title,
		Embedding: embedding,
		IndexedAt: time.Now(),
	}
}

func TestMemoryVectorIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("Search orders by cosine similarity", func(t *testing.T) {
		index := repository.NewMemoryVectorIndex()
		defer index.Close()

		gt.NoError(t, index.Put(ctx, newVector(1, "login fails with 500", []float64{1, 0, 0})))
		gt.NoError(t, index.Put(ctx, newVector(2, "crash on startup", []float64{0, 1, 0})))
		gt.NoError(t, index.Put(ctx, newVector(3, "login error after update", []float64{0.9, 0.1, 0})))

		matches := gt.R1(index.Search(ctx, []float64{1, 0, 0}, 2)).NoError(t)
		gt.A(t, matches).Length(2)
		gt.Equal(t, types.IssueNumber(1), matches[0].Number)
		gt.Equal(t, types.IssueNumber(3), matches[1].Number)
		gt.True(t, matches[0].Similarity > matches[1].Similarity)
		gt.True(t, matches[0].Similarity > 0.99)
	})

	t.Run("Put replaces vector for the same issue", func(t *testing.T) {
		index := repository.NewMemoryVectorIndex()
		defer index.Close()

		gt.NoError(t, index.Put(ctx, newVector(1, "old title", []float64{0, 1})))
		gt.NoError(t, index.Put(ctx, newVector(1, "new title", []float64{1, 0})))

		matches := gt.R1(index.Search(ctx, []float64{1, 0}, 5)).NoError(t)
		gt.A(t, matches).Length(1)
		gt.Equal(t, "new title", matches[0].Title)
	})

	t.Run("Dimension mismatch is an error", func(t *testing.T) {
		index := repository.NewMemoryVectorIndex()
		defer index.Close()

		gt.NoError(t, index.Put(ctx, newVector(1, "a", []float64{1, 0, 0})))

		_, err := index.Search(ctx, []float64{1, 0}, 5)
		gt.Error(t, err)
	})

	t.Run("Empty query embedding is rejected", func(t *testing.T) {
		index := repository.NewMemoryVectorIndex()
		defer index.Close()

		_, err := index.Search(ctx, nil, 5)
		gt.Error(t, err)
	})

	t.Run("Invalid vector is rejected", func(t *testing.T) {
		index := repository.NewMemoryVectorIndex()
		defer index.Close()

		gt.Error(t, index.Put(ctx, newVector(0, "no number", []float64{1})))
		gt.Error(t, index.Put(ctx, newVector(1, "no embedding", nil)))
	})
}
