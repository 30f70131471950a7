package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
	"google.golang.org/api/iterator"
)

const (
	issueVectorsCollection = "issue_vectors"

	fieldEmbedding      = "Embedding"
	fieldVectorDistance = "vector_distance"
)

// issueVectorDoc is the Firestore document shape for an indexed issue.
// The embedding is stored as a Vector64 so FindNearest can use it.
type issueVectorDoc struct {
	Repo      string             `firestore:"Repo"`
	Number    int                `firestore:"Number"`
	Title     string             `firestore:"Title"`
	Embedding firestore.Vector64 `firestore:"Embedding"`
	IndexedAt time.Time          `firestore:"IndexedAt"`
}

// FirestoreVectorIndex implements VectorIndex on Firestore vector
// search (FindNearest with cosine distance)
type FirestoreVectorIndex struct {
	client *firestore.Client
}

// NewFirestoreVectorIndex creates a new Firestore-backed vector index
func NewFirestoreVectorIndex(ctx context.Context, projectID, databaseID string) (interfaces.VectorIndex, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client for vector index")
	}

	logging.From(ctx).Info("Firestore vector index initialized",
		"projectID", projectID,
		"databaseID", databaseID,
		"collection", issueVectorsCollection,
	)

	return &FirestoreVectorIndex{
		client: client,
	}, nil
}

// Put stores an issue vector, replacing any previous vector for the
// same issue
func (f *FirestoreVectorIndex) Put(ctx context.Context, doc *model.IssueVector) error {
	if doc == nil {
		return goerr.New("issue vector is nil")
	}
	if err := doc.Validate(); err != nil {
		return goerr.Wrap(err, "invalid issue vector")
	}

	stored := issueVectorDoc{
		Repo:      string(doc.Repo),
		Number:    doc.Number.Int(),
		Title:     doc.Title,
		Embedding: firestore.Vector64(doc.Embedding),
		IndexedAt: doc.IndexedAt,
	}

	_, err := f.client.Collection(issueVectorsCollection).Doc(doc.Key()).Set(ctx, stored)
	if err != nil {
		return goerr.Wrap(err, "failed to save issue vector to firestore",
			goerr.V("repo", doc.Repo),
			goerr.V("number", doc.Number))
	}

	return nil
}

// Search runs a nearest-neighbor query against the index. Cosine
// distance is converted back to similarity (1 - distance) so callers
// compare against the same threshold regardless of backend.
func (f *FirestoreVectorIndex) Search(ctx context.Context, embedding []float64, limit int) ([]*model.IssueMatch, error) {
	if len(embedding) == 0 {
		return nil, goerr.New("query embedding is empty")
	}
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	query := f.client.Collection(issueVectorsCollection).FindNearest(
		fieldEmbedding,
		firestore.Vector64(embedding),
		limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{
			DistanceResultField: fieldVectorDistance,
		},
	)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var matches []*model.IssueMatch
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results")
		}

		var stored issueVectorDoc
		if err := doc.DataTo(&stored); err != nil {
			return nil, goerr.Wrap(err, "failed to decode issue vector")
		}

		distance, ok := doc.Data()[fieldVectorDistance].(float64)
		if !ok {
			return nil, goerr.New("vector distance field missing in search result",
				goerr.V("docID", doc.Ref.ID))
		}

		matches = append(matches, &model.IssueMatch{
			Repo:       types.RepoName(stored.Repo),
			Number:     types.IssueNumber(stored.Number),
			Title:      stored.Title,
			Similarity: 1.0 - distance,
		})
	}

	return matches, nil
}

// Close closes the Firestore client
func (f *FirestoreVectorIndex) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}
