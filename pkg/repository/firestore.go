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
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Collection names
	triageRecordsCollection = "triage_records"
	auditEntriesCollection  = "audit_entries"

	// Field names
	fieldStatus    = "Status"
	fieldDecidedBy = "DecidedBy"
	fieldDecidedAt = "DecidedAt"
	fieldCreatedAt = "CreatedAt"
	fieldTriageID  = "TriageID"
)

// Firestore implements Repository interface with Firestore
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (interfaces.Repository, error) {
	logger := logging.From(ctx)

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	// Test connection by attempting to read from a collection.
	// This fails fast on an invalid project ID or permission issues.
	_, err = client.Collection(triageRecordsCollection).Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		if status.Code(err) == codes.PermissionDenied || status.Code(err) == codes.Unauthenticated {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to connect to firestore project",
				goerr.V("firestore error code", status.Code(err).String()),
			)
		}
		// For other errors (like NotFound for new projects), log but continue
		logger.Debug("Firestore connection test returned error (may be empty collection)",
			"error", err,
			"errorCode", status.Code(err).String(),
		)
	}

	logger.Info("Firestore repository initialized successfully",
		"projectID", projectID,
		"databaseID", databaseID,
	)

	return &Firestore{
		client: client,
	}, nil
}

// PutTriageRecord saves a triage record to Firestore
func (f *Firestore) PutTriageRecord(ctx context.Context, record *model.TriageRecord) error {
	if record == nil {
		return goerr.New("record is nil")
	}
	if record.ID == "" {
		return goerr.New("record ID is empty")
	}

	_, err := f.client.Collection(triageRecordsCollection).Doc(record.ID.String()).Set(ctx, record)
	if err != nil {
		return goerr.Wrap(err, "failed to save triage record to firestore",
			goerr.V("triageID", record.ID))
	}

	return nil
}

// GetTriageRecord retrieves a triage record by ID
func (f *Firestore) GetTriageRecord(ctx context.Context, id types.TriageID) (*model.TriageRecord, error) {
	if id == "" {
		return nil, goerr.New("triage ID is empty")
	}

	doc, err := f.client.Collection(triageRecordsCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrTriageNotFound, "record not found in firestore",
				goerr.V("triageID", id))
		}
		return nil, goerr.Wrap(err, "failed to get triage record from firestore",
			goerr.V("triageID", id))
	}

	var record model.TriageRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, goerr.Wrap(err, "failed to decode triage record")
	}

	return &record, nil
}

// ListTriageRecords lists triage records, newest first
func (f *Firestore) ListTriageRecords(ctx context.Context, limit int) ([]*model.TriageRecord, error) {
	query := f.client.Collection(triageRecordsCollection).
		OrderBy(fieldCreatedAt, firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var records []*model.TriageRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate triage records")
		}

		var record model.TriageRecord
		if err := doc.DataTo(&record); err != nil {
			return nil, goerr.Wrap(err, "failed to decode triage record")
		}
		records = append(records, &record)
	}

	return records, nil
}

// MarkDecided transitions a pending record to a decided status inside
// a Firestore transaction, so two interaction callbacks racing on the
// same record resolve to exactly one winner.
func (f *Firestore) MarkDecided(ctx context.Context, id types.TriageID, newStatus types.TriageStatus, decidedBy types.SlackUserID, decidedAt time.Time) (*model.TriageRecord, error) {
	if id == "" {
		return nil, goerr.New("triage ID is empty")
	}
	if !newStatus.IsDecided() {
		return nil, goerr.New("status is not a decided status", goerr.V("status", newStatus))
	}

	docRef := f.client.Collection(triageRecordsCollection).Doc(id.String())

	var updated model.TriageRecord
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrTriageNotFound, "record not found in firestore",
					goerr.V("triageID", id))
			}
			return goerr.Wrap(err, "failed to get triage record in transaction")
		}

		var record model.TriageRecord
		if err := doc.DataTo(&record); err != nil {
			return goerr.Wrap(err, "failed to decode triage record")
		}

		if record.Status != types.TriageStatusPending {
			return goerr.Wrap(model.ErrAlreadyDecided, "record is no longer pending",
				goerr.V("triageID", id),
				goerr.V("status", record.Status))
		}

		record.Status = newStatus
		record.DecidedBy = decidedBy
		record.DecidedAt = decidedAt
		updated = record

		return tx.Update(docRef, []firestore.Update{
			{Path: fieldStatus, Value: string(newStatus)},
			{Path: fieldDecidedBy, Value: string(decidedBy)},
			{Path: fieldDecidedAt, Value: decidedAt},
		})
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// PutAuditEntry appends an audit entry
func (f *Firestore) PutAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return goerr.New("audit entry is nil")
	}
	if err := entry.Validate(); err != nil {
		return goerr.Wrap(err, "invalid audit entry")
	}

	_, err := f.client.Collection(auditEntriesCollection).Doc(entry.ID.String()).Set(ctx, entry)
	if err != nil {
		return goerr.Wrap(err, "failed to save audit entry to firestore",
			goerr.V("auditID", entry.ID))
	}

	return nil
}

// ListAuditEntries lists audit entries for a triage record, oldest first
func (f *Firestore) ListAuditEntries(ctx context.Context, triageID types.TriageID) ([]*model.AuditEntry, error) {
	if triageID == "" {
		return nil, goerr.New("triage ID is empty")
	}

	iter := f.client.Collection(auditEntriesCollection).
		Where(fieldTriageID, "==", triageID.String()).
		OrderBy(fieldCreatedAt, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var entries []*model.AuditEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate audit entries")
		}

		var entry model.AuditEntry
		if err := doc.DataTo(&entry); err != nil {
			return nil, goerr.Wrap(err, "failed to decode audit entry")
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

// Close closes the Firestore client
func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}
