package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

// Memory implements Repository interface with in-memory storage
type Memory struct {
	mu      sync.RWMutex
	records map[types.TriageID]*model.TriageRecord
	audits  map[types.TriageID][]*model.AuditEntry
}

// NewMemory creates a new memory repository
func NewMemory() interfaces.Repository {
	return &Memory{
		records: make(map[types.TriageID]*model.TriageRecord),
		audits:  make(map[types.TriageID][]*model.AuditEntry),
	}
}

// PutTriageRecord stores a triage record in memory
func (m *Memory) PutTriageRecord(ctx context.Context, record *model.TriageRecord) error {
	if record == nil {
		return goerr.New("record is nil")
	}
	if record.ID == "" {
		return goerr.New("record ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	recordCopy := *record
	m.records[record.ID] = &recordCopy
	return nil
}

// GetTriageRecord retrieves a triage record by ID
func (m *Memory) GetTriageRecord(ctx context.Context, id types.TriageID) (*model.TriageRecord, error) {
	if id == "" {
		return nil, goerr.New("triage ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrTriageNotFound, "record not found in memory",
			goerr.V("triageID", id))
	}

	// Return a copy to prevent external modification
	recordCopy := *record
	return &recordCopy, nil
}

// ListTriageRecords lists triage records, newest first
func (m *Memory) ListTriageRecords(ctx context.Context, limit int) ([]*model.TriageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*model.TriageRecord, 0, len(m.records))
	for _, record := range m.records {
		recordCopy := *record
		records = append(records, &recordCopy)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// MarkDecided transitions a pending record to a decided status. The
// whole check-and-set runs under the write lock so concurrent decisions
// on the same record cannot both succeed.
func (m *Memory) MarkDecided(ctx context.Context, id types.TriageID, status types.TriageStatus, decidedBy types.SlackUserID, decidedAt time.Time) (*model.TriageRecord, error) {
	if id == "" {
		return nil, goerr.New("triage ID is empty")
	}
	if !status.IsDecided() {
		return nil, goerr.New("status is not a decided status", goerr.V("status", status))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrTriageNotFound, "record not found in memory",
			goerr.V("triageID", id))
	}

	if record.Status != types.TriageStatusPending {
		return nil, goerr.Wrap(model.ErrAlreadyDecided, "record is no longer pending",
			goerr.V("triageID", id),
			goerr.V("status", record.Status))
	}

	record.Status = status
	record.DecidedBy = decidedBy
	record.DecidedAt = decidedAt

	recordCopy := *record
	return &recordCopy, nil
}

// PutAuditEntry appends an audit entry
func (m *Memory) PutAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return goerr.New("audit entry is nil")
	}
	if err := entry.Validate(); err != nil {
		return goerr.Wrap(err, "invalid audit entry")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entryCopy := *entry
	m.audits[entry.TriageID] = append(m.audits[entry.TriageID], &entryCopy)
	return nil
}

// ListAuditEntries lists audit entries for a triage record, oldest first
func (m *Memory) ListAuditEntries(ctx context.Context, triageID types.TriageID) ([]*model.AuditEntry, error) {
	if triageID == "" {
		return nil, goerr.New("triage ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*model.AuditEntry, 0, len(m.audits[triageID]))
	for _, entry := range m.audits[triageID] {
		entryCopy := *entry
		entries = append(entries, &entryCopy)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}

// Close is a no-op for memory repository
func (m *Memory) Close() error {
	return nil
}
