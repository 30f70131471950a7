package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	"github.com/secmon-lab/shinobi/pkg/repository"
)

func newTestRecord(t *testing.T, number int) *model.TriageRecord {
	t.Helper()

	issue := &model.Issue{
		Repo:   "acme/widgets",
		Number: types.IssueNumber(number),
		Title:  "Crash when saving settings",
		Body:   "The app crashes with a nil pointer when I press save.",
		URL:    "https://github.com/acme/widgets/issues/42",
	}
	analysis := &model.TriageAnalysis{
		Severity: types.SeverityHigh,
		Summary:  "Nil pointer crash in the settings save path.",
	}

	record := gt.R1(model.NewTriageRecord(issue, analysis, nil, time.Hour)).NoError(t)
	return record
}

func TestMemoryTriageRecords(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	defer repo.Close()

	t.Run("Put and get record", func(t *testing.T) {
		record := newTestRecord(t, 42)
		gt.NoError(t, repo.PutTriageRecord(ctx, record))

		got := gt.R1(repo.GetTriageRecord(ctx, record.ID)).NoError(t)
		gt.Equal(t, record.ID, got.ID)
		gt.Equal(t, record.Repo, got.Repo)
		gt.Equal(t, types.TriageStatusPending, got.Status)
		gt.Equal(t, types.SeverityHigh, got.Severity)
	})

	t.Run("Get missing record returns not found", func(t *testing.T) {
		_, err := repo.GetTriageRecord(ctx, types.NewTriageID())
		gt.Error(t, err)
		gt.True(t, model.IsTriageNotFound(err))
	})

	t.Run("Returned record is a copy", func(t *testing.T) {
		record := newTestRecord(t, 43)
		gt.NoError(t, repo.PutTriageRecord(ctx, record))

		got := gt.R1(repo.GetTriageRecord(ctx, record.ID)).NoError(t)
		got.Summary = "mutated"

		again := gt.R1(repo.GetTriageRecord(ctx, record.ID)).NoError(t)
		gt.NotEqual(t, "mutated", again.Summary)
	})

	t.Run("List records newest first with limit", func(t *testing.T) {
		repo := repository.NewMemory()
		defer repo.Close()

		first := newTestRecord(t, 1)
		first.CreatedAt = time.Now().Add(-2 * time.Hour)
		second := newTestRecord(t, 2)
		second.CreatedAt = time.Now().Add(-1 * time.Hour)
		third := newTestRecord(t, 3)

		gt.NoError(t, repo.PutTriageRecord(ctx, first))
		gt.NoError(t, repo.PutTriageRecord(ctx, second))
		gt.NoError(t, repo.PutTriageRecord(ctx, third))

		records := gt.R1(repo.ListTriageRecords(ctx, 2)).NoError(t)
		gt.A(t, records).Length(2)
		gt.Equal(t, third.ID, records[0].ID)
		gt.Equal(t, second.ID, records[1].ID)
	})
}

func TestMemoryMarkDecided(t *testing.T) {
	ctx := context.Background()

	t.Run("Pending record transitions to approved", func(t *testing.T) {
		repo := repository.NewMemory()
		defer repo.Close()

		record := newTestRecord(t, 10)
		gt.NoError(t, repo.PutTriageRecord(ctx, record))

		decidedAt := time.Now()
		updated := gt.R1(repo.MarkDecided(ctx, record.ID, types.TriageStatusApproved, "U123", decidedAt)).NoError(t)
		gt.Equal(t, types.TriageStatusApproved, updated.Status)
		gt.Equal(t, types.SlackUserID("U123"), updated.DecidedBy)

		got := gt.R1(repo.GetTriageRecord(ctx, record.ID)).NoError(t)
		gt.Equal(t, types.TriageStatusApproved, got.Status)
	})

	t.Run("Second decision fails with ErrAlreadyDecided", func(t *testing.T) {
		repo := repository.NewMemory()
		defer repo.Close()

		record := newTestRecord(t, 11)
		gt.NoError(t, repo.PutTriageRecord(ctx, record))

		gt.R1(repo.MarkDecided(ctx, record.ID, types.TriageStatusRejected, "U123", time.Now())).NoError(t)

		_, err := repo.MarkDecided(ctx, record.ID, types.TriageStatusApproved, "U456", time.Now())
		gt.Error(t, err)
		gt.True(t, model.IsAlreadyDecided(err))

		// The first decision must survive
		got := gt.R1(repo.GetTriageRecord(ctx, record.ID)).NoError(t)
		gt.Equal(t, types.TriageStatusRejected, got.Status)
		gt.Equal(t, types.SlackUserID("U123"), got.DecidedBy)
	})

	t.Run("Pending is not a decided status", func(t *testing.T) {
		repo := repository.NewMemory()
		defer repo.Close()

		record := newTestRecord(t, 12)
		gt.NoError(t, repo.PutTriageRecord(ctx, record))

		_, err := repo.MarkDecided(ctx, record.ID, types.TriageStatusPending, "U123", time.Now())
		gt.Error(t, err)
	})

	t.Run("Concurrent decisions resolve to one winner", func(t *testing.T) {
		repo := repository.NewMemory()
		defer repo.Close()

		record := newTestRecord(t, 13)
		gt.NoError(t, repo.PutTriageRecord(ctx, record))

		const attempts = 16
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.MarkDecided(ctx, record.ID, types.TriageStatusApproved, "U123", time.Now()); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		gt.Equal(t, 1, wins)
	})
}

func TestMemoryAuditEntries(t *testing.T) {
	ctx := context.Background()

	t.Run("Put and list audit entries", func(t *testing.T) {
		repo := repository.NewMemory()
		defer repo.Close()

		record := newTestRecord(t, 20)
		gt.NoError(t, repo.PutTriageRecord(ctx, record))
		decided := gt.R1(repo.MarkDecided(ctx, record.ID, types.TriageStatusApproved, "U123", time.Now())).NoError(t)

		entry := gt.R1(model.NewAuditEntry(decided, []string{"comment", "label:High"}, "")).NoError(t)
		gt.NoError(t, repo.PutAuditEntry(ctx, entry))

		entries := gt.R1(repo.ListAuditEntries(ctx, record.ID)).NoError(t)
		gt.A(t, entries).Length(1)
		gt.Equal(t, entry.ID, entries[0].ID)
		gt.Equal(t, types.TriageStatusApproved, entries[0].Status)
		gt.A(t, entries[0].Actions).Length(2)
	})

	t.Run("Audit entry for undecided record is rejected", func(t *testing.T) {
		record := newTestRecord(t, 21)
		_, err := model.NewAuditEntry(record, nil, "")
		gt.Error(t, err)
	})
}

// Both backends must satisfy the same interface
var (
	_ interfaces.Repository  = (*repository.Memory)(nil)
	_ interfaces.VectorIndex = (*repository.MemoryVectorIndex)(nil)
)
