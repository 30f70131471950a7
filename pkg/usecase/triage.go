package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	"github.com/secmon-lab/shinobi/pkg/service/llm"
	slacksvc "github.com/secmon-lab/shinobi/pkg/service/slack"
	"github.com/secmon-lab/shinobi/pkg/utils/apperr"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// fallbackSummary is used when the LLM cannot classify an issue; the
// record still goes to a human with a middle-of-the-road severity
const fallbackSummary = "Automatic analysis failed; manual triage required."

// Triage orchestrates the issue triage pipeline: analysis, duplicate
// detection, human approval, and GitHub write-back
type Triage struct {
	repo     interfaces.Repository
	vectors  interfaces.VectorIndex
	analyzer interfaces.Analyzer
	slack    interfaces.SlackClient
	issues   interfaces.IssueClient
	policy   *model.Policy

	// channelID is the Slack channel receiving approval requests
	channelID types.ChannelID

	received    atomic.Int64
	triaged     atomic.Int64
	errorCount  atomic.Int64
	pending     atomic.Int64
	lastWebhook atomic.Int64

	timerMu sync.Mutex
	timers  map[types.TriageID]*time.Timer
}

// NewTriage creates the triage use case
func NewTriage(
	repo interfaces.Repository,
	vectors interfaces.VectorIndex,
	analyzer interfaces.Analyzer,
	slackClient interfaces.SlackClient,
	issueClient interfaces.IssueClient,
	policy *model.Policy,
	channelID types.ChannelID,
) *Triage {
	if policy == nil {
		policy = model.DefaultPolicy()
	}

	return &Triage{
		repo:      repo,
		vectors:   vectors,
		analyzer:  analyzer,
		slack:     slackClient,
		issues:    issueClient,
		policy:    policy,
		channelID: channelID,
		timers:    make(map[types.TriageID]*time.Timer),
	}
}

// HandleIssueOpened runs the analysis pipeline for a newly opened issue
// and posts the approval request to Slack. Analysis failures degrade to
// a medium-severity fallback instead of dropping the issue.
func (u *Triage) HandleIssueOpened(ctx context.Context, issue *model.Issue) (*model.TriageRecord, error) {
	logger := logging.From(ctx)

	if issue == nil {
		u.errorCount.Add(1)
		return nil, goerr.New("issue is nil")
	}
	if err := issue.Validate(); err != nil {
		u.errorCount.Add(1)
		return nil, goerr.Wrap(err, "invalid issue")
	}

	analysis, err := u.analyzer.AnalyzeIssue(ctx, issue)
	if err != nil {
		u.errorCount.Add(1)
		logger.Warn("Issue analysis failed, using fallback severity",
			"repo", issue.Repo,
			"number", issue.Number,
			"error", err,
		)
		analysis = &model.TriageAnalysis{
			Severity: types.SeverityMedium,
			Summary:  fallbackSummary,
		}
	}

	embedding, err := u.analyzer.EmbedIssue(ctx, issue.Title, issue.Body)
	if err != nil {
		u.errorCount.Add(1)
		logger.Warn("Issue embedding failed, skipping duplicate check",
			"repo", issue.Repo,
			"number", issue.Number,
			"error", err,
		)
		embedding = nil
	}

	dup := u.findDuplicate(ctx, embedding)

	record, err := model.NewTriageRecord(issue, analysis, dup, u.policy.ApprovalTimeout.Duration())
	if err != nil {
		u.errorCount.Add(1)
		return nil, goerr.Wrap(err, "failed to create triage record")
	}
	record.Embedding = embedding

	if err := u.repo.PutTriageRecord(ctx, record); err != nil {
		u.errorCount.Add(1)
		return nil, goerr.Wrap(err, "failed to store triage record")
	}

	blocks := slacksvc.BuildTriageRequestBlocks(record)
	channel, ts, err := u.slack.PostMessage(ctx, u.channelID.String(), slack.MsgOptionBlocks(blocks...))
	if err != nil {
		u.errorCount.Add(1)
		return nil, goerr.Wrap(err, "failed to post approval request",
			goerr.V("triageID", record.ID),
			goerr.V("channelID", u.channelID))
	}

	record.SlackChannelID = types.ChannelID(channel)
	record.SlackMessageTS = types.MessageTS(ts)
	if err := u.repo.PutTriageRecord(ctx, record); err != nil {
		u.errorCount.Add(1)
		return nil, goerr.Wrap(err, "failed to store Slack message reference",
			goerr.V("triageID", record.ID))
	}

	u.pending.Add(1)
	u.scheduleExpiry(record.ID, record.ExpiresAt)

	logger.Info("Triage approval requested",
		"triageID", record.ID,
		"repo", record.Repo,
		"number", record.Number,
		"severity", record.Severity,
		"duplicate", record.IsDuplicate(),
	)

	return record, nil
}

// findDuplicate looks for a prior issue close enough to the embedding.
// Search failures only disable the duplicate hint for this issue.
func (u *Triage) findDuplicate(ctx context.Context, embedding []float64) *model.DuplicateMatch {
	if len(embedding) == 0 {
		return nil
	}

	matches, err := u.vectors.Search(ctx, embedding, u.policy.CandidateLimit)
	if err != nil {
		u.errorCount.Add(1)
		logging.From(ctx).Warn("Duplicate search failed", "error", err)
		return nil
	}
	if len(matches) == 0 || matches[0].Similarity < u.policy.SimilarityThreshold {
		return nil
	}

	best := matches[0]
	return &model.DuplicateMatch{
		IssueNumber:     best.Number,
		Similarity:      best.Similarity,
		ProposedComment: llm.DraftDuplicateComment(best),
	}
}

// HandleDecision applies a human decision to a pending triage. The
// pending-to-decided transition commits first; GitHub and Slack updates
// follow, so no issue is ever modified without a recorded decision.
func (u *Triage) HandleDecision(ctx context.Context, id types.TriageID, decision *model.Decision) (*model.TriageRecord, error) {
	logger := logging.From(ctx)

	if decision == nil {
		return nil, goerr.New("decision is nil")
	}
	if err := decision.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid decision")
	}

	record, err := u.repo.MarkDecided(ctx, id, decision.Kind.Status(), decision.DecidedBy, time.Now())
	if err != nil {
		if !model.IsAlreadyDecided(err) && !model.IsTriageNotFound(err) {
			u.errorCount.Add(1)
		}
		return nil, err
	}

	u.cancelExpiry(id)
	u.pending.Add(-1)

	if decision.Modified {
		record.Severity = decision.EffectiveSeverity(record)
		record.Summary = decision.EffectiveSummary(record)
		if record.Duplicate != nil && decision.Comment != "" {
			record.Duplicate.ProposedComment = decision.Comment
		}
		if err := u.repo.PutTriageRecord(ctx, record); err != nil {
			logger.Warn("Failed to persist decision overrides",
				"triageID", id,
				"error", err,
			)
		}
	}

	var actions []string
	var note string
	var ghErr error
	if decision.Kind == types.DecisionApprove {
		actions, ghErr = u.applyApproval(ctx, record, decision)
		if ghErr != nil {
			u.errorCount.Add(1)
			note = ghErr.Error()
		}
	}

	u.writeAudit(ctx, record, actions, note)
	u.refreshSlackMessage(ctx, record, actions)
	u.triaged.Add(1)

	logger.Info("Triage decided",
		"triageID", id,
		"status", record.Status,
		"decidedBy", record.DecidedBy,
		"actions", actions,
	)

	if ghErr != nil {
		return record, goerr.Wrap(ghErr, "decision recorded but GitHub update failed",
			goerr.V("triageID", id))
	}
	return record, nil
}

// applyApproval performs the GitHub actions for an approved triage and
// returns the names of the actions that succeeded
func (u *Triage) applyApproval(ctx context.Context, record *model.TriageRecord, decision *model.Decision) ([]string, error) {
	var actions []string

	if record.IsDuplicate() {
		comment := decision.EffectiveComment(record)
		if err := u.issues.PostComment(ctx, record.Number, comment); err != nil {
			return actions, err
		}
		actions = append(actions, "comment")

		if err := u.issues.AddDuplicateLabel(ctx, record.Number); err != nil {
			return actions, err
		}
		actions = append(actions, "label:duplicate")

		if err := u.issues.CloseIssue(ctx, record.Number, "not_planned"); err != nil {
			return actions, err
		}
		actions = append(actions, "close:not_planned")

		return actions, nil
	}

	if err := u.issues.PostComment(ctx, record.Number, buildTriageComment(record, decision.Comment)); err != nil {
		return actions, err
	}
	actions = append(actions, "comment")

	if err := u.issues.AddLabel(ctx, record.Number, record.Severity); err != nil {
		return actions, err
	}
	actions = append(actions, "label:"+record.Severity.Label())

	// A confirmed non-duplicate joins the knowledge base
	if len(record.Embedding) > 0 {
		vec := &model.IssueVector{
			Repo:      record.Repo,
			Number:    record.Number,
			Title:     record.IssueTitle,
			Embedding: record.Embedding,
			IndexedAt: time.Now(),
		}
		if err := u.vectors.Put(ctx, vec); err != nil {
			return actions, err
		}
		actions = append(actions, "indexed")
	}

	return actions, nil
}

// ExpireTriage marks a pending triage as expired. Records decided in
// the meantime are left untouched.
func (u *Triage) ExpireTriage(ctx context.Context, id types.TriageID) error {
	record, err := u.repo.MarkDecided(ctx, id, types.TriageStatusExpired, "", time.Now())
	if err != nil {
		if model.IsAlreadyDecided(err) {
			return nil
		}
		u.errorCount.Add(1)
		return goerr.Wrap(err, "failed to expire triage record",
			goerr.V("triageID", id))
	}

	u.cancelExpiry(id)
	u.pending.Add(-1)

	u.writeAudit(ctx, record, nil, "approval window elapsed without a decision")

	if record.SlackChannelID != "" && record.SlackMessageTS != "" {
		blocks := slacksvc.BuildTriageExpiredBlocks(record)
		if _, _, err := u.slack.UpdateMessage(ctx, record.SlackChannelID.String(), record.SlackMessageTS.String(), slack.MsgOptionBlocks(blocks...)); err != nil {
			apperr.Handle(ctx, goerr.Wrap(err, "failed to update expired approval message",
				goerr.V("triageID", id)))
		}
	}

	logging.From(ctx).Info("Triage expired without decision",
		"triageID", id,
		"repo", record.Repo,
		"number", record.Number,
	)

	return nil
}

// GetTriageRecord fetches a record by ID
func (u *Triage) GetTriageRecord(ctx context.Context, id types.TriageID) (*model.TriageRecord, error) {
	return u.repo.GetTriageRecord(ctx, id)
}

// ResumePending reschedules expiry timers for records that were pending
// when the process last stopped. Records already past their deadline
// are expired immediately.
func (u *Triage) ResumePending(ctx context.Context) (int, error) {
	records, err := u.repo.ListTriageRecords(ctx, 0)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list triage records")
	}

	resumed := 0
	for _, record := range records {
		if record.Status != types.TriageStatusPending {
			continue
		}
		u.pending.Add(1)
		u.scheduleExpiry(record.ID, record.ExpiresAt)
		resumed++
	}

	if resumed > 0 {
		logging.From(ctx).Info("Resumed pending triage records", "count", resumed)
	}
	return resumed, nil
}

// MarkWebhookReceived counts an accepted webhook delivery
func (u *Triage) MarkWebhookReceived() {
	u.received.Add(1)
	u.lastWebhook.Store(time.Now().UnixNano())
}

// Stats returns a snapshot of the service counters
func (u *Triage) Stats(ctx context.Context) *model.Stats {
	stats := &model.Stats{
		Received: u.received.Load(),
		Triaged:  u.triaged.Load(),
		Errors:   u.errorCount.Load(),
		Pending:  u.pending.Load(),
	}
	if ns := u.lastWebhook.Load(); ns > 0 {
		stats.LastWebhook = time.Unix(0, ns)
	}
	return stats
}

// Close stops all scheduled expiry timers
func (u *Triage) Close() {
	u.timerMu.Lock()
	defer u.timerMu.Unlock()

	for id, timer := range u.timers {
		timer.Stop()
		delete(u.timers, id)
	}
}

func (u *Triage) scheduleExpiry(id types.TriageID, expiresAt time.Time) {
	delay := time.Until(expiresAt)
	if delay < 0 {
		delay = 0
	}

	u.timerMu.Lock()
	defer u.timerMu.Unlock()

	if prev, ok := u.timers[id]; ok {
		prev.Stop()
	}
	u.timers[id] = time.AfterFunc(delay, func() {
		ctx := context.Background()
		if err := u.ExpireTriage(ctx, id); err != nil {
			apperr.Handle(ctx, err)
		}
	})
}

func (u *Triage) cancelExpiry(id types.TriageID) {
	u.timerMu.Lock()
	defer u.timerMu.Unlock()

	if timer, ok := u.timers[id]; ok {
		timer.Stop()
		delete(u.timers, id)
	}
}

// writeAudit appends the single audit entry for a decided record
func (u *Triage) writeAudit(ctx context.Context, record *model.TriageRecord, actions []string, note string) {
	entry, err := model.NewAuditEntry(record, actions, note)
	if err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to build audit entry",
			goerr.V("triageID", record.ID)))
		return
	}
	if err := u.repo.PutAuditEntry(ctx, entry); err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to write audit entry",
			goerr.V("triageID", record.ID)))
	}
}

// refreshSlackMessage swaps the approval request for the decided view
// and posts the completion summary in its thread
func (u *Triage) refreshSlackMessage(ctx context.Context, record *model.TriageRecord, actions []string) {
	if record.SlackChannelID == "" || record.SlackMessageTS == "" {
		return
	}

	channel := record.SlackChannelID.String()
	ts := record.SlackMessageTS.String()

	blocks := slacksvc.BuildTriageDecidedBlocks(record)
	if _, _, err := u.slack.UpdateMessage(ctx, channel, ts, slack.MsgOptionBlocks(blocks...)); err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to update approval message",
			goerr.V("triageID", record.ID)))
	}

	completion := slacksvc.BuildCompletionBlocks(record, actions)
	if _, _, err := u.slack.PostMessage(ctx, channel, slack.MsgOptionTS(ts), slack.MsgOptionBlocks(completion...)); err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to post completion message",
			goerr.V("triageID", record.ID)))
	}
}

// buildTriageComment renders the GitHub comment for an approved triage
func buildTriageComment(record *model.TriageRecord, extra string) string {
	var b strings.Builder
	b.WriteString("## AI Triage Analysis\n\n")
	fmt.Fprintf(&b, "**Severity:** %s %s\n\n", record.Severity.Emoji(), record.Severity.Label())
	fmt.Fprintf(&b, "**Summary:** %s\n", record.Summary)
	if extra != "" {
		fmt.Fprintf(&b, "\n%s\n", extra)
	}
	b.WriteString("\n_Reviewed and approved by the support team._\n")
	return b.String()
}

var _ TriageUseCase = (*Triage)(nil)
