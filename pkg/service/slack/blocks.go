package slack

import (
	"fmt"
	"strings"
	"time"

	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	"github.com/slack-go/slack"
)

// Block, action, and callback ID constants for Slack interactions
const (
	ActionIDApproveTriage = "approve_triage"
	ActionIDRejectTriage  = "reject_triage"
	ActionIDEditTriage    = "edit_triage"

	CallbackIDTriageEditModal = "triage_edit_modal"

	BlockIDSeverityInput   = "severity_block"
	ActionIDSeveritySelect = "severity_select"
	BlockIDSummaryInput    = "summary_block"
	ActionIDSummaryInput   = "summary_input"
	BlockIDCommentInput    = "comment_block"
	ActionIDCommentInput   = "comment_input"
)

// maximum option description length accepted by Slack
const maxOptionDescLen = 75

func formatSeverityText(severity types.Severity) string {
	return fmt.Sprintf("%s %s", severity.Emoji(), severity.Label())
}

func issueHeadline(record *model.TriageRecord) string {
	return fmt.Sprintf("<%s|%s#%d> %s",
		record.IssueURL, record.Repo, record.Number.Int(), record.IssueTitle)
}

// BuildTriageRequestBlocks creates the approval request message for a
// newly analyzed issue. The buttons carry the triage record ID as the
// action value.
func BuildTriageRequestBlocks(record *model.TriageRecord) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, "🔍 Issue Triage Request", false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, issueHeadline(record), false, false),
			nil, nil,
		),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Severity:*\n%s", formatSeverityText(record.Severity)), false, false),
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Summary:*\n%s", record.Summary), false, false),
		}, nil),
	}

	if record.IsDuplicate() {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("⚠️ *Possible duplicate of #%d* (similarity %.2f)\n_Proposed comment:_ %s",
					record.Duplicate.IssueNumber.Int(),
					record.Duplicate.Similarity,
					record.Duplicate.ProposedComment),
				false, false),
			nil, nil,
		))
	}

	blocks = append(blocks,
		slack.NewActionBlock(
			"triage_actions",
			slack.NewButtonBlockElement(
				ActionIDApproveTriage,
				record.ID.String(),
				slack.NewTextBlockObject(slack.PlainTextType, "Approve", false, false),
			).WithStyle(slack.StylePrimary),
			slack.NewButtonBlockElement(
				ActionIDEditTriage,
				record.ID.String(),
				slack.NewTextBlockObject(slack.PlainTextType, "Edit", false, false),
			),
			slack.NewButtonBlockElement(
				ActionIDRejectTriage,
				record.ID.String(),
				slack.NewTextBlockObject(slack.PlainTextType, "Reject", false, false),
			).WithStyle(slack.StyleDanger),
		),
		slack.NewContextBlock(
			"triage_expiry",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("Expires <!date^%d^{date_short_pretty} {time}|%s>",
					record.ExpiresAt.Unix(),
					record.ExpiresAt.UTC().Format(time.RFC3339)),
				false, false),
		),
	)

	return blocks
}

// BuildTriageDecidedBlocks replaces the approval request once a
// decision has been recorded. The record must carry its final severity
// and summary.
func BuildTriageDecidedBlocks(record *model.TriageRecord) []slack.Block {
	var verdict string
	switch record.Status {
	case types.TriageStatusApproved:
		verdict = fmt.Sprintf("✅ Approved by <@%s>", record.DecidedBy)
	case types.TriageStatusRejected:
		verdict = fmt.Sprintf("❌ Rejected by <@%s>", record.DecidedBy)
	default:
		verdict = fmt.Sprintf("Status: %s", record.Status)
	}

	return []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, "🔍 Issue Triage", false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, issueHeadline(record), false, false),
			nil, nil,
		),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Severity:*\n%s", formatSeverityText(record.Severity)), false, false),
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Summary:*\n%s", record.Summary), false, false),
		}, nil),
		slack.NewContextBlock(
			"triage_verdict",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("%s at <!date^%d^{date_short_pretty} {time}|%s>",
					verdict,
					record.DecidedAt.Unix(),
					record.DecidedAt.UTC().Format(time.RFC3339)),
				false, false),
		),
	}
}

// BuildTriageExpiredBlocks replaces the approval request when no
// decision arrived before the deadline
func BuildTriageExpiredBlocks(record *model.TriageRecord) []slack.Block {
	return []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, "🔍 Issue Triage", false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, issueHeadline(record), false, false),
			nil, nil,
		),
		slack.NewContextBlock(
			"triage_expired",
			slack.NewTextBlockObject(slack.MarkdownType,
				"⏰ Approval request expired without a decision. No changes were made to the issue.",
				false, false),
		),
	}
}

// BuildCompletionBlocks builds the thread reply posted after the
// decided actions have been applied to GitHub
func BuildCompletionBlocks(record *model.TriageRecord, actions []string) []slack.Block {
	text := "No GitHub changes were made."
	if len(actions) > 0 {
		text = fmt.Sprintf("Applied to GitHub: %s", strings.Join(actions, ", "))
	}

	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

// BuildTriageEditModal creates the modal for adjusting severity and
// summary before approval. The triage record ID travels in the private
// metadata.
func BuildTriageEditModal(record *model.TriageRecord) slack.ModalViewRequest {
	var severityOptions []*slack.OptionBlockObject
	var initialOption *slack.OptionBlockObject

	for _, severity := range types.Severities() {
		description := severity.Description()
		if len(description) > maxOptionDescLen {
			description = description[:maxOptionDescLen-3] + "..."
		}

		option := slack.NewOptionBlockObject(
			severity.String(),
			slack.NewTextBlockObject(slack.PlainTextType, formatSeverityText(severity), false, false),
			slack.NewTextBlockObject(slack.PlainTextType, description, false, false),
		)
		severityOptions = append(severityOptions, option)

		if severity == record.Severity {
			initialOption = option
		}
	}

	severitySelect := slack.NewOptionsSelectBlockElement(
		"static_select",
		slack.NewTextBlockObject(slack.PlainTextType, "Select severity", false, false),
		ActionIDSeveritySelect,
		severityOptions...,
	)
	severitySelect.InitialOption = initialOption

	severityBlock := slack.NewInputBlock(
		BlockIDSeverityInput,
		slack.NewTextBlockObject(slack.PlainTextType, "Severity", false, false),
		nil,
		severitySelect,
	)

	summaryInput := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "One-sentence summary", false, false),
		ActionIDSummaryInput,
	)
	summaryInput.Multiline = true
	summaryInput.InitialValue = record.Summary

	summaryBlock := slack.NewInputBlock(
		BlockIDSummaryInput,
		slack.NewTextBlockObject(slack.PlainTextType, "Summary", false, false),
		nil,
		summaryInput,
	)

	commentInput := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "Extra note appended to the GitHub comment", false, false),
		ActionIDCommentInput,
	)
	commentInput.Multiline = true

	commentBlock := slack.NewInputBlock(
		BlockIDCommentInput,
		slack.NewTextBlockObject(slack.PlainTextType, "Additional comment (optional)", false, false),
		nil,
		commentInput,
	)
	commentBlock.Optional = true

	return slack.ModalViewRequest{
		Type:            slack.ViewType("modal"),
		Title:           slack.NewTextBlockObject(slack.PlainTextType, "Edit Triage", false, false),
		Submit:          slack.NewTextBlockObject(slack.PlainTextType, "Approve", false, false),
		Close:           slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		CallbackID:      CallbackIDTriageEditModal,
		PrivateMetadata: record.ID.String(),
		Blocks: slack.Blocks{
			BlockSet: []slack.Block{
				severityBlock,
				summaryBlock,
				commentBlock,
			},
		},
	}
}
