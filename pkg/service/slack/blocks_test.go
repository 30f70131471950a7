package slack_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	slacksvc "github.com/secmon-lab/shinobi/pkg/service/slack"
	"github.com/slack-go/slack"
)

func testRecord(t *testing.T) *model.TriageRecord {
	t.Helper()

	issue := &model.Issue{
		Repo:   "acme/widgets",
		Number: 42,
		Title:  "Crash on save",
		Body:   "Saving settings crashes the app.",
		URL:    "https://github.com/acme/widgets/issues/42",
	}
	analysis := &model.TriageAnalysis{
		Severity: types.SeverityHigh,
		Summary:  "App crashes when saving settings.",
	}

	return gt.R1(model.NewTriageRecord(issue, analysis, nil, time.Hour)).NoError(t)
}

func findActionBlock(blocks []slack.Block) *slack.ActionBlock {
	for _, block := range blocks {
		if action, ok := block.(*slack.ActionBlock); ok {
			return action
		}
	}
	return nil
}

func TestBuildTriageRequestBlocks(t *testing.T) {
	t.Run("Buttons carry the record ID", func(t *testing.T) {
		record := testRecord(t)
		blocks := slacksvc.BuildTriageRequestBlocks(record)

		action := findActionBlock(blocks)
		gt.NotNil(t, action)
		gt.A(t, action.Elements.ElementSet).Length(3)

		for _, elem := range action.Elements.ElementSet {
			button := gt.Cast[*slack.ButtonBlockElement](t, elem)
			gt.Equal(t, record.ID.String(), button.Value)
		}

		approve := gt.Cast[*slack.ButtonBlockElement](t, action.Elements.ElementSet[0])
		gt.Equal(t, slacksvc.ActionIDApproveTriage, approve.ActionID)
	})

	t.Run("Duplicate match adds a warning section", func(t *testing.T) {
		record := testRecord(t)
		plain := slacksvc.BuildTriageRequestBlocks(record)

		record.Duplicate = &model.DuplicateMatch{
			IssueNumber:     17,
			Similarity:      0.91,
			ProposedComment: "Looks like a duplicate of #17.",
		}
		withDup := slacksvc.BuildTriageRequestBlocks(record)

		gt.Equal(t, len(plain)+1, len(withDup))
	})
}

func TestBuildTriageDecidedBlocks(t *testing.T) {
	record := testRecord(t)
	record.Status = types.TriageStatusApproved
	record.DecidedBy = "U123"
	record.DecidedAt = time.Now()

	blocks := slacksvc.BuildTriageDecidedBlocks(record)

	// The decided message must not carry buttons anymore
	gt.Nil(t, findActionBlock(blocks))
}

func TestBuildTriageExpiredBlocks(t *testing.T) {
	record := testRecord(t)
	record.Status = types.TriageStatusExpired

	blocks := slacksvc.BuildTriageExpiredBlocks(record)

	gt.Nil(t, findActionBlock(blocks))
	gt.True(t, len(blocks) > 0)
}

func TestBuildTriageEditModal(t *testing.T) {
	record := testRecord(t)
	modal := slacksvc.BuildTriageEditModal(record)

	gt.Equal(t, slacksvc.CallbackIDTriageEditModal, modal.CallbackID)
	gt.Equal(t, record.ID.String(), modal.PrivateMetadata)
	gt.A(t, modal.Blocks.BlockSet).Length(3)

	// Severity select must offer all five levels with the current one
	// preselected
	severityBlock := gt.Cast[*slack.InputBlock](t, modal.Blocks.BlockSet[0])
	selectElem := gt.Cast[*slack.SelectBlockElement](t, severityBlock.Element)
	gt.A(t, selectElem.Options).Length(len(types.Severities()))
	gt.NotNil(t, selectElem.InitialOption)
	gt.Equal(t, record.Severity.String(), selectElem.InitialOption.Value)

	// Summary input is prefilled
	summaryBlock := gt.Cast[*slack.InputBlock](t, modal.Blocks.BlockSet[1])
	summaryInput := gt.Cast[*slack.PlainTextInputBlockElement](t, summaryBlock.Element)
	gt.Equal(t, record.Summary, summaryInput.InitialValue)
}
