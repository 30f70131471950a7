package slack

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	slacksvc "github.com/secmon-lab/shinobi/pkg/service/slack"
	"github.com/secmon-lab/shinobi/pkg/usecase"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// InteractionHandler handles Slack interaction callbacks
type InteractionHandler struct {
	triageUC    usecase.TriageUseCase
	slackClient interfaces.SlackClient
}

// NewInteractionHandler creates a new interaction handler
func NewInteractionHandler(ctx context.Context, triageUC usecase.TriageUseCase, slackClient interfaces.SlackClient) *InteractionHandler {
	return &InteractionHandler{
		triageUC:    triageUC,
		slackClient: slackClient,
	}
}

// HandleInteraction handles a Slack interaction payload
func (h *InteractionHandler) HandleInteraction(ctx context.Context, payload []byte) error {
	var interaction slack.InteractionCallback
	if err := json.Unmarshal(payload, &interaction); err != nil {
		return goerr.Wrap(err, "failed to unmarshal interaction payload")
	}

	logging.From(ctx).Info("Handling Slack interaction",
		"type", string(interaction.Type),
		"user", interaction.User.ID,
		"team", interaction.Team.ID,
	)

	switch interaction.Type {
	case slack.InteractionTypeBlockActions:
		return h.handleBlockActions(ctx, &interaction)

	case slack.InteractionTypeViewSubmission:
		return h.handleViewSubmission(ctx, &interaction)

	case slack.InteractionTypeViewClosed:
		logging.From(ctx).Debug("View closed", "viewID", interaction.View.ID)
		return nil

	default:
		logging.From(ctx).Debug("Unhandled interaction type",
			"type", string(interaction.Type),
		)
		return nil
	}
}

// handleBlockActions handles the Approve/Edit/Reject buttons
func (h *InteractionHandler) handleBlockActions(ctx context.Context, interaction *slack.InteractionCallback) error {
	logger := logging.From(ctx)

	for _, action := range interaction.ActionCallback.BlockActions {
		logger.Info("Block action triggered",
			"actionID", action.ActionID,
			"value", action.Value,
			"user", interaction.User.ID,
		)

		triageID := types.TriageID(action.Value)
		if triageID == "" {
			logger.Error("Empty triage ID in action value", "actionID", action.ActionID)
			continue
		}

		switch action.ActionID {
		case slacksvc.ActionIDApproveTriage:
			if err := h.applyDecision(ctx, triageID, types.DecisionApprove, interaction.User.ID); err != nil {
				return err
			}

		case slacksvc.ActionIDRejectTriage:
			if err := h.applyDecision(ctx, triageID, types.DecisionReject, interaction.User.ID); err != nil {
				return err
			}

		case slacksvc.ActionIDEditTriage:
			if err := h.openEditModal(ctx, triageID, interaction.TriggerID); err != nil {
				return err
			}

		default:
			logger.Debug("Unhandled block action", "actionID", action.ActionID)
		}
	}

	return nil
}

// applyDecision applies an unmodified approve or reject
func (h *InteractionHandler) applyDecision(ctx context.Context, id types.TriageID, kind types.DecisionKind, userID string) error {
	decision := &model.Decision{
		Kind:      kind,
		DecidedBy: types.SlackUserID(userID),
	}

	if _, err := h.triageUC.HandleDecision(ctx, id, decision); err != nil {
		// A second click on an already decided record is not an error
		if model.IsAlreadyDecided(err) {
			logging.From(ctx).Info("Decision ignored, record already decided",
				"triageID", id,
				"user", userID,
			)
			return nil
		}
		return goerr.Wrap(err, "failed to apply decision",
			goerr.V("triageID", id),
			goerr.V("kind", kind))
	}

	return nil
}

// openEditModal fetches the record and opens the edit modal
func (h *InteractionHandler) openEditModal(ctx context.Context, id types.TriageID, triggerID string) error {
	record, err := h.triageUC.GetTriageRecord(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to load triage record for modal",
			goerr.V("triageID", id))
	}

	modal := slacksvc.BuildTriageEditModal(record)
	if _, err := h.slackClient.OpenView(ctx, triggerID, modal); err != nil {
		return goerr.Wrap(err, "failed to open edit modal",
			goerr.V("triageID", id))
	}

	return nil
}

// handleViewSubmission handles the edit modal submit, which approves
// the triage with the entered overrides
func (h *InteractionHandler) handleViewSubmission(ctx context.Context, interaction *slack.InteractionCallback) error {
	logger := logging.From(ctx)

	if interaction.View.CallbackID != slacksvc.CallbackIDTriageEditModal {
		logger.Debug("Unhandled view submission", "callbackID", interaction.View.CallbackID)
		return nil
	}

	triageID := types.TriageID(interaction.View.PrivateMetadata)
	if triageID == "" {
		return goerr.New("missing triage ID in view private metadata")
	}

	values := interaction.View.State.Values

	severityValue := values[slacksvc.BlockIDSeverityInput][slacksvc.ActionIDSeveritySelect].SelectedOption.Value
	severity, ok := types.ParseSeverity(severityValue)
	if !ok {
		return goerr.New("invalid severity in modal submission",
			goerr.V("severity", severityValue))
	}

	decision := &model.Decision{
		Kind:      types.DecisionApprove,
		Severity:  severity,
		Summary:   values[slacksvc.BlockIDSummaryInput][slacksvc.ActionIDSummaryInput].Value,
		Comment:   values[slacksvc.BlockIDCommentInput][slacksvc.ActionIDCommentInput].Value,
		Modified:  true,
		DecidedBy: types.SlackUserID(interaction.User.ID),
	}

	if _, err := h.triageUC.HandleDecision(ctx, triageID, decision); err != nil {
		if model.IsAlreadyDecided(err) {
			logger.Info("Modal submission ignored, record already decided",
				"triageID", triageID,
			)
			return nil
		}
		return goerr.Wrap(err, "failed to apply modal decision",
			goerr.V("triageID", triageID))
	}

	return nil
}
