package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/repository"
)

// Approvals is the human-decision queue: steps the autonomy policy flagged
// wait here until someone approves or rejects them. Resolving an already
// resolved item is a no-op, which keeps duplicate UI submissions harmless.
type Approvals struct {
	Steps repository.StepRepositoryInterface
	Items repository.ApprovalRepositoryInterface
	Log   *zap.Logger
	Now   func() time.Time
}

func (a *Approvals) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

// Create parks a step in the approval queue. An existing pending item for
// the step is reused so the item/step pairing stays one-to-one.
func (a *Approvals) Create(ctx context.Context, step *model.ScheduledStep, reason string, confidence int) (*model.ApprovalItem, error) {
	existing, err := a.Items.GetByStepID(ctx, step.ID)
	if err != nil {
		return nil, err
	}
	item := existing
	if item == nil || item.Status.Resolved() {
		item = &model.ApprovalItem{
			StepID:      step.ID,
			WorkspaceID: step.WorkspaceID,
			Confidence:  confidence,
			Reasoning:   reason,
			Preview:     step.Content,
			Status:      model.ApprovalPending,
		}
		if err := a.Items.Create(ctx, item); err != nil {
			return nil, err
		}
	}

	if step.Status != model.StatusRequiresApproval {
		if err := step.Transition(model.StatusRequiresApproval); err != nil {
			return nil, err
		}
	}
	step.RequiresApproval = true
	if err := a.Steps.Update(ctx, step); err != nil {
		return nil, err
	}
	return item, nil
}

// Approve releases the step back into execution. No-op when the item is
// already resolved.
func (a *Approvals) Approve(ctx context.Context, stepID int64, approverID string) error {
	item, err := a.Items.GetByStepID(ctx, stepID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("no approval item for step %d", stepID)
	}
	if item.Status.Resolved() {
		a.Log.Debug("approval already resolved, ignoring", zap.Int64("step_id", stepID))
		return nil
	}

	if err := a.Items.Resolve(ctx, stepID, model.ApprovalApproved, approverID, a.now()); err != nil {
		return err
	}

	step, err := a.Steps.GetByID(ctx, stepID)
	if err != nil {
		return err
	}
	if err := step.Transition(model.StatusApproved); err != nil {
		return err
	}
	step.RequiresApproval = false
	step.ApprovedBy = approverID
	return a.Steps.Update(ctx, step)
}

// Reject cancels the step. No-op when the item is already resolved.
func (a *Approvals) Reject(ctx context.Context, stepID int64, rejectorID, reason string) error {
	item, err := a.Items.GetByStepID(ctx, stepID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("no approval item for step %d", stepID)
	}
	if item.Status.Resolved() {
		a.Log.Debug("approval already resolved, ignoring", zap.Int64("step_id", stepID))
		return nil
	}

	if err := a.Items.Resolve(ctx, stepID, model.ApprovalRejected, rejectorID, a.now()); err != nil {
		return err
	}

	step, err := a.Steps.GetByID(ctx, stepID)
	if err != nil {
		return err
	}
	if err := step.Transition(model.StatusCancelled); err != nil {
		return err
	}
	step.RequiresApproval = false
	if reason != "" {
		step.ErrorMessage = "rejected: " + reason
	}
	return a.Steps.Update(ctx, step)
}

// List returns unresolved items for a workspace, newest first.
func (a *Approvals) List(ctx context.Context, workspaceID string) ([]*model.ApprovalItem, error) {
	return a.Items.ListUnresolved(ctx, workspaceID)
}
