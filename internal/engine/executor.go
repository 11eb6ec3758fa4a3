// Package engine drives a scheduled step through its execution lifecycle:
// autonomy gate, compliance gate, personalization, send, and failure
// classification.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/compliance"
	"github.com/unclebandit/salesloop-backend/internal/config"
	appErrors "github.com/unclebandit/salesloop-backend/internal/errors"
	"github.com/unclebandit/salesloop-backend/internal/events"
	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/policy"
	"github.com/unclebandit/salesloop-backend/internal/repository"
	"github.com/unclebandit/salesloop-backend/internal/schedule"
	"github.com/unclebandit/salesloop-backend/internal/sender"
)

// Outcome says what one pass through the state machine did with a step.
type Outcome string

const (
	OutcomeSent             Outcome = "sent"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeFailed           Outcome = "failed"
	OutcomeDeferred         Outcome = "deferred"
	OutcomeAwaitingApproval Outcome = "awaiting_approval"
)

// Options tweak one execution request.
type Options struct {
	ForceApproval     bool
	SkipAutonomyCheck bool
}

type Executor struct {
	Steps     repository.StepRepositoryInterface
	Contacts  repository.ContactRepositoryInterface
	Approvals *Approvals
	Gate      *compliance.Gate
	Sender    sender.Sender
	Placer    *schedule.Placer
	Events    events.Emitter
	Hours     config.HoursConfig

	// TransientRetry is how far out a transient failure is rescheduled.
	TransientRetry time.Duration

	Log *zap.Logger
	Now func() time.Time
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Executor) emit(step *model.ScheduledStep, typ events.EventType, desc string) {
	if e.Events == nil {
		return
	}
	e.Events.Emit(step.WorkspaceID, events.Event{
		Type:        typ,
		StepID:      step.ID,
		Description: desc,
		Timestamp:   e.now(),
	})
}

// Execute runs one step through the lifecycle. The returned error is an
// infrastructure failure (persistence, usage lookup) or a validation error
// for a step that can never be composed; step-level send failures are
// absorbed into the outcome per the classifier rules.
func (e *Executor) Execute(ctx context.Context, step *model.ScheduledStep, autonomy model.AutonomyConfig, campaignDeployed bool, opts Options) (Outcome, error) {
	if step.Status.Terminal() {
		return "", fmt.Errorf("step %d already resolved as %s", step.ID, step.Status)
	}
	if step.Status == model.StatusRequiresApproval {
		// Still parked in the approval queue; nothing to do until a human acts.
		return OutcomeAwaitingApproval, nil
	}
	if step.Status == model.StatusExecuting {
		return "", fmt.Errorf("step %d already executing", step.ID)
	}

	deployed := step.DeployedByUser || campaignDeployed

	if step.Status == model.StatusPending && !opts.SkipAutonomyCheck {
		decision := policy.Evaluate(autonomy.Level, step.Channel, step.EffectiveConfidence(), autonomy.ConfidenceThreshold, deployed)
		if opts.ForceApproval {
			decision = policy.Decision{Required: true, Reason: "approval forced by caller"}
		}
		if decision.Required {
			if _, err := e.Approvals.Create(ctx, step, decision.Reason, step.EffectiveConfidence()); err != nil {
				return "", fmt.Errorf("queue approval for step %d: %w", step.ID, err)
			}
			e.emit(step, events.EventPaused, "awaiting approval: "+decision.Reason)
			return OutcomeAwaitingApproval, nil
		}
	}

	// Resolve the recipient while the step is still pending: a step that
	// cannot be composed must never enter executing.
	var contact *model.Contact
	recipient := ""
	if step.Channel == model.ChannelLeadSearch {
		// Discovery steps target a query, not a contact.
		recipient = step.Content
	} else {
		var err error
		contact, err = e.Contacts.GetByID(ctx, step.ContactID)
		if err != nil {
			var nf *appErrors.ErrContactNotFound
			if errors.As(err, &nf) {
				return e.cleanupPermanentTarget(ctx, step, "contact no longer exists")
			}
			return "", fmt.Errorf("contact lookup for step %d: %w", step.ID, err)
		}
		recipient = contact.Recipient(step.Channel)
		if recipient == "" {
			return e.cancelUncomposable(ctx, step, appErrors.NewValidation("contact %d has no %s for channel %s",
				step.ContactID, step.Channel.RecipientField(), step.Channel))
		}
	}

	if err := step.Transition(model.StatusExecuting); err != nil {
		return "", err
	}
	if err := e.Steps.Update(ctx, step); err != nil {
		return "", fmt.Errorf("mark step %d executing: %w", step.ID, err)
	}
	e.emit(step, events.EventStarted, fmt.Sprintf("executing %s step", step.Channel))

	if step.Channel.NetworkRestricted() {
		decision, err := e.Gate.Check(ctx, step.WorkspaceID, step.Channel)
		if err != nil {
			// Gate unavailable: put the step back rather than leaving it stuck.
			if terr := step.Transition(model.StatusPending); terr == nil {
				if uerr := e.Steps.Update(ctx, step); uerr != nil {
					e.Log.Warn("failed to restore step after gate error", zap.Int64("step_id", step.ID), zap.Error(uerr))
				}
			}
			return "", fmt.Errorf("compliance check for step %d: %w", step.ID, err)
		}
		if !decision.Allowed {
			return e.defer_(ctx, step, decision.RetryAt, decision.Reason)
		}
	}

	step.Subject = Personalize(step.Subject, contact)
	step.Content = Personalize(step.Content, contact)

	res, err := e.Sender.Send(ctx, step.Channel, recipient, step.Subject, step.Content)
	if err != nil {
		return e.handleSendFailure(ctx, step, err)
	}

	now := e.now()
	step.ExecutedAt = &now
	step.ErrorMessage = ""
	if res.AlreadySatisfied {
		if err := step.Transition(model.StatusSkipped); err != nil {
			return "", err
		}
		if err := e.Steps.Update(ctx, step); err != nil {
			return "", fmt.Errorf("mark step %d skipped: %w", step.ID, err)
		}
		e.emit(step, events.EventCompleted, "goal already satisfied, nothing sent")
		return OutcomeSkipped, nil
	}

	if err := step.Transition(model.StatusSent); err != nil {
		return "", err
	}
	step.MessageID = res.MessageID
	if err := e.Steps.Update(ctx, step); err != nil {
		return "", fmt.Errorf("mark step %d sent: %w", step.ID, err)
	}
	e.emit(step, events.EventCompleted, fmt.Sprintf("sent via %s", step.Channel))
	return OutcomeSent, nil
}

func (e *Executor) handleSendFailure(ctx context.Context, step *model.ScheduledStep, sendErr error) (Outcome, error) {
	class := sender.Classify(sendErr)
	e.Log.Info("send failed",
		zap.Int64("step_id", step.ID),
		zap.String("channel", string(step.Channel)),
		zap.String("class", string(class)),
		zap.Error(sendErr))

	switch class {
	case sender.ClassComplianceBlocked:
		return e.defer_(ctx, step, e.Placer.NextWindowOpen(e.Hours.LocalOffsetHours, e.Hours.WindowStart), sendErr.Error())
	case sender.ClassTransient:
		return e.defer_(ctx, step, e.now().Add(e.TransientRetry), sendErr.Error())
	case sender.ClassPermanentTarget:
		return e.cleanupPermanentTarget(ctx, step, sendErr.Error())
	default:
		return e.markFailed(ctx, step, sendErr.Error())
	}
}

// cancelUncomposable resolves a step whose message can never be assembled,
// before it ever enters executing. The validation error is returned to the
// caller; it does not count as an execution failure.
func (e *Executor) cancelUncomposable(ctx context.Context, step *model.ScheduledStep, verr error) (Outcome, error) {
	if err := step.Transition(model.StatusCancelled); err != nil {
		return "", err
	}
	step.ErrorMessage = verr.Error()
	if err := e.Steps.Update(ctx, step); err != nil {
		return "", fmt.Errorf("cancel step %d: %w", step.ID, err)
	}
	e.emit(step, events.EventFailed, verr.Error())
	return "", verr
}

// defer_ puts the step back to pending at a later time. Deferral is not a
// failure: error text is cleared so the step displays as pending.
func (e *Executor) defer_(ctx context.Context, step *model.ScheduledStep, until time.Time, why string) (Outcome, error) {
	if err := step.Transition(model.StatusPending); err != nil {
		return "", err
	}
	step.ScheduledAt = until
	step.ErrorMessage = ""
	if err := e.Steps.Update(ctx, step); err != nil {
		return "", fmt.Errorf("defer step %d: %w", step.ID, err)
	}
	e.emit(step, events.EventDeferred, fmt.Sprintf("deferred to %s: %s", until.Format(time.RFC3339), why))
	return OutcomeDeferred, nil
}

// cleanupPermanentTarget removes an unreachable contact from the campaign
// and drops its other unexecuted steps; their approval items go with them.
// This step resolves as skipped when the send already started, cancelled
// when the contact vanished before executing. Not counted as a failure.
func (e *Executor) cleanupPermanentTarget(ctx context.Context, step *model.ScheduledStep, why string) (Outcome, error) {
	if step.ContactID != 0 {
		if err := e.Contacts.RemoveFromCampaign(ctx, step.CampaignID, step.ContactID); err != nil {
			e.Log.Warn("failed to remove contact from campaign", zap.Int64("contact_id", step.ContactID), zap.Error(err))
		}
		if n, err := e.Steps.DeletePendingByContact(ctx, step.CampaignID, step.ContactID, step.ID); err != nil {
			e.Log.Warn("failed to drop pending steps for contact", zap.Int64("contact_id", step.ContactID), zap.Error(err))
		} else if n > 0 {
			e.Log.Info("dropped pending steps for unreachable contact",
				zap.Int64("contact_id", step.ContactID), zap.Int("dropped", n))
		}
	}

	terminal := model.StatusSkipped
	if step.Status != model.StatusExecuting {
		terminal = model.StatusCancelled
	}
	if err := step.Transition(terminal); err != nil {
		return "", err
	}
	step.ErrorMessage = "target unreachable: " + why
	if err := e.Steps.Update(ctx, step); err != nil {
		return "", fmt.Errorf("skip step %d: %w", step.ID, err)
	}
	e.emit(step, events.EventCleanup, "contact removed from campaign: "+why)
	return OutcomeSkipped, nil
}

func (e *Executor) markFailed(ctx context.Context, step *model.ScheduledStep, msg string) (Outcome, error) {
	if err := step.Transition(model.StatusFailed); err != nil {
		return "", err
	}
	step.ErrorMessage = msg
	if err := e.Steps.Update(ctx, step); err != nil {
		return "", fmt.Errorf("fail step %d: %w", step.ID, err)
	}
	e.emit(step, events.EventFailed, msg)
	return OutcomeFailed, nil
}
