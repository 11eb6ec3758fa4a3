package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/salesloop-backend/internal/errors"
	"github.com/unclebandit/salesloop-backend/internal/events"
	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/repository"
)

// StepResult is the per-step line in an execution run result.
type StepResult struct {
	StepID  int64   `json:"step_id"`
	Channel string  `json:"channel"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// RunResult summarizes one ExecuteCampaign invocation.
type RunResult struct {
	RunID           string       `json:"run_id"`
	CampaignID      int64        `json:"campaign_id"`
	Total           int          `json:"total"`
	Executed        int          `json:"executed"`
	Failed          int          `json:"failed"`
	PendingApproval int          `json:"pending_approval"`
	Deferred        int          `json:"deferred"`
	Skipped         int          `json:"skipped"`
	Steps           []StepResult `json:"steps"`
}

// Runner executes all due steps of a campaign, one at a time. Sequential
// processing is deliberate: compliance counters are read-then-decided per
// step, and serial sends keep the pacing humanized.
type Runner struct {
	Campaigns  repository.CampaignRepositoryInterface
	Workspaces repository.WorkspaceRepositoryInterface
	Steps      repository.StepRepositoryInterface
	Runs       repository.RunRepositoryInterface
	Executor   *Executor
	Events     events.Emitter

	// DefaultAutonomy applies to workspaces without a stored policy.
	DefaultAutonomy model.AutonomyConfig

	// Gap between consecutive sends; jitter is added on top. Sleep and Rng
	// are injectable so tests run instantly and deterministically.
	StepGap       time.Duration
	StepGapJitter time.Duration
	Sleep         func(time.Duration)
	Rng           *rand.Rand

	Log *zap.Logger
	Now func() time.Time
}

func (r *Runner) jitter() time.Duration {
	if r.StepGapJitter <= 0 {
		return 0
	}
	if r.Rng != nil {
		return time.Duration(r.Rng.Int63n(int64(r.StepGapJitter)))
	}
	return time.Duration(rand.Int63n(int64(r.StepGapJitter)))
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Runner) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (r *Runner) autonomyFor(ctx context.Context, workspaceID string) model.AutonomyConfig {
	cfg, err := r.Workspaces.GetAutonomyConfig(ctx, workspaceID)
	if err != nil {
		r.Log.Warn("autonomy config lookup failed, using default", zap.String("workspace", workspaceID), zap.Error(err))
		return r.DefaultAutonomy
	}
	if cfg == nil {
		return r.DefaultAutonomy
	}
	return *cfg
}

// ExecuteCampaign runs every due step of the campaign through the state
// machine and records the run. A failure in one step never aborts the rest.
func (r *Runner) ExecuteCampaign(ctx context.Context, campaignID int64, userID string, opts Options) (*RunResult, error) {
	campaign, err := r.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignActive {
		return nil, fmt.Errorf("campaign %d cannot execute in status %s", campaignID, campaign.Status)
	}

	autonomy := r.autonomyFor(ctx, campaign.WorkspaceID)

	steps, err := r.Steps.ListDueByCampaign(ctx, campaignID, r.now())
	if err != nil {
		return nil, err
	}

	run := &model.ExecutionRun{
		ID:            uuid.New().String(),
		CampaignID:    campaignID,
		WorkspaceID:   campaign.WorkspaceID,
		AutonomyLevel: autonomy.Level,
		Total:         len(steps),
	}
	if err := r.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create execution run: %w", err)
	}

	result := &RunResult{RunID: run.ID, CampaignID: campaignID, Total: len(steps)}

	for i, step := range steps {
		outcome, errMsg := r.executeOne(ctx, step, autonomy, campaign.DeployedByUser, opts)

		switch outcome {
		case OutcomeSent:
			result.Executed++
		case OutcomeFailed:
			result.Failed++
		case OutcomeAwaitingApproval:
			result.PendingApproval++
		case OutcomeDeferred:
			result.Deferred++
		case OutcomeSkipped:
			result.Skipped++
		}
		result.Steps = append(result.Steps, StepResult{
			StepID:  step.ID,
			Channel: string(step.Channel),
			Outcome: outcome,
			Error:   errMsg,
		})

		if r.Events != nil {
			r.Events.Emit(campaign.WorkspaceID, events.Event{
				Type:        events.EventProgress,
				StepID:      step.ID,
				Description: fmt.Sprintf("processed %d/%d steps", i+1, len(steps)),
				Progress:    float64(i+1) / float64(len(steps)),
				Timestamp:   r.now(),
			})
		}

		if outcome == OutcomeSent && i < len(steps)-1 {
			r.sleep(r.StepGap + r.jitter())
		}
	}

	run.Executed = result.Executed
	run.Failed = result.Failed
	run.PendingApproval = result.PendingApproval
	run.Deferred = result.Deferred
	run.Skipped = result.Skipped
	if err := r.Runs.Finalize(ctx, run); err != nil {
		r.Log.Warn("failed to finalize execution run", zap.String("run_id", run.ID), zap.Error(err))
	}

	r.Log.Info("campaign run finished",
		zap.String("run_id", run.ID),
		zap.Int64("campaign_id", campaignID),
		zap.String("user_id", userID),
		zap.Int("total", result.Total),
		zap.Int("executed", result.Executed),
		zap.Int("failed", result.Failed),
		zap.Int("pending_approval", result.PendingApproval),
		zap.Int("deferred", result.Deferred),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// executeOne contains one step's failures at the step boundary: a panic or
// infrastructure error is logged and counted, never propagated.
func (r *Runner) executeOne(ctx context.Context, step *model.ScheduledStep, autonomy model.AutonomyConfig, campaignDeployed bool, opts Options) (outcome Outcome, errMsg string) {
	defer func() {
		if p := recover(); p != nil {
			r.Log.Error("panic while executing step", zap.Int64("step_id", step.ID), zap.Any("panic", p))
			outcome = OutcomeFailed
			errMsg = fmt.Sprintf("panic: %v", p)
		}
	}()

	outcome, err := r.Executor.Execute(ctx, step, autonomy, campaignDeployed, opts)
	if err != nil {
		// A step that cannot be composed is cancelled before executing and
		// never counts against the run's failure tally.
		var ve *appErrors.ErrValidation
		if errors.As(err, &ve) {
			r.Log.Warn("step cannot be composed", zap.Int64("step_id", step.ID), zap.Error(err))
			return OutcomeSkipped, err.Error()
		}
		r.Log.Error("step execution error", zap.Int64("step_id", step.ID), zap.Error(err))
		return OutcomeFailed, err.Error()
	}
	if outcome == OutcomeFailed {
		return outcome, step.ErrorMessage
	}
	return outcome, ""
}
