package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/config"
	appErrors "github.com/unclebandit/salesloop-backend/internal/errors"
	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/ramp"
	"github.com/unclebandit/salesloop-backend/internal/repository"
	"github.com/unclebandit/salesloop-backend/internal/schedule"
)

// maxSpillDays bounds how far the ramp spreads an initial enqueue.
const maxSpillDays = 365

// Enqueuer stamps out scheduled steps for contacts joining a campaign,
// placing each inside business hours and spreading volume so no day exceeds
// the warmup ramp.
type Enqueuer struct {
	Campaigns repository.CampaignRepositoryInterface
	Steps     repository.StepRepositoryInterface
	Placer    *schedule.Placer
	Limiter   *ramp.Limiter
	Hours     config.HoursConfig
	Log       *zap.Logger
	Now       func() time.Time
}

func (q *Enqueuer) now() time.Time {
	if q.Now != nil {
		return q.Now().UTC()
	}
	return time.Now().UTC()
}

// channelPlan tracks per-channel bookkeeping for one enqueue pass.
type channelPlan struct {
	lastPlaced time.Time
	warmupBase int         // calendar days since the channel's first action
	dayCounts  map[int]int // dayOffset → steps placed (existing + this pass)
}

// ScheduleSteps enqueues one step per (contact, template). Contacts that
// already have steps in the campaign are skipped, so repeated calls are
// idempotent. Returns the number of steps created.
func (q *Enqueuer) ScheduleSteps(ctx context.Context, campaignID int64, workspaceID string, contactIDs []int64, templates []model.StepTemplate) (int, error) {
	campaign, err := q.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return 0, err
	}

	if len(templates) == 0 {
		templates, err = q.Campaigns.ListTemplates(ctx, campaignID)
		if err != nil {
			return 0, err
		}
	}
	if len(templates) == 0 {
		return 0, appErrors.NewValidation("campaign %d has no step templates", campaignID)
	}

	plans := map[model.Channel]*channelPlan{}
	scheduled := 0

	for _, contactID := range contactIDs {
		exists, err := q.Steps.ExistsForContact(ctx, campaignID, contactID)
		if err != nil {
			return scheduled, err
		}
		if exists {
			continue
		}

		for _, tpl := range templates {
			plan, err := q.planFor(ctx, plans, workspaceID, tpl.Channel)
			if err != nil {
				return scheduled, err
			}

			day, err := q.firstDayWithCapacity(ctx, plan, workspaceID, tpl.Channel, tpl.DayOffset)
			if err != nil {
				return scheduled, err
			}

			at := q.Placer.PlaceNext(plan.lastPlaced, day, q.Hours.LocalOffsetHours, q.Hours.WindowStart, q.Hours.WindowEnd)
			step := &model.ScheduledStep{
				CampaignID:     campaignID,
				ContactID:      contactID,
				WorkspaceID:    workspaceID,
				StepIndex:      tpl.StepIndex,
				Channel:        tpl.Channel,
				Subject:        tpl.Subject,
				Content:        tpl.Content,
				ScheduledAt:    at,
				Status:         model.StatusPending,
				DeployedByUser: campaign.DeployedByUser,
			}
			if err := q.Steps.Create(ctx, step); err != nil {
				return scheduled, fmt.Errorf("create step for contact %d: %w", contactID, err)
			}

			plan.lastPlaced = at
			plan.dayCounts[day]++
			scheduled++
		}
	}

	q.Log.Info("scheduled campaign steps",
		zap.Int64("campaign_id", campaignID),
		zap.Int("contacts", len(contactIDs)),
		zap.Int("scheduled", scheduled))
	return scheduled, nil
}

func (q *Enqueuer) planFor(ctx context.Context, plans map[model.Channel]*channelPlan, workspaceID string, ch model.Channel) (*channelPlan, error) {
	if plan, ok := plans[ch]; ok {
		return plan, nil
	}

	plan := &channelPlan{dayCounts: map[int]int{}}
	first, err := q.Steps.FirstActionAt(ctx, workspaceID, ch)
	if err != nil {
		return nil, err
	}
	if first != nil {
		plan.warmupBase = calendarDays(first.UTC(), q.now())
	}
	plans[ch] = plan
	return plan, nil
}

// firstDayWithCapacity walks forward from wantDay until the ramp allows one
// more action on that calendar day.
func (q *Enqueuer) firstDayWithCapacity(ctx context.Context, plan *channelPlan, workspaceID string, ch model.Channel, wantDay int) (int, error) {
	now := q.now()
	for day := wantDay; day < wantDay+maxSpillDays; day++ {
		if _, seen := plan.dayCounts[day]; !seen {
			from := dayStart(now.AddDate(0, 0, day))
			existing, err := q.Steps.CountScheduledBetween(ctx, workspaceID, ch, from, from.AddDate(0, 0, 1))
			if err != nil {
				return 0, err
			}
			plan.dayCounts[day] = existing
		}

		limit := q.Limiter.DailyLimit(plan.warmupBase + day)
		if plan.dayCounts[day] < limit {
			return day, nil
		}
	}
	return 0, fmt.Errorf("no ramp capacity on channel %s within %d days", ch, maxSpillDays)
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func calendarDays(first, now time.Time) int {
	days := int(dayStart(now).Sub(dayStart(first)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
