package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/repository"
)

// Maintenance holds the idempotent housekeeping the scheduler loop runs
// every tick. Each task checks existing state before acting, so repeating
// it is safe.
type Maintenance struct {
	Campaigns repository.CampaignRepositoryInterface
	Contacts  repository.ContactRepositoryInterface
	Steps     repository.StepRepositoryInterface
	Enqueuer  *Enqueuer
	Log       *zap.Logger
	Now       func() time.Time
}

func (m *Maintenance) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// AutoEnqueue schedules sequence steps for contacts added to active
// campaigns after deployment. The enqueuer skips contacts that already have
// steps, so this is a no-op for settled campaigns.
func (m *Maintenance) AutoEnqueue(ctx context.Context) error {
	campaigns, err := m.Campaigns.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, c := range campaigns {
		contacts, err := m.Contacts.ListByCampaign(ctx, c.ID)
		if err != nil {
			m.Log.Warn("auto-enqueue contact listing failed", zap.Int64("campaign_id", c.ID), zap.Error(err))
			continue
		}

		ids := make([]int64, 0, len(contacts))
		for _, contact := range contacts {
			exists, err := m.Steps.ExistsForContact(ctx, c.ID, contact.ID)
			if err != nil {
				m.Log.Warn("auto-enqueue existence check failed", zap.Int64("contact_id", contact.ID), zap.Error(err))
				continue
			}
			if !exists {
				ids = append(ids, contact.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}

		n, err := m.Enqueuer.ScheduleSteps(ctx, c.ID, c.WorkspaceID, ids, nil)
		if err != nil {
			m.Log.Warn("auto-enqueue failed", zap.Int64("campaign_id", c.ID), zap.Error(err))
			continue
		}
		if n > 0 {
			m.Log.Info("auto-enqueued new contacts", zap.Int64("campaign_id", c.ID), zap.Int("steps", n))
		}
	}
	return nil
}

// TriggerDiscovery creates the one-time lead-search step for active
// campaigns that define a search query and have not run one yet.
func (m *Maintenance) TriggerDiscovery(ctx context.Context) error {
	campaigns, err := m.Campaigns.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, c := range campaigns {
		if c.SearchQuery == "" {
			continue
		}
		exists, err := m.Steps.ExistsForChannel(ctx, c.ID, model.ChannelLeadSearch)
		if err != nil {
			m.Log.Warn("discovery existence check failed", zap.Int64("campaign_id", c.ID), zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		step := &model.ScheduledStep{
			CampaignID:     c.ID,
			WorkspaceID:    c.WorkspaceID,
			Channel:        model.ChannelLeadSearch,
			Content:        c.SearchQuery,
			ScheduledAt:    m.now(),
			Status:         model.StatusPending,
			DeployedByUser: c.DeployedByUser,
		}
		if err := m.Steps.Create(ctx, step); err != nil {
			m.Log.Warn("discovery step creation failed", zap.Int64("campaign_id", c.ID), zap.Error(err))
			continue
		}
		m.Log.Info("discovery step created", zap.Int64("campaign_id", c.ID), zap.Int64("step_id", step.ID))
	}
	return nil
}
