package repository

import (
	"context"
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/salesloop-backend/internal/errors"
	"github.com/unclebandit/salesloop-backend/internal/model"
)

type StepRepositoryInterface interface {
	Create(ctx context.Context, s *model.ScheduledStep) error
	GetByID(ctx context.Context, id int64) (*model.ScheduledStep, error)
	Update(ctx context.Context, s *model.ScheduledStep) error

	// Due-step selection for the scheduler loop.
	ListDueCampaignIDs(ctx context.Context, now time.Time) ([]int64, error)
	ListDueByCampaign(ctx context.Context, campaignID int64, now time.Time) ([]*model.ScheduledStep, error)

	// Usage history for the compliance gate and initial enqueue.
	CountExecutedSince(ctx context.Context, workspaceID string, channel model.Channel, since time.Time) (int, error)
	FirstActionAt(ctx context.Context, workspaceID string, channel model.Channel) (*time.Time, error)
	CountScheduledBetween(ctx context.Context, workspaceID string, channel model.Channel, from, to time.Time) (int, error)

	// Cleanup and maintenance.
	DeletePendingByContact(ctx context.Context, campaignID, contactID, exceptStepID int64) (int, error)
	ExistsForContact(ctx context.Context, campaignID, contactID int64) (bool, error)
	ExistsForChannel(ctx context.Context, campaignID int64, channel model.Channel) (bool, error)
	GetStatusStats(ctx context.Context, campaignID int64) (map[string]int, error)
}

type StepRepository struct {
	DB *sql.DB
}

const stepColumns = `id, campaign_id, contact_id, workspace_id, step_index, channel, subject, content,
    scheduled_at, status, requires_approval, deployed_by_user, confidence, approved_by,
    executed_at, message_id, error_message, created_at, updated_at`

func scanStep(row interface{ Scan(...any) error }) (*model.ScheduledStep, error) {
	var s model.ScheduledStep
	err := row.Scan(
		&s.ID, &s.CampaignID, &s.ContactID, &s.WorkspaceID, &s.StepIndex, &s.Channel,
		&s.Subject, &s.Content, &s.ScheduledAt, &s.Status, &s.RequiresApproval,
		&s.DeployedByUser, &s.Confidence, &s.ApprovedBy, &s.ExecutedAt, &s.MessageID,
		&s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StepRepository) Create(ctx context.Context, s *model.ScheduledStep) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = model.StatusPending
	}
	query := `
        INSERT INTO scheduled_steps
            (campaign_id, contact_id, workspace_id, step_index, channel, subject, content,
             scheduled_at, status, requires_approval, deployed_by_user, confidence, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query,
		s.CampaignID, s.ContactID, s.WorkspaceID, s.StepIndex, s.Channel, s.Subject, s.Content,
		s.ScheduledAt, s.Status, s.RequiresApproval, s.DeployedByUser, s.Confidence, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
}

func (r *StepRepository) GetByID(ctx context.Context, id int64) (*model.ScheduledStep, error) {
	query := `SELECT ` + stepColumns + ` FROM scheduled_steps WHERE id=$1`
	s, err := scanStep(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewStepNotFound(id)
		}
		return nil, err
	}
	return s, nil
}

func (r *StepRepository) Update(ctx context.Context, s *model.ScheduledStep) error {
	s.UpdatedAt = time.Now()
	query := `
        UPDATE scheduled_steps
        SET scheduled_at=$1, status=$2, requires_approval=$3, approved_by=$4,
            executed_at=$5, message_id=$6, error_message=$7, subject=$8, content=$9, updated_at=$10
        WHERE id=$11
    `
	_, err := r.DB.ExecContext(ctx, query,
		s.ScheduledAt, s.Status, s.RequiresApproval, s.ApprovedBy,
		s.ExecutedAt, s.MessageID, s.ErrorMessage, s.Subject, s.Content, s.UpdatedAt, s.ID,
	)
	return err
}

func (r *StepRepository) ListDueCampaignIDs(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
        SELECT DISTINCT s.campaign_id
        FROM scheduled_steps s
        JOIN campaigns c ON c.id = s.campaign_id
        WHERE s.status IN ('pending', 'approved')
          AND s.scheduled_at <= $1
          AND c.status = 'active'
    `
	rows, err := r.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *StepRepository) ListDueByCampaign(ctx context.Context, campaignID int64, now time.Time) ([]*model.ScheduledStep, error) {
	query := `
        SELECT ` + stepColumns + `
        FROM scheduled_steps
        WHERE campaign_id=$1 AND status IN ('pending', 'approved') AND scheduled_at <= $2
        ORDER BY step_index, scheduled_at
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := []*model.ScheduledStep{}
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

func (r *StepRepository) CountExecutedSince(ctx context.Context, workspaceID string, channel model.Channel, since time.Time) (int, error) {
	query := `
        SELECT COUNT(*) FROM scheduled_steps
        WHERE workspace_id=$1 AND channel=$2 AND executed_at IS NOT NULL AND executed_at >= $3
    `
	var count int
	err := r.DB.QueryRowContext(ctx, query, workspaceID, channel, since).Scan(&count)
	return count, err
}

func (r *StepRepository) FirstActionAt(ctx context.Context, workspaceID string, channel model.Channel) (*time.Time, error) {
	query := `
        SELECT MIN(scheduled_at) FROM scheduled_steps
        WHERE workspace_id=$1 AND channel=$2
    `
	var first sql.NullTime
	if err := r.DB.QueryRowContext(ctx, query, workspaceID, channel).Scan(&first); err != nil {
		return nil, err
	}
	if !first.Valid {
		return nil, nil
	}
	return &first.Time, nil
}

func (r *StepRepository) CountScheduledBetween(ctx context.Context, workspaceID string, channel model.Channel, from, to time.Time) (int, error) {
	query := `
        SELECT COUNT(*) FROM scheduled_steps
        WHERE workspace_id=$1 AND channel=$2 AND scheduled_at >= $3 AND scheduled_at < $4
    `
	var count int
	err := r.DB.QueryRowContext(ctx, query, workspaceID, channel, from, to).Scan(&count)
	return count, err
}

// DeletePendingByContact drops a contact's unexecuted steps during
// permanent-target cleanup. Approval items linked to the deleted steps go
// with them through the ON DELETE CASCADE on approval_items.step_id, so no
// queue entry outlives its step.
func (r *StepRepository) DeletePendingByContact(ctx context.Context, campaignID, contactID, exceptStepID int64) (int, error) {
	query := `
        DELETE FROM scheduled_steps
        WHERE campaign_id=$1 AND contact_id=$2 AND id != $3 AND status IN ('pending', 'requires_approval', 'approved')
    `
	res, err := r.DB.ExecContext(ctx, query, campaignID, contactID, exceptStepID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *StepRepository) ExistsForContact(ctx context.Context, campaignID, contactID int64) (bool, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM scheduled_steps
        WHERE campaign_id=$1 AND contact_id=$2`, campaignID, contactID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *StepRepository) ExistsForChannel(ctx context.Context, campaignID int64, channel model.Channel) (bool, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM scheduled_steps
        WHERE campaign_id=$1 AND channel=$2`, campaignID, channel).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *StepRepository) GetStatusStats(ctx context.Context, campaignID int64) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM scheduled_steps WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"pending": 0, "requires_approval": 0, "approved": 0, "executing": 0,
		"sent": 0, "failed": 0, "skipped": 0, "cancelled": 0,
	}
	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		total += count
	}
	stats["total"] = total
	return stats, rows.Err()
}

var _ StepRepositoryInterface = (*StepRepository)(nil)
