package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/salesloop-backend/internal/model"
)

type RunRepositoryInterface interface {
	Create(ctx context.Context, run *model.ExecutionRun) error
	Finalize(ctx context.Context, run *model.ExecutionRun) error
}

type RunRepository struct {
	DB *sql.DB
}

func (r *RunRepository) Create(ctx context.Context, run *model.ExecutionRun) error {
	run.StartedAt = time.Now()
	query := `
        INSERT INTO execution_runs
            (id, campaign_id, workspace_id, autonomy_level, total, executed, failed,
             pending_approval, deferred, skipped, started_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := r.DB.ExecContext(ctx, query,
		run.ID, run.CampaignID, run.WorkspaceID, run.AutonomyLevel, run.Total,
		run.Executed, run.Failed, run.PendingApproval, run.Deferred, run.Skipped, run.StartedAt,
	)
	return err
}

func (r *RunRepository) Finalize(ctx context.Context, run *model.ExecutionRun) error {
	now := time.Now()
	run.CompletedAt = &now
	query := `
        UPDATE execution_runs
        SET total=$1, executed=$2, failed=$3, pending_approval=$4, deferred=$5, skipped=$6, completed_at=$7
        WHERE id=$8
    `
	_, err := r.DB.ExecContext(ctx, query,
		run.Total, run.Executed, run.Failed, run.PendingApproval, run.Deferred, run.Skipped, run.CompletedAt, run.ID,
	)
	return err
}

var _ RunRepositoryInterface = (*RunRepository)(nil)
