package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/salesloop-backend/internal/model"
)

type ApprovalRepositoryInterface interface {
	Create(ctx context.Context, item *model.ApprovalItem) error
	// GetByStepID returns nil when the step has no approval item.
	GetByStepID(ctx context.Context, stepID int64) (*model.ApprovalItem, error)
	Resolve(ctx context.Context, stepID int64, status model.ApprovalStatus, resolvedBy string, resolvedAt time.Time) error
	// ListUnresolved returns pending items for a workspace, newest first.
	ListUnresolved(ctx context.Context, workspaceID string) ([]*model.ApprovalItem, error)
}

type ApprovalRepository struct {
	DB *sql.DB
}

const approvalColumns = `id, step_id, workspace_id, confidence, reasoning, preview, status, resolved_by, resolved_at, created_at`

func scanApproval(row interface{ Scan(...any) error }) (*model.ApprovalItem, error) {
	var a model.ApprovalItem
	err := row.Scan(
		&a.ID, &a.StepID, &a.WorkspaceID, &a.Confidence, &a.Reasoning,
		&a.Preview, &a.Status, &a.ResolvedBy, &a.ResolvedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApprovalRepository) Create(ctx context.Context, item *model.ApprovalItem) error {
	item.CreatedAt = time.Now()
	if item.Status == "" {
		item.Status = model.ApprovalPending
	}
	query := `
        INSERT INTO approval_items (step_id, workspace_id, confidence, reasoning, preview, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query,
		item.StepID, item.WorkspaceID, item.Confidence, item.Reasoning, item.Preview, item.Status, item.CreatedAt,
	).Scan(&item.ID)
}

func (r *ApprovalRepository) GetByStepID(ctx context.Context, stepID int64) (*model.ApprovalItem, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_items WHERE step_id=$1 ORDER BY id DESC LIMIT 1`
	a, err := scanApproval(r.DB.QueryRowContext(ctx, query, stepID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *ApprovalRepository) Resolve(ctx context.Context, stepID int64, status model.ApprovalStatus, resolvedBy string, resolvedAt time.Time) error {
	query := `
        UPDATE approval_items
        SET status=$1, resolved_by=$2, resolved_at=$3
        WHERE step_id=$4 AND status='pending'
    `
	_, err := r.DB.ExecContext(ctx, query, status, resolvedBy, resolvedAt, stepID)
	return err
}

func (r *ApprovalRepository) ListUnresolved(ctx context.Context, workspaceID string) ([]*model.ApprovalItem, error) {
	query := `
        SELECT ` + approvalColumns + `
        FROM approval_items
        WHERE workspace_id=$1 AND status='pending'
        ORDER BY created_at DESC
    `
	rows, err := r.DB.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*model.ApprovalItem{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

var _ ApprovalRepositoryInterface = (*ApprovalRepository)(nil)
