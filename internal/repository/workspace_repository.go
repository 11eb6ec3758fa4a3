package repository

import (
	"context"
	"database/sql"

	"github.com/unclebandit/salesloop-backend/internal/model"
)

type WorkspaceRepositoryInterface interface {
	// GetAutonomyConfig returns nil when the workspace has no stored policy;
	// callers fall back to the configured default.
	GetAutonomyConfig(ctx context.Context, workspaceID string) (*model.AutonomyConfig, error)
}

type WorkspaceRepository struct {
	DB *sql.DB
}

func (r *WorkspaceRepository) GetAutonomyConfig(ctx context.Context, workspaceID string) (*model.AutonomyConfig, error) {
	query := `SELECT workspace_id, level, confidence_threshold FROM autonomy_configs WHERE workspace_id=$1`
	var cfg model.AutonomyConfig
	err := r.DB.QueryRowContext(ctx, query, workspaceID).Scan(&cfg.WorkspaceID, &cfg.Level, &cfg.ConfidenceThreshold)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

var _ WorkspaceRepositoryInterface = (*WorkspaceRepository)(nil)
