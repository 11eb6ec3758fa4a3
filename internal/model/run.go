package model

import "time"

// ExecutionRun records one "execute all due steps for a campaign" pass.
// Append-only: created at run start, finalized once at the end.
type ExecutionRun struct {
	ID              string        `db:"id" json:"id"`
	CampaignID      int64         `db:"campaign_id" json:"campaign_id"`
	WorkspaceID     string        `db:"workspace_id" json:"workspace_id"`
	AutonomyLevel   AutonomyLevel `db:"autonomy_level" json:"autonomy_level"`
	Total           int           `db:"total" json:"total"`
	Executed        int           `db:"executed" json:"executed"`
	Failed          int           `db:"failed" json:"failed"`
	PendingApproval int           `db:"pending_approval" json:"pending_approval"`
	Deferred        int           `db:"deferred" json:"deferred"`
	Skipped         int           `db:"skipped" json:"skipped"`
	StartedAt       time.Time     `db:"started_at" json:"started_at"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}
