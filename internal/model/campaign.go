package model

import "time"

// Campaign owns an outreach sequence and the steps scheduled from it.
type Campaign struct {
	ID             int64          `db:"id" json:"id"`
	WorkspaceID    string         `db:"workspace_id" json:"workspace_id"`
	Name           string         `db:"name" json:"name"`
	Status         CampaignStatus `db:"status" json:"status"`
	DeployedByUser bool           `db:"deployed_by_user" json:"deployed_by_user"`
	SearchQuery    string         `db:"search_query" json:"search_query,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// StepTemplate is one sequence position a campaign stamps out per contact.
type StepTemplate struct {
	ID         int64   `db:"id" json:"id"`
	CampaignID int64   `db:"campaign_id" json:"campaign_id"`
	StepIndex  int     `db:"step_index" json:"step_index"`
	Channel    Channel `db:"channel" json:"channel"`
	Subject    string  `db:"subject" json:"subject,omitempty"`
	Content    string  `db:"content" json:"content"`
	DayOffset  int     `db:"day_offset" json:"day_offset"`
}

// AutonomyConfig is the per-workspace oversight policy. Owned by workspace
// configuration; read-only input to the autonomy evaluator.
type AutonomyConfig struct {
	WorkspaceID         string        `db:"workspace_id" json:"workspace_id"`
	Level               AutonomyLevel `db:"level" json:"level"`
	ConfidenceThreshold int           `db:"confidence_threshold" json:"confidence_threshold"`
}
