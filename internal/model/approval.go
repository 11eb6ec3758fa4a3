package model

import "time"

// ApprovalItem exists iff its step is in requires_approval. Resolution by a
// human drives the linked step back into the execution state machine.
type ApprovalItem struct {
	ID          int64          `db:"id" json:"id"`
	StepID      int64          `db:"step_id" json:"step_id"`
	WorkspaceID string         `db:"workspace_id" json:"workspace_id"`
	Confidence  int            `db:"confidence" json:"confidence"`
	Reasoning   string         `db:"reasoning" json:"reasoning"`
	Preview     string         `db:"preview" json:"preview"`
	Status      ApprovalStatus `db:"status" json:"status"`
	ResolvedBy  string         `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time     `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
