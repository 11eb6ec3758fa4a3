package model

import "time"

// ScheduledStep is one planned outreach action targeting one contact.
// Terminal steps are retained for audit, never deleted by the scheduler.
type ScheduledStep struct {
	ID               int64      `db:"id" json:"id"`
	CampaignID       int64      `db:"campaign_id" json:"campaign_id"`
	ContactID        int64      `db:"contact_id" json:"contact_id"`
	WorkspaceID      string     `db:"workspace_id" json:"workspace_id"`
	StepIndex        int        `db:"step_index" json:"step_index"`
	Channel          Channel    `db:"channel" json:"channel"`
	Subject          string     `db:"subject" json:"subject,omitempty"`
	Content          string     `db:"content" json:"content"`
	ScheduledAt      time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status           StepStatus `db:"status" json:"status"`
	RequiresApproval bool       `db:"requires_approval" json:"requires_approval"`
	DeployedByUser   bool       `db:"deployed_by_user" json:"deployed_by_user"`
	Confidence       int        `db:"confidence" json:"confidence"`
	ApprovedBy       string     `db:"approved_by" json:"approved_by,omitempty"`
	ExecutedAt       *time.Time `db:"executed_at" json:"executed_at,omitempty"`
	MessageID        string     `db:"message_id" json:"message_id,omitempty"`
	ErrorMessage     string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveConfidence returns the step's confidence score, falling back to
// the channel default when none was attached.
func (s *ScheduledStep) EffectiveConfidence() int {
	if s.Confidence > 0 {
		return s.Confidence
	}
	return s.Channel.DefaultConfidence()
}
