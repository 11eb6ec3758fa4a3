package model

import "fmt"

// StepStatus is the lifecycle state of a scheduled step.
type StepStatus string

const (
	StatusPending          StepStatus = "pending"
	StatusRequiresApproval StepStatus = "requires_approval"
	StatusApproved         StepStatus = "approved"
	StatusExecuting        StepStatus = "executing"
	StatusSent             StepStatus = "sent"
	StatusFailed           StepStatus = "failed"
	StatusSkipped          StepStatus = "skipped"
	StatusCancelled        StepStatus = "cancelled"
)

var terminalStatuses = map[StepStatus]bool{
	StatusSent:      true,
	StatusFailed:    true,
	StatusSkipped:   true,
	StatusCancelled: true,
}

// Deferral is executing → pending with an advanced scheduled_at; it is the
// only transition back out of executing that is not terminal.
var validStepTransitions = map[StepStatus]map[StepStatus]bool{
	StatusPending: {
		StatusRequiresApproval: true,
		StatusApproved:         true,
		StatusExecuting:        true,
		StatusCancelled:        true,
	},
	StatusRequiresApproval: {
		StatusApproved:  true,
		StatusCancelled: true,
	},
	StatusApproved: {
		StatusExecuting: true,
		StatusCancelled: true,
	},
	StatusExecuting: {
		StatusSent:    true,
		StatusFailed:  true,
		StatusSkipped: true,
		StatusPending: true,
	},
}

func (s StepStatus) Terminal() bool {
	return terminalStatuses[s]
}

// CanTransition reports whether from → to is a legal step transition.
func CanTransition(from, to StepStatus) bool {
	return validStepTransitions[from][to]
}

// Transition moves the step to next, refusing moves the table does not
// allow. All status changes go through here so an illegal move can never
// be persisted.
func (s *ScheduledStep) Transition(next StepStatus) error {
	if !CanTransition(s.Status, next) {
		return fmt.Errorf("illegal step transition %s -> %s", s.Status, next)
	}
	s.Status = next
	return nil
}

// ApprovalStatus is the resolution state of an approval item.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Resolved() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// AutonomyLevel controls how much human oversight a workspace requires.
type AutonomyLevel string

const (
	AutonomyManualApproval  AutonomyLevel = "manual_approval"
	AutonomySemiAutonomous  AutonomyLevel = "semi_autonomous"
	AutonomyFullyAutonomous AutonomyLevel = "fully_autonomous"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted:
		return true
	}
	return false
}
