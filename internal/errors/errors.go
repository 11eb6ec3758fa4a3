// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int64
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int64) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

type ErrStepNotFound struct {
	StepID int64
}

func (e *ErrStepNotFound) Error() string {
	return fmt.Sprintf("step with ID %d not found", e.StepID)
}

func NewStepNotFound(id int64) error {
	return &ErrStepNotFound{StepID: id}
}

type ErrContactNotFound struct {
	ContactID int64
}

func (e *ErrContactNotFound) Error() string {
	return fmt.Sprintf("contact with ID %d not found", e.ContactID)
}

func NewContactNotFound(id int64) error {
	return &ErrContactNotFound{ContactID: id}
}

// ErrValidation marks a step that can never reach executing as composed,
// e.g. the contact lacks the recipient field its channel needs.
type ErrValidation struct {
	Reason string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func NewValidation(format string, args ...any) error {
	return &ErrValidation{Reason: fmt.Sprintf(format, args...)}
}
