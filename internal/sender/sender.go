// Package sender defines the channel send contract the scheduler dispatches
// through, plus the structured error taxonomy failures are classified into.
package sender

import (
	"context"
	"fmt"

	"github.com/unclebandit/salesloop-backend/internal/model"
)

// Result is the outcome of one send attempt. AlreadySatisfied means the
// provider reported the goal is already met (e.g. already connected); the
// step machine records that as skipped, never as a failure.
type Result struct {
	MessageID        string
	AlreadySatisfied bool
}

// Sender delivers one message over one channel. Implementations must not
// retry internally; the scheduler owns retry policy. Called at most once per
// step per attempt.
type Sender interface {
	Send(ctx context.Context, channel model.Channel, recipient, subject, content string) (*Result, error)
}

// Classification tags a send failure with its handling strategy.
type Classification string

const (
	// ClassPermanentTarget: the destination does not exist. Cleanup, not failure.
	ClassPermanentTarget Classification = "permanent_target"
	// ClassTransient: network/proxy/timeout. Retry shortly.
	ClassTransient Classification = "transient"
	// ClassComplianceBlocked: daily or weekly cap reached. Defer to next window.
	ClassComplianceBlocked Classification = "compliance_blocked"
	// ClassUnknown: anything else. The only user-visible failure.
	ClassUnknown Classification = "unknown"
)

// SendError is the structured failure a Sender returns. Providers should set
// Class explicitly; free-text-only errors fall through the substring adapter
// in Classify.
type SendError struct {
	Class   Classification
	Message string
	Err     error
}

func (e *SendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Class)
}

func (e *SendError) Unwrap() error { return e.Err }

func NewSendError(class Classification, format string, args ...any) *SendError {
	return &SendError{Class: class, Message: fmt.Sprintf(format, args...)}
}
