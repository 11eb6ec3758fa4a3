package sender

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStructuredErrorWins(t *testing.T) {
	// Even with a transient-looking message, the explicit tag is authoritative.
	err := NewSendError(ClassPermanentTarget, "connection timeout while resolving profile")
	assert.Equal(t, ClassPermanentTarget, Classify(err))
}

func TestClassifyWrappedStructuredError(t *testing.T) {
	inner := NewSendError(ClassComplianceBlocked, "daily limit reached")
	err := fmt.Errorf("send step 42: %w", inner)
	assert.Equal(t, ClassComplianceBlocked, Classify(err))
}

func TestClassifyContextErrors(t *testing.T) {
	assert.Equal(t, ClassTransient, Classify(context.DeadlineExceeded))
	assert.Equal(t, ClassTransient, Classify(fmt.Errorf("dispatch: %w", context.Canceled)))
}

func TestClassifySubstringFallback(t *testing.T) {
	cases := []struct {
		msg  string
		want Classification
	}{
		{"dial tcp: connection refused", ClassTransient},
		{"upstream proxy unreachable", ClassTransient},
		{"request timed out after 30s", ClassTransient},
		{"daily limit reached for account", ClassComplianceBlocked},
		{"429 too many requests", ClassTransient},
		{"weekly limit exceeded", ClassComplianceBlocked},
		{"recipient does not exist", ClassPermanentTarget},
		{"profile unavailable or deleted", ClassPermanentTarget},
		{"invalid email address", ClassPermanentTarget},
		{"internal server error", ClassUnknown},
		{"something inexplicable", ClassUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(errors.New(c.msg)), "%q", c.msg)
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Equal(t, ClassUnknown, Classify(nil))
}

func TestSendErrorText(t *testing.T) {
	err := NewSendError(ClassTransient, "proxy down: %s", "eu-1")
	assert.Equal(t, "proxy down: eu-1", err.Error())

	wrapped := &SendError{Class: ClassUnknown, Err: errors.New("boom")}
	assert.Equal(t, "boom", wrapped.Error())
}
