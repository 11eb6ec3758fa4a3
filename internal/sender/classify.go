package sender

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Substring fallback for providers that only hand back free text. The
// structured SendError.Class is authoritative; this adapter exists for the
// integration boundary only.
var (
	transientHints = []string{
		"timeout", "timed out", "connection refused", "connection reset",
		"proxy", "temporarily unavailable", "service unavailable",
		"too many requests", "econnreset", "eof",
	}
	complianceHints = []string{
		"daily limit", "weekly limit", "rate limit", "quota exceeded",
		"action cap", "limit reached",
	}
	permanentHints = []string{
		"not found", "does not exist", "invalid recipient", "invalid email",
		"invalid address", "no such user", "profile unavailable", "unsubscribed",
	}
)

// Classify maps a send failure to its handling strategy. Structured
// SendError values win; otherwise context/net errors count as transient and
// the message text is scanned for known hints. Unmatched errors are Unknown.
func Classify(err error) Classification {
	if err == nil {
		return ClassUnknown
	}

	var se *SendError
	if errors.As(err, &se) && se.Class != "" {
		return se.Class
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range complianceHints {
		if strings.Contains(msg, hint) {
			return ClassComplianceBlocked
		}
	}
	for _, hint := range permanentHints {
		if strings.Contains(msg, hint) {
			return ClassPermanentTarget
		}
	}
	for _, hint := range transientHints {
		if strings.Contains(msg, hint) {
			return ClassTransient
		}
	}
	return ClassUnknown
}
