package sender

import (
	"context"

	"github.com/google/uuid"

	"github.com/unclebandit/salesloop-backend/internal/model"
)

// MockSender always succeeds with a fresh message id. Used by the seeder and
// local development; tests use purpose-built fakes.
type MockSender struct{}

func (MockSender) Send(ctx context.Context, channel model.Channel, recipient, subject, content string) (*Result, error) {
	return &Result{MessageID: uuid.New().String()}, nil
}
