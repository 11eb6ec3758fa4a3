package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/salesloop-backend/internal/model"
)

func TestManualApprovalAlwaysRequired(t *testing.T) {
	for _, ch := range []model.Channel{model.ChannelEmail, model.ChannelSMS, model.ChannelNetworkConnection} {
		for _, conf := range []int{0, 50, 100} {
			d := Evaluate(model.AutonomyManualApproval, ch, conf, 80, false)
			assert.True(t, d.Required, "channel=%s confidence=%d", ch, conf)
		}
	}
}

func TestDeployedByUserNeverRequired(t *testing.T) {
	for _, level := range []model.AutonomyLevel{
		model.AutonomyManualApproval,
		model.AutonomySemiAutonomous,
		model.AutonomyFullyAutonomous,
		model.AutonomyLevel("garbage"),
	} {
		d := Evaluate(level, model.ChannelNetworkConnection, 0, 100, true)
		assert.False(t, d.Required, "level=%s", level)
	}
}

func TestSemiAutonomousThreshold(t *testing.T) {
	d := Evaluate(model.AutonomySemiAutonomous, model.ChannelEmail, 79, 80, false)
	assert.True(t, d.Required, "confidence below threshold")

	d = Evaluate(model.AutonomySemiAutonomous, model.ChannelEmail, 85, 80, false)
	assert.False(t, d.Required, "confidence above threshold")
}

func TestSemiAutonomousHighRiskOverride(t *testing.T) {
	// High confidence does not bypass the high-risk channel set.
	d := Evaluate(model.AutonomySemiAutonomous, model.ChannelNetworkMessage, 95, 80, false)
	assert.True(t, d.Required)

	d = Evaluate(model.AutonomySemiAutonomous, model.ChannelPhone, 100, 50, false)
	assert.True(t, d.Required)
}

func TestFullyAutonomousNeverRequired(t *testing.T) {
	d := Evaluate(model.AutonomyFullyAutonomous, model.ChannelNetworkConnection, 0, 100, false)
	assert.False(t, d.Required)
}

func TestUnknownLevelFailsSafe(t *testing.T) {
	d := Evaluate(model.AutonomyLevel("experimental"), model.ChannelEmail, 100, 0, false)
	assert.True(t, d.Required)
	assert.Contains(t, d.Reason, "unrecognized")
}
