package model

// Channel is the outreach medium a step is delivered over.
type Channel string

const (
	ChannelEmail             Channel = "email"
	ChannelSMS               Channel = "sms"
	ChannelNetworkMessage    Channel = "network_message"
	ChannelNetworkConnection Channel = "network_connection"
	ChannelPhone             Channel = "phone"
	ChannelVoicemail         Channel = "voicemail"
	ChannelLeadSearch        Channel = "lead_search"
)

// highRiskChannels always require human approval under semi-autonomous mode.
var highRiskChannels = map[Channel]bool{
	ChannelNetworkMessage:    true,
	ChannelNetworkConnection: true,
	ChannelPhone:             true,
	ChannelVoicemail:         true,
}

// networkRestrictedChannels are subject to the compliance gate before sending.
var networkRestrictedChannels = map[Channel]bool{
	ChannelNetworkMessage:    true,
	ChannelNetworkConnection: true,
}

// defaultConfidence is used when a step carries no explicit confidence score.
var defaultConfidence = map[Channel]int{
	ChannelEmail:             90,
	ChannelSMS:               85,
	ChannelNetworkMessage:    75,
	ChannelNetworkConnection: 70,
	ChannelPhone:             65,
	ChannelVoicemail:         65,
}

func (c Channel) HighRisk() bool {
	return highRiskChannels[c]
}

func (c Channel) NetworkRestricted() bool {
	return networkRestrictedChannels[c]
}

// DefaultConfidence returns the per-channel confidence assumed when no score
// is attached to a step. Unlisted channels default to 75.
func (c Channel) DefaultConfidence() int {
	if v, ok := defaultConfidence[c]; ok {
		return v
	}
	return 75
}

// RecipientField names the contact attribute a channel delivers to.
func (c Channel) RecipientField() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelSMS, ChannelPhone, ChannelVoicemail:
		return "phone"
	case ChannelNetworkMessage, ChannelNetworkConnection:
		return "profile_url"
	default:
		return ""
	}
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelNetworkMessage, ChannelNetworkConnection,
		ChannelPhone, ChannelVoicemail, ChannelLeadSearch:
		return true
	}
	return false
}
