package domain

import "strings"

// Channel names a release track a single release can be promoted to.
type Channel string

const (
	ChannelStable Channel = "stable"
	ChannelBeta   Channel = "beta"
)

// Channels lists every channel in display order.
var Channels = []Channel{ChannelStable, ChannelBeta}

// ParseChannel normalizes and validates a channel name.
func ParseChannel(name string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(name))) {
	case ChannelStable:
		return ChannelStable, nil
	case ChannelBeta:
		return ChannelBeta, nil
	default:
		return "", invalidChannelError(name)
	}
}

// String returns the channel name.
func (c Channel) String() string {
	return string(c)
}

// Column is the release table column that flags membership in the channel.
func (c Channel) Column() string {
	switch c {
	case ChannelBeta:
		return "beta"
	default:
		return "stable"
	}
}
