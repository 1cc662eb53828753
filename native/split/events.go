package split

import (
	"encoding/hex"
	"strconv"

	"accesspay/core/types"
)

const (
	EventTypeSplitCreated     = "split.created"
	EventTypeSplitDistributed = "split.distributed"
)

// NewCreatedEvent returns the canonical event payload for a newly registered
// split configuration.
func NewCreatedEvent(c *Config) *types.Event {
	attrs := make(map[string]string)
	if c == nil {
		return &types.Event{Type: EventTypeSplitCreated, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(c.ID[:])
	attrs["contentId"] = hex.EncodeToString(c.ContentID[:])
	attrs["creator"] = hex.EncodeToString(c.Creator[:])
	attrs["platformFeeBps"] = strconv.FormatUint(uint64(c.PlatformFeeBps), 10)
	attrs["collaborators"] = strconv.Itoa(len(c.Collaborators))
	return &types.Event{Type: EventTypeSplitCreated, Attributes: attrs}
}

// NewDistributedEvent returns the event payload emitted after a successful
// distribution.
func NewDistributedEvent(c *Config, total, platform, creator uint64) *types.Event {
	attrs := make(map[string]string)
	if c == nil {
		return &types.Event{Type: EventTypeSplitDistributed, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(c.ID[:])
	attrs["total"] = strconv.FormatUint(total, 10)
	attrs["platformAmount"] = strconv.FormatUint(platform, 10)
	attrs["creatorAmount"] = strconv.FormatUint(creator, 10)
	attrs["distributedAt"] = strconv.FormatInt(c.LastDistributedAt, 10)
	return &types.Event{Type: EventTypeSplitDistributed, Attributes: attrs}
}
