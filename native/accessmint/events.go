package accessmint

import (
	"encoding/hex"
	"strconv"

	"accesspay/core/types"
)

const (
	EventTypeSeriesCreated = "access.series_created"
	EventTypeGranted       = "access.granted"
)

// NewSeriesCreatedEvent returns the canonical payload for a new credential
// series.
func NewSeriesCreatedEvent(s *AccessSeries) *types.Event {
	attrs := make(map[string]string)
	if s == nil {
		return &types.Event{Type: EventTypeSeriesCreated, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(s.ID[:])
	attrs["creator"] = hex.EncodeToString(s.Creator[:])
	attrs["contentId"] = hex.EncodeToString(s.ContentID[:])
	attrs["issuerSymbol"] = s.IssuerSymbol
	return &types.Event{Type: EventTypeSeriesCreated, Attributes: attrs}
}

// NewGrantedEvent returns the payload emitted when one credential unit is
// issued to a buyer.
func NewGrantedEvent(s *AccessSeries, buyer [20]byte) *types.Event {
	attrs := make(map[string]string)
	if s == nil {
		return &types.Event{Type: EventTypeGranted, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(s.ID[:])
	attrs["buyer"] = hex.EncodeToString(buyer[:])
	attrs["totalIssued"] = strconv.FormatUint(s.TotalIssued, 10)
	return &types.Event{Type: EventTypeGranted, Attributes: attrs}
}
