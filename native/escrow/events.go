package escrow

import (
	"encoding/hex"
	"strconv"

	"accesspay/core/types"
)

const (
	EventTypePurchaseOpened    = "purchase.opened"
	EventTypePurchasePaid      = "purchase.paid"
	EventTypePurchaseCompleted = "purchase.completed"
	EventTypePurchaseCancelled = "purchase.cancelled"
)

func baseAttributes(p *Purchase) map[string]string {
	attrs := make(map[string]string)
	if p == nil {
		return attrs
	}
	attrs["id"] = hex.EncodeToString(p.ID[:])
	attrs["buyer"] = hex.EncodeToString(p.Buyer[:])
	attrs["creator"] = hex.EncodeToString(p.Creator[:])
	attrs["contentId"] = hex.EncodeToString(p.ContentID[:])
	attrs["status"] = p.Status.String()
	return attrs
}

// NewOpenedEvent returns the canonical payload for a newly opened purchase.
func NewOpenedEvent(p *Purchase) *types.Event {
	attrs := baseAttributes(p)
	if p != nil {
		attrs["price"] = strconv.FormatUint(p.Price, 10)
		attrs["asset"] = p.PaymentAsset
	}
	return &types.Event{Type: EventTypePurchaseOpened, Attributes: attrs}
}

// NewPaidEvent returns the payload emitted once payment enters custody.
func NewPaidEvent(p *Purchase) *types.Event {
	attrs := baseAttributes(p)
	if p != nil {
		attrs["amountPaid"] = strconv.FormatUint(p.AmountPaid, 10)
	}
	return &types.Event{Type: EventTypePurchasePaid, Attributes: attrs}
}

// NewCompletedEvent returns the payload emitted after atomic settlement.
func NewCompletedEvent(p *Purchase) *types.Event {
	attrs := baseAttributes(p)
	if p != nil {
		attrs["amountPaid"] = strconv.FormatUint(p.AmountPaid, 10)
		attrs["credential"] = hex.EncodeToString(p.IssuedCredential)
	}
	return &types.Event{Type: EventTypePurchaseCompleted, Attributes: attrs}
}

// NewCancelledEvent returns the payload emitted after a refunding cancel.
func NewCancelledEvent(p *Purchase) *types.Event {
	attrs := baseAttributes(p)
	if p != nil {
		attrs["refunded"] = strconv.FormatUint(p.AmountPaid, 10)
	}
	return &types.Event{Type: EventTypePurchaseCancelled, Attributes: attrs}
}
