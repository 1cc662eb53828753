package escrow

import (
	"fmt"
	"strings"
)

// PurchaseStatus represents the lifecycle states of a single content
// purchase. Completed and Cancelled are terminal.
type PurchaseStatus uint8

const (
	PurchaseInitialized PurchaseStatus = iota
	PurchaseCompleted
	PurchaseCancelled
)

// Valid reports whether the status value is within the supported range.
func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchaseInitialized, PurchaseCompleted, PurchaseCancelled:
		return true
	default:
		return false
	}
}

func (s PurchaseStatus) String() string {
	switch s {
	case PurchaseInitialized:
		return "initialized"
	case PurchaseCompleted:
		return "completed"
	case PurchaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Purchase captures the metadata and runtime status of one content purchase.
// The identifier is the keccak256 hash of the buyer, content id and a
// caller-supplied nonce, ensuring deterministic IDs for every participant.
// The custody vault address is derived from the purchase's own ID and holds
// the paid amount until settlement or cancellation.
type Purchase struct {
	ID               [32]byte
	Buyer            [20]byte
	Creator          [20]byte
	ContentID        [32]byte
	Price            uint64
	PaymentAsset     string // empty for the native coin, token symbol otherwise
	AmountPaid       uint64
	IssuedCredential []byte // 20-byte credential issuer identity once granted
	CreatedAt        int64
	Nonce            uint64
	Status           PurchaseStatus
	Vault            [20]byte
	VaultBump        uint8
}

// Clone returns a deep copy of the purchase so callers can safely mutate the
// copy without affecting the stored instance.
func (p *Purchase) Clone() *Purchase {
	if p == nil {
		return nil
	}
	clone := *p
	clone.IssuedCredential = append([]byte(nil), p.IssuedCredential...)
	return &clone
}

// NormalizeAsset canonicalises a payment asset symbol. The empty string
// denotes the native coin; anything else is upper-cased and must be a
// registered token at transfer time.
func NormalizeAsset(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// SanitizePurchase validates and normalises the supplied purchase record,
// returning a cloned instance. The function does not mutate the original.
func SanitizePurchase(p *Purchase) (*Purchase, error) {
	if p == nil {
		return nil, fmt.Errorf("nil purchase")
	}
	clone := p.Clone()
	clone.PaymentAsset = NormalizeAsset(clone.PaymentAsset)
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid purchase status: %d", clone.Status)
	}
	if len(clone.IssuedCredential) != 0 && len(clone.IssuedCredential) != 20 {
		return nil, fmt.Errorf("issued credential must be 20 bytes, got %d", len(clone.IssuedCredential))
	}
	return clone, nil
}
