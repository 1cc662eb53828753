package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"accesspay/native/accessmint"
	"accesspay/native/escrow"
	"accesspay/native/split"
)

// RLP has no signed-integer support, so the stored shapes below carry
// timestamps as uint64 and convert at the boundary.

type storedPurchase struct {
	ID               [32]byte
	Buyer            [20]byte
	Creator          [20]byte
	ContentID        [32]byte
	Price            uint64
	PaymentAsset     string
	AmountPaid       uint64
	IssuedCredential []byte
	CreatedAt        uint64
	Nonce            uint64
	Status           uint8
	Vault            [20]byte
	VaultBump        uint8
}

type storedSeries struct {
	ID            [32]byte
	Creator       [20]byte
	ContentID     [32]byte
	Issuer        [20]byte
	IssuerSymbol  string
	Authority     [20]byte
	AuthorityBump uint8
	Nonce         uint64
	TotalIssued   uint64
	CreatedAt     uint64
}

type storedSplit struct {
	ID                [32]byte
	ContentID         [32]byte
	Creator           [20]byte
	PlatformFeeBps    uint16
	PlatformTreasury  [20]byte
	Collaborators     []split.Collaborator
	LastDistributedAt uint64
	Nonce             uint64
	Vault             [20]byte
	VaultBump         uint8
}

// PurchasePut validates and journals a purchase record.
func (m *Manager) PurchasePut(p *escrow.Purchase) error {
	sanitized, err := escrow.SanitizePurchase(p)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	stored := storedPurchase{
		ID:               sanitized.ID,
		Buyer:            sanitized.Buyer,
		Creator:          sanitized.Creator,
		ContentID:        sanitized.ContentID,
		Price:            sanitized.Price,
		PaymentAsset:     sanitized.PaymentAsset,
		AmountPaid:       sanitized.AmountPaid,
		IssuedCredential: sanitized.IssuedCredential,
		CreatedAt:        uint64(sanitized.CreatedAt),
		Nonce:            sanitized.Nonce,
		Status:           uint8(sanitized.Status),
		Vault:            sanitized.Vault,
		VaultBump:        sanitized.VaultBump,
	}
	encoded, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return fmt.Errorf("state: encode purchase: %w", err)
	}
	return m.put(purchaseKey(sanitized.ID), encoded)
}

// PurchaseGet loads a purchase record by ID.
func (m *Manager) PurchaseGet(id [32]byte) (*escrow.Purchase, bool, error) {
	data, err := m.get(purchaseKey(id))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	stored := new(storedPurchase)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, fmt.Errorf("state: decode purchase: %w", err)
	}
	// RLP decodes an empty byte string as a non-nil empty slice.
	if len(stored.IssuedCredential) == 0 {
		stored.IssuedCredential = nil
	}
	return &escrow.Purchase{
		ID:               stored.ID,
		Buyer:            stored.Buyer,
		Creator:          stored.Creator,
		ContentID:        stored.ContentID,
		Price:            stored.Price,
		PaymentAsset:     stored.PaymentAsset,
		AmountPaid:       stored.AmountPaid,
		IssuedCredential: stored.IssuedCredential,
		CreatedAt:        int64(stored.CreatedAt),
		Nonce:            stored.Nonce,
		Status:           escrow.PurchaseStatus(stored.Status),
		Vault:            stored.Vault,
		VaultBump:        stored.VaultBump,
	}, true, nil
}

// PurchaseDelete removes a purchase record. Missing records are a no-op.
func (m *Manager) PurchaseDelete(id [32]byte) error {
	return m.del(purchaseKey(id))
}

// AccessSeriesPut validates and journals a credential series record.
func (m *Manager) AccessSeriesPut(s *accessmint.AccessSeries) error {
	sanitized, err := accessmint.SanitizeSeries(s)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	stored := storedSeries{
		ID:            sanitized.ID,
		Creator:       sanitized.Creator,
		ContentID:     sanitized.ContentID,
		Issuer:        sanitized.Issuer,
		IssuerSymbol:  sanitized.IssuerSymbol,
		Authority:     sanitized.Authority,
		AuthorityBump: sanitized.AuthorityBump,
		Nonce:         sanitized.Nonce,
		TotalIssued:   sanitized.TotalIssued,
		CreatedAt:     uint64(sanitized.CreatedAt),
	}
	encoded, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return fmt.Errorf("state: encode access series: %w", err)
	}
	return m.put(seriesKey(sanitized.ID), encoded)
}

// AccessSeriesGet loads a credential series record by ID.
func (m *Manager) AccessSeriesGet(id [32]byte) (*accessmint.AccessSeries, bool, error) {
	data, err := m.get(seriesKey(id))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	stored := new(storedSeries)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, fmt.Errorf("state: decode access series: %w", err)
	}
	return &accessmint.AccessSeries{
		ID:            stored.ID,
		Creator:       stored.Creator,
		ContentID:     stored.ContentID,
		Issuer:        stored.Issuer,
		IssuerSymbol:  stored.IssuerSymbol,
		Authority:     stored.Authority,
		AuthorityBump: stored.AuthorityBump,
		Nonce:         stored.Nonce,
		TotalIssued:   stored.TotalIssued,
		CreatedAt:     int64(stored.CreatedAt),
	}, true, nil
}

// SplitPut validates and journals a split configuration.
func (m *Manager) SplitPut(cfg *split.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: nil split config")
	}
	if err := cfg.ValidateShares(); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	clone := cfg.Clone()
	stored := storedSplit{
		ID:                clone.ID,
		ContentID:         clone.ContentID,
		Creator:           clone.Creator,
		PlatformFeeBps:    clone.PlatformFeeBps,
		PlatformTreasury:  clone.PlatformTreasury,
		Collaborators:     clone.Collaborators,
		LastDistributedAt: uint64(clone.LastDistributedAt),
		Nonce:             clone.Nonce,
		Vault:             clone.Vault,
		VaultBump:         clone.VaultBump,
	}
	encoded, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return fmt.Errorf("state: encode split config: %w", err)
	}
	return m.put(splitKey(clone.ID), encoded)
}

// SplitGet loads a split configuration by ID.
func (m *Manager) SplitGet(id [32]byte) (*split.Config, bool, error) {
	data, err := m.get(splitKey(id))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	stored := new(storedSplit)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, fmt.Errorf("state: decode split config: %w", err)
	}
	if len(stored.Collaborators) == 0 {
		stored.Collaborators = nil
	}
	return &split.Config{
		ID:                stored.ID,
		ContentID:         stored.ContentID,
		Creator:           stored.Creator,
		PlatformFeeBps:    stored.PlatformFeeBps,
		PlatformTreasury:  stored.PlatformTreasury,
		Collaborators:     stored.Collaborators,
		LastDistributedAt: int64(stored.LastDistributedAt),
		Nonce:             stored.Nonce,
		Vault:             stored.Vault,
		VaultBump:         stored.VaultBump,
	}, true, nil
}
