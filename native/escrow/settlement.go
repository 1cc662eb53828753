package escrow

import (
	"errors"

	"accesspay/native/accessmint"
	"accesspay/native/authority"
	"accesspay/native/split"
)

var errNilEngine = errors.New("escrow settlement: engine not configured")

// Settlement composes the three engines into the single purchase-settlement
// operation: payment into custody, credential issuance and revenue
// distribution. Every step writes through the same state backend, and the
// caller is expected to run Settle inside one atomic state unit so a failure
// at any step discards all prior writes.
type Settlement struct {
	escrow *Engine
	access *accessmint.Engine
	splits *split.Engine
}

// NewSettlement wires the settlement composer. All three engines must share
// one state backend.
func NewSettlement(escrowEngine *Engine, accessEngine *accessmint.Engine, splitEngine *split.Engine) *Settlement {
	return &Settlement{escrow: escrowEngine, access: accessEngine, splits: splitEngine}
}

// Settle executes the full settlement for an opened purchase. The payer must
// be the recorded buyer paying exactly the recorded price; the access series
// and split configuration must both belong to the purchase's creator and
// content. On success the purchase is Completed, the buyer holds one
// credential unit and the full amount has been distributed. The order is
// fixed: custody first, then issuance, then distribution.
func (s *Settlement) Settle(purchaseID [32]byte, payer [20]byte, amount uint64, seriesID, splitID [32]byte, payoutTargets [][20]byte) (*Purchase, error) {
	if s == nil || s.escrow == nil || s.access == nil || s.splits == nil {
		return nil, errNilEngine
	}
	purchase, err := s.escrow.Get(purchaseID)
	if err != nil {
		return nil, err
	}
	if err := statusGuard(purchase); err != nil {
		return nil, err
	}
	series, err := s.access.Get(seriesID)
	if err != nil {
		return nil, err
	}
	if series.ContentID != purchase.ContentID {
		return nil, ErrInvalidContentID
	}
	if series.Creator != purchase.Creator {
		return nil, ErrInvalidCreator
	}
	cfg, err := s.splits.Get(splitID)
	if err != nil {
		return nil, err
	}
	if cfg.ContentID != purchase.ContentID {
		return nil, ErrInvalidContentID
	}
	if cfg.Creator != purchase.Creator {
		return nil, ErrInvalidCreator
	}

	purchase, err = s.escrow.AcceptPayment(purchaseID, payer, amount)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Grant(seriesID, purchase.Buyer); err != nil {
		return nil, err
	}

	custody, err := authority.Authorize(authority.NamespaceVault, purchase.VaultBump, purchaseID[:])
	if err != nil {
		return nil, err
	}
	if err := s.escrow.releaseToDistribution(purchase, custody, cfg.Vault); err != nil {
		return nil, err
	}
	distribution, err := authority.Authorize(authority.NamespaceDistributionVault, cfg.VaultBump, cfg.ID[:])
	if err != nil {
		return nil, err
	}
	if err := s.splits.Distribute(splitID, distribution, purchase.AmountPaid, purchase.PaymentAsset, payoutTargets); err != nil {
		return nil, err
	}

	purchase.Status = PurchaseCompleted
	purchase.IssuedCredential = append([]byte(nil), series.Issuer[:]...)
	if err := s.escrow.state.PurchasePut(purchase); err != nil {
		return nil, err
	}
	s.escrow.emit(NewCompletedEvent(purchase))
	return purchase.Clone(), nil
}
